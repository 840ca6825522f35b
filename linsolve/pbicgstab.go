package linsolve

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/srfsimple/utils"
)

// pbicgstab is the preconditioned stabilised bi-conjugate gradient method
func pbicgstab(A *LDUMatrix, x, b []float64, s Settings) (perf Performance, err error) {
	var (
		n   = A.Size()
		yA  = make([]float64, n)
		rA  = make([]float64, n)
		pA  = make([]float64, n)
		AyA = make([]float64, n)
		sA  = make([]float64, n)
		zA  = make([]float64, n)
		tA  = make([]float64, n)
		P   Preconditioner
	)
	perf.Solver = "PBiCGStab"
	A.Amul(yA, x)
	for i := range rA {
		rA[i] = b[i] - yA[i]
	}
	nf := normFactor(A, x, b, yA)
	perf.InitialResidual = sumMag(rA) / nf
	perf.FinalResidual = perf.InitialResidual
	if s.MinIter <= 0 && perf.checkConvergence(s) {
		return
	}
	if P, err = NewPreconditioner(s.Preconditioner, A); err != nil {
		return
	}
	var (
		rA0                 = append([]float64(nil), rA...)
		rA0rA, alpha, omega float64
	)
	for {
		rA0rAold := rA0rA
		rA0rA = floats.Dot(rA0, rA)
		if math.Abs(rA0rA) < utils.VSMALL {
			perf.Singular = true
			break
		}
		if perf.NIterations == 0 {
			copy(pA, rA)
		} else {
			if math.Abs(omega) < utils.VSMALL {
				perf.Singular = true
				break
			}
			beta := (rA0rA / rA0rAold) * (alpha / omega)
			for i := range pA {
				pA[i] = rA[i] + beta*(pA[i]-omega*AyA[i])
			}
		}
		P.Precondition(yA, pA)
		A.Amul(AyA, yA)
		alpha = rA0rA / floats.Dot(rA0, AyA)
		floats.AddScaledTo(sA, rA, -alpha, AyA)
		perf.FinalResidual = sumMag(sA) / nf
		if perf.checkConvergence(s) && perf.NIterations+1 >= s.MinIter {
			floats.AddScaled(x, alpha, yA)
			perf.NIterations++
			return
		}
		P.Precondition(zA, sA)
		A.Amul(tA, zA)
		tAtA := floats.Dot(tA, tA)
		if tAtA < utils.VSMALL {
			// sA is already in the null space of the update
			floats.AddScaled(x, alpha, yA)
			perf.NIterations++
			break
		}
		omega = floats.Dot(tA, sA) / tAtA
		floats.AddScaled(x, alpha, yA)
		floats.AddScaled(x, omega, zA)
		floats.AddScaledTo(rA, sA, -omega, tA)
		perf.FinalResidual = sumMag(rA) / nf
		perf.NIterations++
		if utils.IsNan(perf.FinalResidual) || !continueIterating(&perf, s) {
			break
		}
	}
	perf.checkConvergence(s)
	return
}
