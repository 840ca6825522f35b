package linsolve

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/srfsimple/utils"
)

// pcg is the preconditioned conjugate gradient method for symmetric matrices
func pcg(A *LDUMatrix, x, b []float64, s Settings) (perf Performance, err error) {
	var (
		n  = A.Size()
		wA = make([]float64, n)
		rA = make([]float64, n)
		pA = make([]float64, n)
		P  Preconditioner
	)
	perf.Solver = "PCG"
	if !A.Symmetric() {
		err = ErrAsymmetric
		return
	}
	A.Amul(wA, x)
	for i := range rA {
		rA[i] = b[i] - wA[i]
	}
	nf := normFactor(A, x, b, wA)
	perf.InitialResidual = sumMag(rA) / nf
	perf.FinalResidual = perf.InitialResidual
	if s.MinIter <= 0 && perf.checkConvergence(s) {
		return
	}
	if P, err = NewPreconditioner(s.Preconditioner, A); err != nil {
		return
	}
	var (
		wArA = utils.GREAT
	)
	for {
		wArAold := wArA
		P.Precondition(wA, rA)
		wArA = floats.Dot(wA, rA)
		if perf.NIterations == 0 {
			copy(pA, wA)
		} else {
			beta := wArA / wArAold
			for i := range pA {
				pA[i] = wA[i] + beta*pA[i]
			}
		}
		A.Amul(wA, pA)
		wApA := floats.Dot(wA, pA)
		if math.Abs(wApA)/nf < utils.VSMALL {
			perf.Singular = true
			break
		}
		alpha := wArA / wApA
		floats.AddScaled(x, alpha, pA)
		floats.AddScaled(rA, -alpha, wA)
		perf.FinalResidual = sumMag(rA) / nf
		perf.NIterations++
		if utils.IsNan(perf.FinalResidual) || !continueIterating(&perf, s) {
			break
		}
	}
	perf.checkConvergence(s)
	return
}
