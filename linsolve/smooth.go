package linsolve

import (
	"fmt"

	"github.com/notargets/srfsimple/utils"
)

// smoothSolve iterates Gauss-Seidel sweeps over the CSR rows of A, symGaussSeidel
// alternates forward and backward sweeps
func smoothSolve(A *LDUMatrix, x, b []float64, s Settings, field string) (perf Performance, err error) {
	var (
		n   = A.Size()
		rA  = make([]float64, n)
		Ax  = make([]float64, n)
		csr = A.ToCSR(field)
		sym = s.Smoother == "symGaussSeidel"
	)
	perf.Solver = "smoothSolver"
	A.Amul(Ax, x)
	for i := range rA {
		rA[i] = b[i] - Ax[i]
	}
	nf := normFactor(A, x, b, Ax)
	perf.InitialResidual = sumMag(rA) / nf
	perf.FinalResidual = perf.InitialResidual
	if s.MinIter <= 0 && perf.checkConvergence(s) {
		return
	}
	for {
		for sweep := 0; sweep < s.nSweeps(); sweep++ {
			gaussSeidel(csr, x, b, false)
			if sym {
				gaussSeidel(csr, x, b, true)
			}
		}
		perf.NIterations += s.nSweeps()
		A.Residual(rA, x, b)
		perf.FinalResidual = sumMag(rA) / nf
		if utils.IsNan(perf.FinalResidual) || !continueIterating(&perf, s) {
			break
		}
	}
	perf.checkConvergence(s)
	return
}

func gaussSeidel(csr utils.CSR, x, b []float64, reverse bool) {
	var (
		n, _ = csr.Dims()
	)
	row := func(i int) {
		var (
			diag float64
			sum  = b[i]
		)
		csr.DoRow(i, func(j int, val float64) {
			if j == i {
				diag = val
				return
			}
			sum -= val * x[j]
		})
		if diag == 0 {
			panic(fmt.Errorf("gauss-seidel: zero diagonal in row %d", i))
		}
		x[i] = sum / diag
	}
	if reverse {
		for i := n - 1; i >= 0; i-- {
			row(i)
		}
		return
	}
	for i := 0; i < n; i++ {
		row(i)
	}
}
