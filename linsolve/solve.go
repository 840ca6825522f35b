package linsolve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/srfsimple/utils"
)

/*
Solve solves A x = b in place of x, starting from the values in x.

	A matrix with an all negative diagonal (a Laplacian in finite volume sign
	convention) is solved as -A x = -b. A and b are not modified. Reaching
	MaxIter without convergence is reported in the performance, not as an error.
*/
func Solve(A *LDUMatrix, x, b []float64, s Settings, field string) (perf Performance, err error) {
	if err = s.Validate(); err != nil {
		return
	}
	if len(x) != A.Size() || len(b) != A.Size() {
		panic(fmt.Errorf("solve for %s: matrix size %d, x %d, b %d", field, A.Size(), len(x), len(b)))
	}
	if err = A.checkDiagonal(); err != nil {
		err = fmt.Errorf("solve for %s: %w", field, err)
		return
	}
	if A.DiagonalSign() < 0 {
		A = A.Clone()
		A.Scale(-1)
		b = append([]float64(nil), b...)
		floats.Scale(-1, b)
	}
	switch s.Solver {
	case "PCG":
		perf, err = pcg(A, x, b, s)
	case "PBiCGStab":
		perf, err = pbicgstab(A, x, b, s)
	case "smoothSolver":
		perf, err = smoothSolve(A, x, b, s, field)
	}
	perf.Field = field
	if err != nil {
		err = fmt.Errorf("solve for %s: %w", field, err)
		return
	}
	if utils.IsNan(perf.FinalResidual) || utils.IsNan(x) {
		err = fmt.Errorf("%w: %s", ErrDiverged, perf)
	}
	return
}

// normFactor is the residual scaling, sum(|A x - A xRef| + |b - A xRef|) with xRef the mean of x
func normFactor(A *LDUMatrix, x, b, Ax []float64) (nf float64) {
	var (
		n    = A.Size()
		xRef = utils.ConstArray(n, floats.Sum(x)/float64(n))
		AxR  = make([]float64, n)
	)
	A.Amul(AxR, xRef)
	for i := range AxR {
		nf += math.Abs(Ax[i]-AxR[i]) + math.Abs(b[i]-AxR[i])
	}
	return nf + 1.e-20
}

func sumMag(x []float64) float64 { return floats.Norm(x, 1) }

func continueIterating(perf *Performance, s Settings) bool {
	return (perf.NIterations < s.maxIter() && !perf.checkConvergence(s)) ||
		perf.NIterations < s.MinIter
}
