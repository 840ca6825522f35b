package linsolve

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/srfsimple/utils"
)

/*
LDUMatrix stores a square matrix with the sparsity of a finite volume mesh.

	Upper[f] is the coefficient of cell UpperAddr[f] in the row of LowerAddr[f],
	Lower[f] the coefficient of LowerAddr[f] in the row of UpperAddr[f].
	Faces are expected in upper triangular order, sorted by LowerAddr.
*/
type LDUMatrix struct {
	LowerAddr, UpperAddr []int
	Diag, Lower, Upper   []float64
}

func NewLDUMatrix(nCells int, lowerAddr, upperAddr []int) *LDUMatrix {
	if len(lowerAddr) != len(upperAddr) {
		panic(fmt.Errorf("ldu addressing mismatch: %d lower, %d upper", len(lowerAddr), len(upperAddr)))
	}
	return &LDUMatrix{
		LowerAddr: lowerAddr,
		UpperAddr: upperAddr,
		Diag:      make([]float64, nCells),
		Lower:     make([]float64, len(lowerAddr)),
		Upper:     make([]float64, len(upperAddr)),
	}
}

func (A *LDUMatrix) Size() int   { return len(A.Diag) }
func (A *LDUMatrix) NFaces() int { return len(A.LowerAddr) }

// Amul computes dst = A x
func (A *LDUMatrix) Amul(dst, x []float64) {
	for i, d := range A.Diag {
		dst[i] = d * x[i]
	}
	for f, l := range A.LowerAddr {
		u := A.UpperAddr[f]
		dst[l] += A.Upper[f] * x[u]
		dst[u] += A.Lower[f] * x[l]
	}
}

// Residual computes dst = b - A x
func (A *LDUMatrix) Residual(dst, x, b []float64) {
	A.Amul(dst, x)
	for i := range dst {
		dst[i] = b[i] - dst[i]
	}
}

// SumMagOffDiag accumulates into dst the magnitudes of the off diagonal coefficients of each row
func (A *LDUMatrix) SumMagOffDiag(dst []float64) {
	for f, l := range A.LowerAddr {
		u := A.UpperAddr[f]
		dst[l] += math.Abs(A.Upper[f])
		dst[u] += math.Abs(A.Lower[f])
	}
}

func (A *LDUMatrix) Symmetric() bool {
	for f := range A.Lower {
		if A.Lower[f] != A.Upper[f] {
			return false
		}
	}
	return true
}

// DiagonalSign returns -1 when every diagonal coefficient is negative, 1 otherwise
func (A *LDUMatrix) DiagonalSign() float64 {
	for _, d := range A.Diag {
		if d >= 0 {
			return 1
		}
	}
	return -1
}

func (A *LDUMatrix) Clone() (R *LDUMatrix) {
	R = &LDUMatrix{
		LowerAddr: A.LowerAddr,
		UpperAddr: A.UpperAddr,
		Diag:      append([]float64(nil), A.Diag...),
		Lower:     append([]float64(nil), A.Lower...),
		Upper:     append([]float64(nil), A.Upper...),
	}
	return
}

// Scale multiplies every coefficient by s
func (A *LDUMatrix) Scale(s float64) {
	for _, arr := range [][]float64{A.Diag, A.Lower, A.Upper} {
		for i := range arr {
			arr[i] *= s
		}
	}
}

// ToCSR assembles the matrix in compressed sparse row form
func (A *LDUMatrix) ToCSR(name string) utils.CSR {
	var (
		n = A.Size()
		M = utils.NewDOK(n, n)
	)
	for i, d := range A.Diag {
		M.Set(i, i, d)
	}
	for f, l := range A.LowerAddr {
		u := A.UpperAddr[f]
		M.AddTo(l, u, A.Upper[f])
		M.AddTo(u, l, A.Lower[f])
	}
	M.SetReadOnly(name)
	return M.ToCSR()
}

// losort returns the faces ordered by upper address, stable in face order
func (A *LDUMatrix) losort() (order []int) {
	order = make([]int, A.NFaces())
	for f := range order {
		order[f] = f
	}
	sort.SliceStable(order, func(i, j int) bool {
		return A.UpperAddr[order[i]] < A.UpperAddr[order[j]]
	})
	return
}

func (A *LDUMatrix) checkDiagonal() (err error) {
	for i, d := range A.Diag {
		if d == 0 {
			return fmt.Errorf("%w: zero diagonal in row %d", ErrSingular, i)
		}
	}
	return
}
