package linsolve

import "fmt"

// Preconditioner applies an approximate inverse, dst = M^-1 r
type Preconditioner interface {
	Precondition(dst, r []float64)
}

type preconditionerFactory func(A *LDUMatrix) (Preconditioner, error)

var preconditioners = map[string]preconditionerFactory{
	"DIC":      newDIC,
	"DILU":     newDILU,
	"diagonal": newDiagonal,
	"none":     func(_ *LDUMatrix) (Preconditioner, error) { return noPreconditioner{}, nil },
}

func NewPreconditioner(name string, A *LDUMatrix) (P Preconditioner, err error) {
	if name == "" {
		name = "none"
	}
	factory, present := preconditioners[name]
	if !present {
		return nil, fmt.Errorf("%w: preconditioner %q", ErrUnknownSolver, name)
	}
	return factory(A)
}

type noPreconditioner struct{}

func (noPreconditioner) Precondition(dst, r []float64) { copy(dst, r) }

type diagonal struct {
	rD []float64
}

func newDiagonal(A *LDUMatrix) (Preconditioner, error) {
	if err := A.checkDiagonal(); err != nil {
		return nil, err
	}
	rD := make([]float64, A.Size())
	for i, d := range A.Diag {
		rD[i] = 1. / d
	}
	return &diagonal{rD}, nil
}

func (p *diagonal) Precondition(dst, r []float64) {
	for i, rd := range p.rD {
		dst[i] = rd * r[i]
	}
}

// DIC is the diagonal incomplete Cholesky preconditioner for symmetric matrices
type DIC struct {
	A  *LDUMatrix
	rD []float64
}

func newDIC(A *LDUMatrix) (Preconditioner, error) {
	if !A.Symmetric() {
		return nil, fmt.Errorf("%w: DIC", ErrAsymmetric)
	}
	rD := append([]float64(nil), A.Diag...)
	for f, l := range A.LowerAddr {
		u := A.UpperAddr[f]
		rD[u] -= A.Upper[f] * A.Upper[f] / rD[l]
	}
	for i, d := range rD {
		if d == 0 {
			return nil, fmt.Errorf("%w: DIC factorisation, row %d", ErrSingular, i)
		}
		rD[i] = 1. / d
	}
	return &DIC{A, rD}, nil
}

func (p *DIC) Precondition(dst, r []float64) {
	var (
		A = p.A
	)
	for i, rd := range p.rD {
		dst[i] = rd * r[i]
	}
	for f, l := range A.LowerAddr {
		u := A.UpperAddr[f]
		dst[u] -= p.rD[u] * A.Upper[f] * dst[l]
	}
	for f := A.NFaces() - 1; f >= 0; f-- {
		l, u := A.LowerAddr[f], A.UpperAddr[f]
		dst[l] -= p.rD[l] * A.Upper[f] * dst[u]
	}
}

// DILU is the diagonal incomplete LU preconditioner, it reduces to DIC on symmetric matrices
type DILU struct {
	A      *LDUMatrix
	rD     []float64
	losort []int
}

func newDILU(A *LDUMatrix) (Preconditioner, error) {
	rD := append([]float64(nil), A.Diag...)
	for f, l := range A.LowerAddr {
		u := A.UpperAddr[f]
		rD[u] -= A.Upper[f] * A.Lower[f] / rD[l]
	}
	for i, d := range rD {
		if d == 0 {
			return nil, fmt.Errorf("%w: DILU factorisation, row %d", ErrSingular, i)
		}
		rD[i] = 1. / d
	}
	return &DILU{A, rD, A.losort()}, nil
}

func (p *DILU) Precondition(dst, r []float64) {
	var (
		A = p.A
	)
	for i, rd := range p.rD {
		dst[i] = rd * r[i]
	}
	for _, f := range p.losort {
		l, u := A.LowerAddr[f], A.UpperAddr[f]
		dst[u] -= p.rD[u] * A.Lower[f] * dst[l]
	}
	for f := A.NFaces() - 1; f >= 0; f-- {
		l, u := A.LowerAddr[f], A.UpperAddr[f]
		dst[l] -= p.rD[l] * A.Upper[f] * dst[u]
	}
}
