package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m *DOK) SetReadOnly(name ...string) DOK {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m DOK) Set(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, val)
}

// AddTo accumulates into an existing entry, used when several faces land on one entry
func (m DOK) AddTo(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:        m.M.ToCSR(),
		readOnly: m.readOnly,
		name:     m.name,
	}
}

type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix       { return m.M.T() }

// MulVec computes dst = M x, dst and x are not aliased
func (m CSR) MulVec(dst, x []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(dst) != nr || len(x) != nc {
		err := fmt.Errorf("dimension mismatch in MulVec for \"%v\": (%d x %d) * %d -> %d",
			m.name, nr, nc, len(x), len(dst))
		panic(err)
	}
	raw := m.M.RawMatrix()
	for i := 0; i < nr; i++ {
		var sum float64
		for ii := raw.Indptr[i]; ii < raw.Indptr[i+1]; ii++ {
			sum += raw.Data[ii] * x[raw.Ind[ii]]
		}
		dst[i] = sum
	}
}

// DoRow calls fn for every stored entry of row i
func (m CSR) DoRow(i int, fn func(j int, val float64)) {
	var (
		raw = m.M.RawMatrix()
	)
	for ii := raw.Indptr[i]; ii < raw.Indptr[i+1]; ii++ {
		fn(raw.Ind[ii], raw.Data[ii])
	}
}
