package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparse(t *testing.T) {
	{ // Accumulated entries and row traversal
		dok := NewDOK(3, 3)
		dok.Set(0, 0, 2)
		dok.AddTo(0, 1, -1)
		dok.AddTo(0, 1, -1)
		dok.Set(1, 1, 4)
		dok.Set(2, 0, 1)
		dok.Set(2, 2, 3)
		csr := dok.SetReadOnly("A").ToCSR()
		assert.Equal(t, -2., csr.At(0, 1))
		dst := make([]float64, 3)
		csr.MulVec(dst, []float64{1, 2, 3})
		assert.Equal(t, []float64{-2, 8, 10}, dst)
		var (
			cols []int
			sum  float64
		)
		csr.DoRow(2, func(j int, val float64) {
			cols = append(cols, j)
			sum += val
		})
		assert.ElementsMatch(t, []int{0, 2}, cols)
		assert.Equal(t, 4., sum)
	}
	{ // Read only matrices and dimension checks panic
		dok := NewDOK(2, 2)
		ro := dok.SetReadOnly("frozen")
		assert.Panics(t, func() { ro.Set(0, 0, 1) })
		csr := NewDOK(2, 2).ToCSR()
		assert.Panics(t, func() { csr.MulVec(make([]float64, 3), make([]float64, 2)) })
	}
}

func TestMath(t *testing.T) {
	assert.Equal(t, []float64{2, 2, 2}, ConstArray(3, 2))
	assert.Equal(t, 9., POW(3, 2))
	assert.Equal(t, 0.25, POW(2, -2))
	assert.InDelta(t, math.Pow(1.1, 12), POW(1.1, 12), 1.e-12)
	assert.Equal(t, 1., POW(5, 0))
	data := []float64{3, -1, 2}
	assert.Equal(t, 3., Max(data))
	assert.Equal(t, -1., Min(data))
	assert.Equal(t, 1, Bound(data, 0.5))
	assert.Equal(t, []float64{3, 0.5, 2}, data)
	assert.True(t, IsNan(math.NaN()))
	assert.True(t, IsNan([][]float64{{1}, {math.Inf(1)}}))
	assert.False(t, IsNan([]float64{1, 2}))
	assert.NotEmpty(t, GetMemUsage())
}
