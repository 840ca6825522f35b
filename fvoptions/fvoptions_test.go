package fvoptions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvm"
	"github.com/notargets/srfsimple/mesh"
)

func channel(t *testing.T) *mesh.Mesh {
	spec := mesh.BoxSpec{
		Max:   r3.Vec{X: 4, Y: 1, Z: 1},
		Cells: [3]int{4, 2, 1},
	}
	spec.Patches[mesh.XMin] = mesh.PatchSpec{Name: "inlet"}
	spec.Patches[mesh.XMax] = mesh.PatchSpec{Name: "outlet"}
	spec.Patches[mesh.YMin] = mesh.PatchSpec{Name: "walls"}
	spec.Patches[mesh.YMax] = mesh.PatchSpec{Name: "walls"}
	spec.Patches[mesh.ZMin] = mesh.PatchSpec{Name: "frontAndBack", Type: mesh.PatchEmpty}
	spec.Patches[mesh.ZMax] = mesh.PatchSpec{Name: "frontAndBack", Type: mesh.PatchEmpty}
	m, err := mesh.NewBoxMesh(spec)
	require.NoError(t, err)
	return m
}

func velocity(t *testing.T, m *mesh.Mesh, ux float64) *fields.VolField {
	U, err := fields.NewVolField("U", m, []float64{ux, 0, 0}, fields.BoundarySpec{
		"inlet":  {"type": "zeroGradient"},
		"outlet": {"type": "zeroGradient"},
		"walls":  {"type": "zeroGradient"},
	})
	require.NoError(t, err)
	return U
}

func constant(n int, v float64) (R []float64) {
	R = make([]float64, n)
	for i := range R {
		R[i] = v
	}
	return
}

func TestNew(t *testing.T) {
	m := channel(t)
	{ // Unknown type
		_, err := New(m, []Spec{{Type: "magic"}}, nil)
		assert.True(t, errors.Is(err, ErrUnknownSource))
	}
	{ // Unknown selection and empty box
		_, err := New(m, []Spec{{Type: "linearSink", Selection: Selection{Mode: "cylinder"}}}, nil)
		assert.True(t, errors.Is(err, ErrBadSelection))
		_, err = New(m, []Spec{{Type: "linearSink", K: 1,
			Selection: Selection{Mode: "box", Min: [3]float64{10, 10, 10}, Max: [3]float64{11, 11, 11}}}}, nil)
		assert.True(t, errors.Is(err, ErrBadSelection))
	}
	{ // Bad coefficients
		_, err := New(m, []Spec{{Type: "linearSink", K: -1}}, nil)
		assert.True(t, errors.Is(err, ErrBadSpec))
		_, err = New(m, []Spec{{Type: "meanVelocityForce"}}, nil)
		assert.True(t, errors.Is(err, ErrBadSpec))
	}
	{ // Default names and box selection
		l, err := New(m, []Spec{
			{Type: "linearSink", K: 1, Selection: Selection{Mode: "box", Max: [3]float64{2, 1, 1}}},
			{Name: "hold", Type: "fixedVelocity"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, l.Len())
		assert.Equal(t, "linearSink0", l.Source(0).Name())
		assert.Equal(t, "hold", l.Source(1).Name())
		assert.Equal(t, 4, len(l.Source(0).Cells()))
		assert.Equal(t, 8, len(l.Source(1).Cells()))
	}
	assert.Equal(t, []string{"fixedVelocity", "linearSink", "meanVelocityForce"}, Types())
}

func TestLinearSink(t *testing.T) {
	var (
		m = channel(t)
		U = velocity(t, m, 1)
		k = 3.
	)
	l, err := New(m, []Spec{{Type: "linearSink", K: k,
		Selection: Selection{Mode: "box", Max: [3]float64{2, 1, 1}}}}, nil)
	require.NoError(t, err)
	base := fvm.Sp(constant(m.NCells, 1), U)
	sunk := base.Clone().Sub(l.Contribution(U))
	l.Constrain(sunk)
	A0, A1 := base.A(), sunk.A()
	inBox := map[int]bool{}
	for _, c := range l.Source(0).Cells() {
		inBox[c] = true
	}
	for c := range A0 {
		if inBox[c] {
			assert.InDelta(t, k, A1[c]-A0[c], 1.e-12)
		} else {
			assert.InDelta(t, 0, A1[c]-A0[c], 1.e-12)
		}
	}
}

func TestFixedVelocity(t *testing.T) {
	var (
		m = channel(t)
		U = velocity(t, m, 1)
	)
	l, err := New(m, []Spec{{Type: "fixedVelocity", U: [3]float64{2, 0.5, 0},
		Selection: Selection{Mode: "box", Max: [3]float64{1, 1, 1}}}}, nil)
	require.NoError(t, err)
	cells := l.Source(0).Cells()
	require.Equal(t, 2, len(cells))
	eq := fvm.Sp(constant(m.NCells, 1), U)
	l.Constrain(eq)
	for _, c := range cells {
		assert.InDelta(t, 2, eq.Source[0][c]/eq.Matrix.Diag[c], 1.e-12)
		assert.InDelta(t, 0.5, eq.Source[1][c]/eq.Matrix.Diag[c], 1.e-12)
	}
	U.SetVec(cells[0], r3.Vec{})
	l.Correct(U)
	for _, c := range cells {
		assert.Equal(t, r3.Vec{X: 2, Y: 0.5}, U.Vec(c))
	}
}

func TestMeanVelocityForce(t *testing.T) {
	var (
		m = channel(t)
		U = velocity(t, m, 0.5)
	)
	l, err := New(m, []Spec{{Type: "meanVelocityForce", Ubar: [3]float64{1, 0, 0}}}, nil)
	require.NoError(t, err)
	mv := l.Source(0).(*MeanVelocityForce)
	{ // Correct before Constrain is a no-op
		l.Correct(U)
		assert.Equal(t, 0., mv.GradP)
		assert.InDelta(t, 0.5, mv.MagUbarAverage(U), 1.e-12)
	}
	{ // With A = 2 the increment is (1-0.5)/0.5
		eq := fvm.Sp(constant(m.NCells, 2), U)
		l.Constrain(eq)
		l.Correct(U)
		assert.InDelta(t, 1, mv.GradP, 1.e-12)
		assert.InDelta(t, 1, mv.MagUbarAverage(U), 1.e-12)
		l.Advance()
	}
	{ // The accumulated gradient is a force on the right hand side
		rhs := l.Contribution(U)
		for c := 0; c < m.NCells; c++ {
			assert.InDelta(t, -m.V[c], rhs.Source[0][c], 1.e-12)
			assert.Equal(t, 0., rhs.Source[1][c])
		}
	}
}
