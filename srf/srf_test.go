package srf

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/mesh"
)

func disc(t *testing.T) *mesh.Mesh {
	spec := mesh.BoxSpec{
		Min:   r3.Vec{X: -1, Y: -1, Z: 0},
		Max:   r3.Vec{X: 1, Y: 1, Z: 1},
		Cells: [3]int{4, 4, 2},
	}
	spec.Patches[mesh.ZMin] = mesh.PatchSpec{Name: "inlet"}
	spec.Patches[mesh.ZMax] = mesh.PatchSpec{Name: "outlet"}
	for _, s := range []mesh.Side{mesh.XMin, mesh.XMax, mesh.YMin, mesh.YMax} {
		spec.Patches[s] = mesh.PatchSpec{Name: "shroud", Type: mesh.PatchWall}
	}
	m, err := mesh.NewBoxMesh(spec)
	require.NoError(t, err)
	return m
}

// one radian per second about z
var unitSpin = Properties{Model: "rpm", Axis: [3]float64{0, 0, 2}, RPM: 60 / (2 * math.Pi)}

func TestRPM(t *testing.T) {
	m := disc(t)
	model, err := New(m, unitSpin)
	require.NoError(t, err)
	assert.Equal(t, "rpm", model.Name())
	assert.InDelta(t, 1., model.Omega().Z, 1.e-14)
	{ // Frame velocity of a rigid rotation ignores the axial position
		v := model.Velocity(r3.Vec{X: 0.5, Y: 0.25, Z: 7})
		assert.InDelta(t, -0.25, v.X, 1.e-14)
		assert.InDelta(t, 0.5, v.Y, 1.e-14)
		assert.InDelta(t, 0., v.Z, 1.e-14)
	}
	Urel, err := fields.NewVolField("Urel", m, []float64{0, 0, 0}, fields.BoundarySpec{
		"inlet":  {"type": "fixedValue", "value": []interface{}{0., 0., 1.}},
		"outlet": {"type": "zeroGradient"},
		"shroud": {"type": "noSlip"},
	})
	require.NoError(t, err)
	{ // At rest in the rotating frame only the centrifugal term remains, -Omega^2 r
		Su := model.Su(Urel)
		for k, c := range m.C {
			assert.InDelta(t, -c.X, Su[0][k], 1.e-14)
			assert.InDelta(t, -c.Y, Su[1][k], 1.e-14)
			assert.InDelta(t, 0., Su[2][k], 1.e-14)
		}
	}
	{ // Coriolis acts perpendicular to the relative velocity
		for k := range m.C {
			Urel.SetVec(k, r3.Vec{X: 1})
		}
		Su := model.Su(Urel)
		for k, c := range m.C {
			assert.InDelta(t, -c.X, Su[0][k], 1.e-14)
			assert.InDelta(t, 2-c.Y, Su[1][k], 1.e-14)
		}
		Uabs := Absolute(model, Urel)
		for k, c := range m.C {
			assert.InDelta(t, 1-c.Y, Uabs[0][k], 1.e-14)
			assert.InDelta(t, c.X, Uabs[1][k], 1.e-14)
		}
	}
	{
		_, err = New(m, Properties{Model: "rpm"})
		assert.True(t, errors.Is(err, ErrBadProperties))
		_, err = New(m, Properties{Model: "oscillating", Axis: [3]float64{0, 0, 1}})
		assert.True(t, errors.Is(err, ErrUnknownModel))
	}
}

func TestVelocityPatch(t *testing.T) {
	m := disc(t)
	model, err := New(m, unitSpin)
	require.NoError(t, err)
	Urel, err := fields.NewVolField("Urel", m, []float64{0, 0, 0}, fields.BoundarySpec{
		"inlet":  {"type": "SRFVelocity", "inletValue": []interface{}{0., 0., 1.}, "relative": false},
		"outlet": {"type": "zeroGradient"},
		"shroud": {"type": "noSlip"},
	})
	require.NoError(t, err)
	idx, found := m.FindPatch("inlet")
	require.True(t, found)
	inlet := Urel.Boundary[idx]
	assert.Equal(t, "SRFVelocity", inlet.TypeName())
	assert.True(t, inlet.FixesValue())
	assert.True(t, errors.Is(Urel.UpdateCoeffs(&fields.PatchContext{}), ErrNoFrame))
	require.NoError(t, Urel.UpdateCoeffs(&fields.PatchContext{FrameVelocity: model.Velocity}))
	patch := m.Patches[idx]
	for i := 0; i < patch.Size; i++ {
		cf := m.Cf[patch.Start+i]
		// absolute axial inflow seen from the rotating frame
		assert.InDelta(t, cf.Y, inlet.Value()[0][i], 1.e-14)
		assert.InDelta(t, -cf.X, inlet.Value()[1][i], 1.e-14)
		assert.InDelta(t, 1., inlet.Value()[2][i], 1.e-14)
	}
	clone := inlet.Clone()
	assert.Equal(t, inlet.Value(), clone.Value())
	{ // Relative inlet values are imposed unchanged
		rel := NewVelocity(fields.PatchInfo{Mesh: m, Index: idx, NComp: 3}, r3.Vec{Z: 2}, true)
		require.NoError(t, rel.UpdateCoeffs(nil))
		assert.Equal(t, 2., rel.Value()[2][3])
		assert.Equal(t, 0., rel.Value()[0][3])
	}
}
