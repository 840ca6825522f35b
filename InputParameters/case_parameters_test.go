package InputParameters

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvoptions"
	"github.com/notargets/srfsimple/linsolve"
	"github.com/notargets/srfsimple/mesh"
	"github.com/notargets/srfsimple/srf"
	"github.com/notargets/srfsimple/turbulence"
)

var caseInput = []byte(`
title: "Test Case"
mesh:
  max: [2, 1, 0.1]
  cells: [4, 2, 1]
  skew: 0.1
  patches:
    xMin: {name: inlet}
    xMax: {name: outlet}
    yMin: {name: walls, type: wall}
    yMax: {name: walls, type: wall}
    zMin: {name: frontAndBack, type: empty}
    zMax: {name: frontAndBack, type: empty}
SRF: {model: rpm, axis: [0, 0, 1], rpm: 1000}
turbulence: {model: laminar, nu: 0.01}
fields:
  p:
    internalField: [0]
    boundaryField:
      outlet: {type: fixedValue, value: 0}
  Urel:
    internalField: [0, 0, 0]
    boundaryField:
      inlet: {type: fixedValue, value: [1, 0, 0]}
sources:
  - {name: porosity, type: linearSink, k: 5, selection: {mode: box, min: [0.5, 0, 0], max: [1, 1, 1]}}
solvers:
  p: {solver: PCG, preconditioner: DIC, tolerance: 1.e-6, relTol: 0.05}
  Urel: {solver: smoothSolver, smoother: GaussSeidel, nSweeps: 2, tolerance: 1.e-5, relTol: 0.1}
SIMPLE:
  nNonOrthogonalCorrectors: 1
  pRefCell: 0
  pRefValue: 0
  residualControl: {p: 1.e-3}
relaxationFactors:
  fields: {p: 0.3}
  equations: {Urel: 0.7}
control: {endTime: 10, writeInterval: 5}
`)

func TestCaseParameters(t *testing.T) {
	var (
		cp   CaseParameters
		zero = 0
		fz   = 0.
	)
	require.NoError(t, cp.Parse(caseInput))
	expected := CaseParameters{
		Title: "Test Case",
		Mesh: MeshParameters{
			Max:   [3]float64{2, 1, 0.1},
			Cells: [3]int{4, 2, 1},
			Skew:  0.1,
			Patches: map[string]PatchParameters{
				"xMin": {Name: "inlet"},
				"xMax": {Name: "outlet"},
				"yMin": {Name: "walls", Type: "wall"},
				"yMax": {Name: "walls", Type: "wall"},
				"zMin": {Name: "frontAndBack", Type: "empty"},
				"zMax": {Name: "frontAndBack", Type: "empty"},
			},
		},
		SRF:        srf.Properties{Model: "rpm", Axis: [3]float64{0, 0, 1}, RPM: 1000},
		Turbulence: turbulence.Properties{Model: "laminar", Nu: 0.01},
		Fields: map[string]FieldSpec{
			"p": {Internal: []float64{0}, Boundary: fields.BoundarySpec{
				"outlet": {"type": "fixedValue", "value": 0.},
			}},
			"Urel": {Internal: []float64{0, 0, 0}, Boundary: fields.BoundarySpec{
				"inlet": {"type": "fixedValue", "value": []interface{}{1., 0., 0.}},
			}},
		},
		Sources: []fvoptions.Spec{{
			Name: "porosity", Type: "linearSink", K: 5,
			Selection: fvoptions.Selection{Mode: "box", Min: [3]float64{0.5, 0, 0}, Max: [3]float64{1, 1, 1}},
		}},
		Solvers: map[string]linsolve.Settings{
			"p":    {Solver: "PCG", Preconditioner: "DIC", Tolerance: 1.e-6, RelTol: 0.05},
			"Urel": {Solver: "smoothSolver", Smoother: "GaussSeidel", NSweeps: 2, Tolerance: 1.e-5, RelTol: 0.1},
		},
		SIMPLE: SIMPLEParameters{
			NNonOrthogonalCorrectors: 1,
			PRefCell:                 &zero,
			PRefValue:                &fz,
			ResidualControl:          map[string]float64{"p": 1.e-3},
		},
		RelaxationFactors: RelaxationFactors{
			Fields:    map[string]float64{"p": 0.3},
			Equations: map[string]float64{"Urel": 0.7},
		},
		Control: ControlParameters{EndTime: 10, WriteInterval: 5},
	}
	if diff := cmp.Diff(expected, cp); diff != "" {
		t.Errorf("parsed case mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, cp.Validate())
	{
		spec, err := cp.Mesh.BoxSpec()
		require.NoError(t, err)
		assert.Equal(t, r3.Vec{X: 2, Y: 1, Z: 0.1}, spec.Max)
		assert.Equal(t, mesh.PatchSpec{Name: "walls", Type: mesh.PatchWall}, spec.Patches[mesh.YMax])
		assert.Equal(t, mesh.PatchSpec{Name: "frontAndBack", Type: mesh.PatchEmpty}, spec.Patches[mesh.ZMin])
	}
	{
		var buf bytes.Buffer
		cp.Print(&buf)
		text := buf.String()
		assert.True(t, strings.Contains(text, "\"Test Case\""))
		assert.True(t, strings.Contains(text, "Solvers[Urel] = smoothSolver GaussSeidel"))
		assert.True(t, strings.Contains(text, "Source \"porosity\" = linearSink over box"))
	}
}

func TestCaseParametersValidate(t *testing.T) {
	valid := func() *CaseParameters {
		var cp CaseParameters
		require.NoError(t, cp.Parse(caseInput))
		return &cp
	}
	{
		cp := valid()
		cp.RelaxationFactors.Fields["p"] = 1.2
		assert.True(t, errors.Is(cp.Validate(), ErrBadParameters))
	}
	{
		cp := valid()
		cp.RelaxationFactors.Equations["Urel"] = 0
		assert.True(t, errors.Is(cp.Validate(), ErrBadParameters))
	}
	{
		cp := valid()
		delete(cp.Solvers, "Urel")
		assert.True(t, errors.Is(cp.Validate(), ErrBadParameters))
	}
	{
		cp := valid()
		cp.Solvers["p"] = linsolve.Settings{Solver: "GAMG"}
		assert.True(t, errors.Is(cp.Validate(), linsolve.ErrUnknownSolver))
	}
	{
		cp := valid()
		delete(cp.Fields, "p")
		assert.True(t, errors.Is(cp.Validate(), ErrBadParameters))
	}
	{
		cp := valid()
		cp.Mesh.Patches["top"] = PatchParameters{Name: "lid"}
		assert.True(t, errors.Is(cp.Validate(), ErrBadParameters))
	}
	{
		cp := valid()
		cp.Mesh.Patches["xMin"] = PatchParameters{Name: "inlet", Type: "cyclic"}
		assert.True(t, errors.Is(cp.Validate(), mesh.ErrUnknownPatchType))
	}
	{
		cp := valid()
		cp.SIMPLE.PRefPoint = &[3]float64{0, 0, 0}
		assert.True(t, errors.Is(cp.Validate(), ErrBadParameters))
	}
	{
		cp := valid()
		cp.Control.EndTime = 0
		assert.True(t, errors.Is(cp.Validate(), ErrBadParameters))
	}
}
