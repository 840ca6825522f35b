package SRFSimple

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/InputParameters"
	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvc"
	"github.com/notargets/srfsimple/fvm"
	"github.com/notargets/srfsimple/fvoptions"
	"github.com/notargets/srfsimple/linsolve"
	"github.com/notargets/srfsimple/mesh"
	"github.com/notargets/srfsimple/srf"
	"github.com/notargets/srfsimple/turbulence"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var solvers = map[string]linsolve.Settings{
	"p":    {Solver: "PCG", Preconditioner: "DIC", Tolerance: 1.e-12},
	"Urel": {Solver: "PBiCGStab", Preconditioner: "DILU", Tolerance: 1.e-12},
}

// channelCase is a 2D channel with a uniform inflow and a fixed outlet pressure
func channelCase(endTime int) *InputParameters.CaseParameters {
	return &InputParameters.CaseParameters{
		Title: "channel",
		Mesh: InputParameters.MeshParameters{
			Max:   [3]float64{3, 1, 0.1},
			Cells: [3]int{6, 3, 1},
			Patches: map[string]InputParameters.PatchParameters{
				"xMin": {Name: "inlet"},
				"xMax": {Name: "outlet"},
				"yMin": {Name: "walls", Type: "wall"},
				"yMax": {Name: "walls", Type: "wall"},
				"zMin": {Name: "frontAndBack", Type: "empty"},
				"zMax": {Name: "frontAndBack", Type: "empty"},
			},
		},
		Turbulence: turbulence.Properties{Model: "laminar", Nu: 0.1},
		SRF:        srf.Properties{Model: "rpm", Axis: [3]float64{0, 0, 1}},
		Fields: map[string]InputParameters.FieldSpec{
			"p": {Internal: []float64{0}, Boundary: fields.BoundarySpec{
				"inlet":  {"type": "zeroGradient"},
				"outlet": {"type": "fixedValue", "value": 0.},
				"walls":  {"type": "zeroGradient"},
			}},
			"Urel": {Internal: []float64{0, 0, 0}, Boundary: fields.BoundarySpec{
				"inlet":  {"type": "fixedValue", "value": []interface{}{1., 0., 0.}},
				"outlet": {"type": "zeroGradient"},
				"walls":  {"type": "noSlip"},
			}},
		},
		Solvers: solvers,
		RelaxationFactors: InputParameters.RelaxationFactors{
			Fields:    map[string]float64{"p": 0.3},
			Equations: map[string]float64{"Urel": 0.7},
		},
		Control: InputParameters.ControlParameters{EndTime: endTime},
	}
}

func newChannel(t *testing.T, cp *InputParameters.CaseParameters) *SRFSimple {
	c, err := NewSRFSimple(cp, nil)
	require.NoError(t, err)
	return c
}

// duct is two unit cells in a row, p has zero gradient on the left and is fixed to zero on the right
func duct(t *testing.T) (c *SRFSimple, inlet, outlet int) {
	spec := mesh.BoxSpec{Max: r3.Vec{X: 2, Y: 1, Z: 1}, Cells: [3]int{2, 1, 1}}
	spec.Patches[mesh.XMin] = mesh.PatchSpec{Name: "inlet"}
	spec.Patches[mesh.XMax] = mesh.PatchSpec{Name: "outlet"}
	for _, s := range []mesh.Side{mesh.YMin, mesh.YMax, mesh.ZMin, mesh.ZMax} {
		spec.Patches[s] = mesh.PatchSpec{Name: "sides", Type: mesh.PatchEmpty}
	}
	m, err := mesh.NewBoxMesh(spec)
	require.NoError(t, err)
	st := &State{Phi: fields.NewSurfaceField("phi", m)}
	st.P, err = fields.NewVolField("p", m, []float64{0}, fields.BoundarySpec{
		"inlet":  {"type": "zeroGradient"},
		"outlet": {"type": "fixedValue", "value": 0.},
	})
	require.NoError(t, err)
	st.Urel, err = fields.NewVolField("Urel", m, []float64{0, 0, 0}, fields.BoundarySpec{
		"inlet":  {"type": "fixedValue", "value": []interface{}{1., 0., 0.}},
		"outlet": {"type": "zeroGradient"},
	})
	require.NoError(t, err)
	c, err = New(m, st, Models{}, SimpleControl{PRefCell: -1, Solvers: solvers}, nil)
	require.NoError(t, err)
	var found bool
	inlet, found = m.FindPatch("inlet")
	require.True(t, found)
	outlet, found = m.FindPatch("outlet")
	require.True(t, found)
	return
}

func ones(n int) (R []float64) {
	R = make([]float64, n)
	for i := range R {
		R[i] = 1
	}
	return
}

func TestTwoCellDuct(t *testing.T) {
	var (
		ctx              = context.Background()
		c, inlet, outlet = duct(t)
		phi, p           = c.State.Phi, c.State.P
		m                = c.Mesh
		nearly           = 1.e-10
	)
	require.Equal(t, 1, m.NInternalFaces)
	phi.Patch(inlet)[0] = -1
	phi.Internal()[0] = 0.5
	phi.Patch(outlet)[0] = 0.25
	{ // One pass: p0 - p1 is the imbalance of the first cell over the unit coefficient
		require.NoError(t, c.SolvePressure(ctx, ones(m.NFaces)))
		assert.InDelta(t, 0.875, p.Internal[0][0], nearly)
		assert.InDelta(t, 0.375, p.Internal[0][1], nearly)
		assert.InDelta(t, 0.5, p.Internal[0][0]-p.Internal[0][1], nearly)
		assert.InDelta(t, 1, phi.Internal()[0], nearly)
		assert.InDelta(t, 1, phi.Patch(outlet)[0], nearly)
		assert.InDelta(t, -1, phi.Patch(inlet)[0], nearly)
		ce := ContinuityErrors{}.Update(phi)
		assert.InDelta(t, 0, ce.MaxLocal, nearly)
	}
	{ // Resolving with a conservative flux gives no correction
		before := phi.Copy()
		require.NoError(t, c.SolvePressure(ctx, ones(m.NFaces)))
		for k := range p.Internal[0] {
			assert.InDelta(t, 0, p.Internal[0][k], nearly)
		}
		for f := range phi.Values {
			assert.InDelta(t, before.Values[f], phi.Values[f], nearly)
		}
	}
}

func TestReferencePinning(t *testing.T) {
	var (
		ctx = context.Background()
	)
	closedBox := func(pInitial float64) *SRFSimple {
		spec := mesh.BoxSpec{Max: r3.Vec{X: 1, Y: 1, Z: 0.1}, Cells: [3]int{3, 3, 1}}
		for _, s := range []mesh.Side{mesh.XMin, mesh.XMax, mesh.YMin, mesh.YMax} {
			spec.Patches[s] = mesh.PatchSpec{Name: "walls", Type: mesh.PatchWall}
		}
		spec.Patches[mesh.ZMin] = mesh.PatchSpec{Name: "frontAndBack", Type: mesh.PatchEmpty}
		spec.Patches[mesh.ZMax] = mesh.PatchSpec{Name: "frontAndBack", Type: mesh.PatchEmpty}
		m, err := mesh.NewBoxMesh(spec)
		require.NoError(t, err)
		st := &State{Phi: fields.NewSurfaceField("phi", m)}
		st.P, err = fields.NewVolField("p", m, []float64{pInitial}, fields.BoundarySpec{
			"walls": {"type": "zeroGradient"},
		})
		require.NoError(t, err)
		require.True(t, st.P.NeedReference())
		st.Urel, err = fields.NewVolField("Urel", m, []float64{0, 0, 0}, fields.BoundarySpec{
			"walls": {"type": "noSlip"},
		})
		require.NoError(t, err)
		for f := 0; f < m.NInternalFaces; f++ {
			st.Phi.Values[f] = math.Sin(float64(f + 1))
		}
		c, err := New(m, st, Models{}, SimpleControl{PRefCell: 4, PRefValue: 1.5, Solvers: solvers}, nil)
		require.NoError(t, err)
		require.NoError(t, c.SolvePressure(ctx, ones(m.NFaces)))
		return c
	}
	var (
		c1, c2, c3 = closedBox(0), closedBox(0), closedBox(10)
	)
	assert.Equal(t, c1.State.P.Internal, c2.State.P.Internal)
	for k := range c1.State.P.Internal[0] {
		assert.InDelta(t, c1.State.P.Internal[0][k], c3.State.P.Internal[0][k], 1.e-8)
	}
	{ // Without a reference the case is rejected before iterating
		cp := channelCase(1)
		for _, name := range []string{"inlet", "outlet", "walls"} {
			cp.Fields["p"].Boundary[name] = fields.Dict{"type": "zeroGradient"}
		}
		_, err := NewSRFSimple(cp, nil)
		assert.True(t, errors.Is(err, ErrNoReference))
		cell, value := 2, 0.
		cp.SIMPLE.PRefCell = &cell
		_, err = NewSRFSimple(cp, nil)
		assert.True(t, errors.Is(err, ErrNoReference))
		cp.SIMPLE.PRefValue = &value
		_, err = NewSRFSimple(cp, nil)
		assert.NoError(t, err)
		cp.SIMPLE.PRefCell = nil
		cp.SIMPLE.PRefPoint = &[3]float64{2.9, 0.9, 0.05}
		c, err := NewSRFSimple(cp, nil)
		require.NoError(t, err)
		assert.Equal(t, 17, c.Control.PRefCell)
	}
}

func TestSimpleControl(t *testing.T) {
	c := newChannel(t, channelCase(1))
	{
		sc := c.Control
		sc.FieldRelaxation = map[string]float64{"p": 1.5}
		assert.True(t, errors.Is(sc.Validate(c.State.P), ErrBadRelaxation))
		sc.FieldRelaxation = nil
		sc.EquationRelaxation = map[string]float64{"Urel": 0}
		assert.True(t, errors.Is(sc.Validate(c.State.P), ErrBadRelaxation))
	}
	{
		sc := c.Control
		sc.Solvers = map[string]linsolve.Settings{"p": solvers["p"]}
		assert.True(t, errors.Is(sc.Validate(c.State.P), ErrMissingSolver))
	}
	{
		assert.Equal(t, 0.3, c.Control.FieldRelaxationFactor("p"))
		assert.Equal(t, 1., c.Control.FieldRelaxationFactor("Urel"))
		assert.Equal(t, -1, c.Control.PRefCell)
	}
	{
		sc := SimpleControl{ResidualControl: map[string]float64{"p": 1.e-3, "Urel": 1.e-4}}
		assert.False(t, sc.Converged(Residuals{"p": {InitialResidual: 1.e-4}}))
		assert.False(t, sc.Converged(Residuals{"p": {InitialResidual: 1.e-4}, "Urel": {InitialResidual: 1.e-3}}))
		assert.True(t, sc.Converged(Residuals{"p": {InitialResidual: 1.e-4}, "Urel": {InitialResidual: 1.e-5}}))
		assert.False(t, SimpleControl{}.Converged(Residuals{"p": {}}))
	}
	{
		sc := SimpleControl{EndTime: 10, WriteInterval: 4}
		assert.False(t, sc.IsWriteTime(3))
		assert.True(t, sc.IsWriteTime(4))
		assert.True(t, sc.IsWriteTime(10))
	}
}

func TestResiduals(t *testing.T) {
	r := Residuals{}
	r.add("Urel", []linsolve.Performance{
		{InitialResidual: 0.1, FinalResidual: 1.e-6, NIterations: 3, Converged: true},
		{InitialResidual: 0.3, FinalResidual: 1.e-7, NIterations: 5, Converged: true},
	})
	r.add("p", []linsolve.Performance{{InitialResidual: 1, FinalResidual: 1.e-3, NIterations: 10}})
	r.add("p", []linsolve.Performance{{InitialResidual: 0.5, FinalResidual: 1.e-4, NIterations: 7}})
	assert.Equal(t, 0.3, r["Urel"].InitialResidual)
	assert.Equal(t, 1.e-6, r["Urel"].FinalResidual)
	assert.Equal(t, "Urel", r["Urel"].Field)
	assert.True(t, r["Urel"].Converged)
	assert.Equal(t, 1., r["p"].InitialResidual)
	assert.Equal(t, 1.e-4, r["p"].FinalResidual)
	assert.Equal(t, 17, r["p"].NIterations)
}

func TestMassConservation(t *testing.T) {
	var (
		ctx = context.Background()
		c   = newChannel(t, channelCase(4))
	)
	var cumulative float64
	for i := 0; i < 4; i++ {
		rep, err := c.Iterate(ctx)
		require.NoError(t, err)
		assert.Equal(t, i+1, rep.Iteration)
		assert.Less(t, rep.ContErr.MaxLocal, 1.e-6)
		for _, d := range fvc.Div(c.State.Phi) {
			assert.InDelta(t, 0, d, 1.e-6)
		}
		assert.GreaterOrEqual(t, rep.ContErr.Cumulative, cumulative)
		cumulative = rep.ContErr.Cumulative
		assert.Contains(t, rep.Residuals, "p")
		assert.Contains(t, rep.Residuals, "Urel")
	}
	var (
		inlet, _  = c.Mesh.FindPatch("inlet")
		outlet, _ = c.Mesh.FindPatch("outlet")
		in, out   float64
	)
	for _, f := range c.State.Phi.Patch(inlet) {
		in -= f
	}
	for _, f := range c.State.Phi.Patch(outlet) {
		out += f
	}
	assert.InDelta(t, 0.1, in, 1.e-12)
	assert.InDelta(t, in, out, 1.e-6)
}

func TestNonOrthogonalCorrectors(t *testing.T) {
	var (
		ctx = context.Background()
	)
	skewedChannel := func(nCorr int) *SRFSimple {
		cp := channelCase(5)
		cp.Mesh.Skew = 0.3
		cp.SIMPLE.NNonOrthogonalCorrectors = nCorr
		return newChannel(t, cp)
	}
	{ // The corrected flux stays conservative on a sheared mesh
		c := skewedChannel(2)
		require.Equal(t, 2, c.Control.NNonOrthCorr)
		for i := 0; i < 5; i++ {
			rep, err := c.Iterate(ctx)
			require.NoError(t, err)
			assert.Less(t, rep.ContErr.MaxLocal, 1.e-8)
			for _, d := range fvc.Div(c.State.Phi) {
				assert.InDelta(t, 0, d, 1.e-8)
			}
		}
	}
	{ // Only the final pass corrects the flux
		var (
			c1   = skewedChannel(1)
			c2   = skewedChannel(2)
			rAUf = ones(c2.Mesh.NFaces)
			phi0 = c2.State.Phi.Copy()
			p    = c2.State.P
		)
		require.NoError(t, c1.SolvePressure(ctx, rAUf))
		require.NoError(t, c2.SolvePressure(ctx, rAUf))
		pFinal := [][]float64{append([]float64(nil), p.Internal[0]...)}
		// the last equation of c2 is assembled from the pressure c1 ends with
		p.SetInternal(c1.State.P.Internal)
		p.CorrectBoundaryConditions()
		pEqn := fvm.Laplacian(rAUf, p, c2.Control.SnGrad)
		require.NotNil(t, pEqn.FaceFluxCorrection)
		p.SetInternal(pFinal)
		p.CorrectBoundaryConditions()
		expected := phi0.Sub(pEqn.ScalarFlux())
		assert.InDeltaSlice(t, expected.Values, c2.State.Phi.Values, 1.e-10)
		for _, d := range fvc.Div(c2.State.Phi) {
			assert.InDelta(t, 0, d, 1.e-8)
		}
	}
}

func TestContinuityAccumulator(t *testing.T) {
	c, inlet, outlet := duct(t)
	var (
		phi = c.State.Phi
		ce  ContinuityErrors
	)
	for i, v := range []float64{0.5, -2, 0.25, 3, 0, -1} {
		phi.Patch(inlet)[0] = -1
		phi.Internal()[0] = v
		phi.Patch(outlet)[0] = float64(i)
		next := ce.Update(phi)
		assert.GreaterOrEqual(t, next.Cumulative, ce.Cumulative)
		assert.InDelta(t, ce.Cumulative+math.Abs(next.Global), next.Cumulative, 1.e-14)
		assert.GreaterOrEqual(t, next.MaxLocal*2, next.SumLocal)
		ce = next
	}
	{ // Global is the net boundary outflow over the volume
		phi.Patch(inlet)[0], phi.Internal()[0], phi.Patch(outlet)[0] = -1, 7, 2
		ce = ContinuityErrors{}.Update(phi)
		assert.InDelta(t, 0.5, ce.Global, 1.e-14)
		assert.InDelta(t, 6, ce.MaxLocal, 1.e-14)
	}
}

func TestMomentumPredictor(t *testing.T) {
	var (
		ctx = context.Background()
	)
	{ // An explicit factor of one equals no relaxation
		cp1, cp2 := channelCase(1), channelCase(1)
		cp1.RelaxationFactors.Equations = map[string]float64{"Urel": 1}
		cp2.RelaxationFactors.Equations = nil
		c1, c2 := newChannel(t, cp1), newChannel(t, cp2)
		eq1, err := c1.MomentumPredictor(ctx)
		require.NoError(t, err)
		eq2, err := c2.MomentumPredictor(ctx)
		require.NoError(t, err)
		assert.Equal(t, eq2.A(), eq1.A())
		assert.Equal(t, eq2.Matrix.Diag, eq1.Matrix.Diag)
		assert.Equal(t, eq2.Source, eq1.Source)
		assert.Equal(t, c2.State.Urel.Internal, c1.State.Urel.Internal)
	}
	{ // A linear sink adds k to the diagonal of every cell after the sources constrain
		var (
			k = 2.
		)
		cp1, cp2 := channelCase(1), channelCase(1)
		cp1.RelaxationFactors.Equations = nil
		cp2.RelaxationFactors.Equations = nil
		cp2.Sources = []fvoptions.Spec{{Type: "linearSink", K: k}}
		c1, c2 := newChannel(t, cp1), newChannel(t, cp2)
		eq1, err := c1.MomentumPredictor(ctx)
		require.NoError(t, err)
		eq2, err := c2.MomentumPredictor(ctx)
		require.NoError(t, err)
		A1, A2 := eq1.A(), eq2.A()
		for cell := range A1 {
			assert.InDelta(t, k, A2[cell]-A1[cell], 1.e-10)
		}
	}
	{ // The predictor leaves Urel at its solved value and z untouched in 2D
		c := newChannel(t, channelCase(1))
		_, err := c.MomentumPredictor(ctx)
		require.NoError(t, err)
		U := c.State.Urel
		var sumX float64
		for k := range U.Internal[0] {
			sumX += U.Internal[0][k]
			assert.Equal(t, 0., U.Internal[2][k])
		}
		assert.Greater(t, sumX, 0.)
	}
}

func TestRotatingFrame(t *testing.T) {
	var (
		ctx   = context.Background()
		cp    = channelCase(2)
		rpm   = 10.
		omega = rpm * 2 * math.Pi / 60
	)
	cp.SRF.RPM = rpm
	c := newChannel(t, cp)
	for i := 0; i < 2; i++ {
		_, err := c.Iterate(ctx)
		require.NoError(t, err)
	}
	var (
		U    = c.State.Urel
		Uabs = c.Uabs()
	)
	for k, cc := range c.Mesh.C {
		assert.InDelta(t, U.Internal[0][k]-omega*cc.Y, Uabs[0][k], 1.e-12)
		assert.InDelta(t, U.Internal[1][k]+omega*cc.X, Uabs[1][k], 1.e-12)
		assert.False(t, math.IsNaN(U.Internal[1][k]))
	}
}

func TestRun(t *testing.T) {
	{ // Runs to the end iteration, writing at the interval and at the end
		var (
			cp     = channelCase(3)
			out    bytes.Buffer
			writes []int
			calls  int
		)
		cp.Control.WriteInterval = 2
		c := newChannel(t, cp)
		err := c.Run(context.Background(), &out, func(_ *SRFSimple, rep Report, write bool) error {
			calls++
			if write {
				writes = append(writes, rep.Iteration)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{2, 3}, writes)
		assert.Equal(t, 3, c.Iteration)
		text := out.String()
		assert.True(t, strings.Contains(text, "iter"))
		assert.True(t, strings.Contains(text, "Rate of execution"))
		assert.Equal(t, 3, strings.Count(text, "\n       "))
	}
	{ // Residual control stops early and forces a write
		var (
			cp     = channelCase(10)
			writes []int
		)
		cp.SIMPLE.ResidualControl = map[string]float64{"p": 1.e30}
		c := newChannel(t, cp)
		err := c.Run(context.Background(), &bytes.Buffer{}, func(_ *SRFSimple, rep Report, write bool) error {
			if write {
				writes = append(writes, rep.Iteration)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, c.Iteration)
		assert.Equal(t, []int{1}, writes)
	}
	{ // Cancellation is seen before the next iteration
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := newChannel(t, channelCase(5))
		err := c.Run(ctx, &bytes.Buffer{})
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 0, c.Iteration)
	}
	{ // Monitor errors stop the run
		boom := errors.New("boom")
		c := newChannel(t, channelCase(5))
		err := c.Run(context.Background(), &bytes.Buffer{}, func(*SRFSimple, Report, bool) error { return boom })
		assert.True(t, errors.Is(err, boom))
		assert.Equal(t, 1, c.Iteration)
	}
}
