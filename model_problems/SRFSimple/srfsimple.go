package SRFSimple

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

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

// Models are the collaborators selected by name in the case file
type Models struct {
	Turbulence turbulence.Model
	SRF        srf.Model
	Sources    *fvoptions.List
}

type SRFSimple struct {
	Title string
	RunID uuid.UUID
	Mesh  *mesh.Mesh
	State *State
	Models
	Control   SimpleControl
	ContErr   ContinuityErrors
	Iteration int
	residuals Residuals
	log       *zap.Logger
}

// Residuals holds the solver performance per field for one outer iteration. The initial
// residual is the one of the first solve of the field, vector components are combined.
type Residuals map[string]linsolve.Performance

func (r Residuals) add(name string, perf []linsolve.Performance) {
	if len(perf) == 0 {
		return
	}
	combined := perf[0]
	for _, p := range perf[1:] {
		combined = combined.Max(p)
	}
	combined.Field = name
	if prev, present := r[name]; present {
		combined.InitialResidual = prev.InitialResidual
		combined.NIterations += prev.NIterations
	}
	r[name] = combined
}

// Report is the outcome of one outer iteration
type Report struct {
	Iteration int
	Residuals Residuals
	ContErr   ContinuityErrors
}

func New(m *mesh.Mesh, st *State, models Models, ctrl SimpleControl, log *zap.Logger) (c *SRFSimple, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if models.Sources == nil {
		if models.Sources, err = fvoptions.New(m, nil, log); err != nil {
			return
		}
	}
	if err = ctrl.Validate(st.P); err != nil {
		return
	}
	c = &SRFSimple{
		RunID:   uuid.New(),
		Mesh:    m,
		State:   st,
		Models:  models,
		Control: ctrl,
	}
	c.log = log.With(zap.String("run", c.RunID.String()))
	return
}

// NewSRFSimple builds the mesh, fields and models of a case, failing on any configuration error
func NewSRFSimple(cp *InputParameters.CaseParameters, log *zap.Logger) (c *SRFSimple, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err = cp.Validate(); err != nil {
		return
	}
	var (
		spec   mesh.BoxSpec
		m      *mesh.Mesh
		models Models
		st     *State
		ctrl   SimpleControl
	)
	if spec, err = cp.Mesh.BoxSpec(); err != nil {
		return
	}
	if m, err = mesh.NewBoxMesh(spec); err != nil {
		return
	}
	q := m.CheckMesh()
	log.Info("mesh", zap.Int("cells", m.NCells), zap.Int("faces", m.NFaces),
		zap.Float64("volume", q.TotalVolume), zap.Float64("maxNonOrthogonality", q.MaxNonOrthogonality))
	if models.SRF, err = srf.New(m, cp.SRF); err != nil {
		return
	}
	if st, err = NewState(m, cp.Fields["p"], cp.Fields["Urel"], models.SRF.Velocity); err != nil {
		return
	}
	if models.Turbulence, err = turbulence.New(m, cp.Turbulence, log); err != nil {
		return
	}
	if models.Sources, err = fvoptions.New(m, cp.Sources, log); err != nil {
		return
	}
	if ctrl, err = NewSimpleControl(m, st.P, cp); err != nil {
		return
	}
	if c, err = New(m, st, models, ctrl, log); err != nil {
		return
	}
	c.Title = cp.Title
	return
}

func (c *SRFSimple) patchContext() *fields.PatchContext {
	return &fields.PatchContext{Phi: c.State.Phi, U: c.State.Urel, FrameVelocity: c.SRF.Velocity}
}

func (c *SRFSimple) report(name string, perf []linsolve.Performance) {
	for _, p := range perf {
		c.log.Debug("solve", zap.String("solver", p.Solver), zap.String("field", p.Field),
			zap.Float64("initialResidual", p.InitialResidual), zap.Float64("finalResidual", p.FinalResidual),
			zap.Int("iterations", p.NIterations))
		if !p.Converged {
			c.log.Warn("linear solve not converged", zap.String("field", p.Field),
				zap.Float64("finalResidual", p.FinalResidual), zap.Int("iterations", p.NIterations))
		}
	}
	if c.residuals != nil {
		c.residuals.add(name, perf)
	}
}

/*
MomentumPredictor assembles and solves the relative velocity equation

	div(phi, Urel) + divDevReff(Urel) + Su_SRF == sources(Urel)

relaxed and constrained by the sources, against the lagged pressure gradient.
The returned equation excludes the pressure gradient, its A and H feed the
pressure corrector.
*/
func (c *SRFSimple) MomentumPredictor(ctx context.Context) (UEqn *fvm.Equation, err error) {
	var (
		st = c.State
		U  = st.Urel
	)
	if err = U.UpdateCoeffs(c.patchContext()); err != nil {
		return
	}
	UEqn = fvm.Div(st.Phi, U, c.Control.DivScheme)
	UEqn.Add(c.Turbulence.DivDevReff(U))
	UEqn.Add(fvm.Su(c.SRF.Su(U), U))
	UEqn.Sub(c.Sources.Contribution(U))
	if err = UEqn.Relax(c.Control.EquationRelaxationFactor(U.Name)); err != nil {
		return nil, err
	}
	c.Sources.Constrain(UEqn)

	gradP := fvc.GradVector(st.P)
	for cmpt := range gradP {
		for k := range gradP[cmpt] {
			gradP[cmpt][k] = -gradP[cmpt][k]
		}
	}
	values, perf, err := UEqn.Clone().EqualField(gradP).Solve(ctx, c.Control.solver(U.Name))
	c.report(U.Name, perf)
	if err != nil {
		return nil, err
	}
	U.SetInternal(values)
	U.CorrectBoundaryConditions()
	return
}

/*
PressureCorrector derives the conservative flux and the pressure from the momentum
equation and corrects the velocity.

	HbyA is interpolated to the faces and balanced by AdjustPhi, then the pressure
	equation laplacian(1/A, p) == div(phi) is solved NNonOrthCorr+1 times. Only the
	final pass corrects the flux. p is relaxed against the value stored at the start
	of the outer iteration before it corrects Urel.
*/
func (c *SRFSimple) PressureCorrector(ctx context.Context, UEqn *fvm.Equation) (err error) {
	var (
		st        = c.State
		p, U, phi = st.P, st.Urel, st.Phi
	)
	if err = p.UpdateCoeffs(c.patchContext()); err != nil {
		return
	}
	A := UEqn.A()
	rAU := make([]float64, len(A))
	for k, a := range A {
		rAU[k] = 1. / a
	}
	HbyA := UEqn.H()
	for cmpt := range HbyA {
		for k := range HbyA[cmpt] {
			HbyA[cmpt][k] *= rAU[k]
		}
	}
	U.SetInternal(HbyA)
	U.CorrectBoundaryConditions()
	phi.Assign(fvc.Flux(U))
	if _, err = fvc.AdjustPhi(phi, U, p); err != nil {
		return
	}

	rAUf := fvc.InterpolateScalar(fields.NewVolFieldFrom("rAUrel", c.Mesh, [][]float64{rAU}))
	if err = c.SolvePressure(ctx, rAUf); err != nil {
		return
	}
	c.ContErr = c.ContErr.Update(phi)
	c.log.Debug("continuity", zap.Float64("sumLocal", c.ContErr.SumLocal),
		zap.Float64("global", c.ContErr.Global), zap.Float64("cumulative", c.ContErr.Cumulative))

	if err = p.Relax(c.Control.FieldRelaxationFactor(p.Name)); err != nil {
		return
	}
	gradP := fvc.GradVector(p)
	for cmpt := range U.Internal {
		for k := range rAU {
			U.Internal[cmpt][k] -= rAU[k] * gradP[cmpt][k]
		}
	}
	U.CorrectBoundaryConditions()
	c.Sources.Correct(U)
	return
}

// SolvePressure runs the non-orthogonal corrector loop for the face diffusivity rAUf
func (c *SRFSimple) SolvePressure(ctx context.Context, rAUf []float64) (err error) {
	var (
		p, phi = c.State.P, c.State.Phi
	)
	for corr := 0; corr <= c.Control.NNonOrthCorr; corr++ {
		pEqn := fvm.Laplacian(rAUf, p, c.Control.SnGrad)
		pEqn.EqualField([][]float64{fvc.Div(phi)})
		pEqn.SetReference(c.Control.PRefCell, c.Control.PRefValue)
		values, perf, err := pEqn.Solve(ctx, c.Control.solver(p.Name))
		c.report(p.Name, perf)
		if err != nil {
			return fmt.Errorf("pressure corrector %d: %w", corr, err)
		}
		p.SetInternal(values)
		p.CorrectBoundaryConditions()
		if corr == c.Control.NNonOrthCorr {
			phi.Sub(pEqn.ScalarFlux())
		}
	}
	return
}

// Iterate runs one outer iteration: momentum predictor, pressure corrector, then the
// turbulence model and the sources are advanced
func (c *SRFSimple) Iterate(ctx context.Context) (rep Report, err error) {
	var (
		st = c.State
	)
	c.Iteration++
	c.residuals = Residuals{}
	st.P.StorePrevIter()
	UEqn, err := c.MomentumPredictor(ctx)
	if err != nil {
		return
	}
	if err = c.PressureCorrector(ctx, UEqn); err != nil {
		return
	}
	if err = c.Turbulence.Correct(ctx, st.Urel, st.Phi); err != nil {
		return
	}
	c.Sources.Advance()
	rep = Report{
		Iteration: c.Iteration,
		Residuals: c.residuals,
		ContErr:   c.ContErr,
	}
	return
}

// Uabs is the absolute velocity Urel + U_SRF at the cell centres
func (c *SRFSimple) Uabs() [][]float64 {
	return srf.Absolute(c.SRF, c.State.Urel)
}
