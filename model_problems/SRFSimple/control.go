package SRFSimple

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/InputParameters"
	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvm"
	"github.com/notargets/srfsimple/linsolve"
	"github.com/notargets/srfsimple/mesh"
)

/*
SimpleControl holds the outer loop settings.

	PRefCell is -1 when p has a fixed value patch and no reference is needed.
	Relaxation factors missing from the maps default to 1, which leaves the
	equation or field untouched.
*/
type SimpleControl struct {
	EndTime            int
	WriteInterval      int
	NNonOrthCorr       int
	PRefCell           int
	PRefValue          float64
	ResidualControl    map[string]float64
	FieldRelaxation    map[string]float64
	EquationRelaxation map[string]float64
	Solvers            map[string]linsolve.Settings
	DivScheme          fvm.DivScheme
	SnGrad             fvm.SnGradScheme
}

func NewSimpleControl(m *mesh.Mesh, p *fields.VolField, cp *InputParameters.CaseParameters) (sc SimpleControl, err error) {
	sc = SimpleControl{
		EndTime:            cp.Control.EndTime,
		WriteInterval:      cp.Control.WriteInterval,
		NNonOrthCorr:       cp.SIMPLE.NNonOrthogonalCorrectors,
		ResidualControl:    cp.SIMPLE.ResidualControl,
		FieldRelaxation:    cp.RelaxationFactors.Fields,
		EquationRelaxation: cp.RelaxationFactors.Equations,
		Solvers:            cp.Solvers,
	}
	div, snGrad := cp.Schemes.Div, cp.Schemes.SnGrad
	if div == "" {
		div = "upwind"
	}
	if snGrad == "" {
		snGrad = "corrected"
	}
	if sc.DivScheme, err = fvm.NewDivScheme(div); err != nil {
		return
	}
	if sc.SnGrad, err = fvm.NewSnGradScheme(snGrad); err != nil {
		return
	}
	if sc.PRefCell, sc.PRefValue, err = SetRefCell(m, p, cp.SIMPLE); err != nil {
		return
	}
	err = sc.Validate(p)
	return
}

/*
SetRefCell selects the cell and value that fix the level of p.

	Only fields without a fixed value patch need one. The cell is given directly
	by pRefCell or as the cell nearest to pRefPoint, and pRefValue is required.
*/
func SetRefCell(m *mesh.Mesh, p *fields.VolField, sp InputParameters.SIMPLEParameters) (cell int, value float64, err error) {
	if !p.NeedReference() {
		return -1, 0, nil
	}
	switch {
	case sp.PRefCell != nil:
		cell = *sp.PRefCell
		if cell < 0 || cell >= m.NCells {
			return -1, 0, fmt.Errorf("%w: pRefCell %d out of range [0, %d)", ErrNoReference, cell, m.NCells)
		}
	case sp.PRefPoint != nil:
		pt := *sp.PRefPoint
		if cell = m.FindCell(r3.Vec{X: pt[0], Y: pt[1], Z: pt[2]}); cell < 0 {
			return -1, 0, fmt.Errorf("%w: no cell found for pRefPoint %v", ErrNoReference, pt)
		}
	default:
		return -1, 0, fmt.Errorf("%w: supply either pRefCell or pRefPoint", ErrNoReference)
	}
	if sp.PRefValue == nil {
		return -1, 0, fmt.Errorf("%w: missing pRefValue", ErrNoReference)
	}
	value = *sp.PRefValue
	return
}

// Validate fails on settings that would only show up during the first iteration
func (sc SimpleControl) Validate(p *fields.VolField) (err error) {
	check := func(kind string, factors map[string]float64) error {
		for name, alpha := range factors {
			if alpha <= 0 || alpha > 1 {
				return fmt.Errorf("%w: %s %q = %g", ErrBadRelaxation, kind, name, alpha)
			}
		}
		return nil
	}
	if err = check("field", sc.FieldRelaxation); err != nil {
		return
	}
	if err = check("equation", sc.EquationRelaxation); err != nil {
		return
	}
	for _, name := range []string{"p", "Urel"} {
		s, present := sc.Solvers[name]
		if !present {
			return fmt.Errorf("%w: %q", ErrMissingSolver, name)
		}
		if err = s.Validate(); err != nil {
			return fmt.Errorf("solver for %q: %w", name, err)
		}
	}
	if p.NeedReference() && (sc.PRefCell < 0 || sc.PRefCell >= p.Mesh.NCells) {
		return fmt.Errorf("%w: reference cell %d", ErrNoReference, sc.PRefCell)
	}
	if sc.NNonOrthCorr < 0 {
		return fmt.Errorf("SRFSimple: negative number of non-orthogonal correctors %d", sc.NNonOrthCorr)
	}
	return
}

func factor(factors map[string]float64, name string) float64 {
	if alpha, present := factors[name]; present {
		return alpha
	}
	return 1
}

func (sc SimpleControl) FieldRelaxationFactor(name string) float64 {
	return factor(sc.FieldRelaxation, name)
}

func (sc SimpleControl) EquationRelaxationFactor(name string) float64 {
	return factor(sc.EquationRelaxation, name)
}

func (sc SimpleControl) solver(name string) linsolve.Settings {
	return sc.Solvers[name]
}

// Converged is true when every field under residual control was solved this iteration
// with an initial residual below its threshold
func (sc SimpleControl) Converged(res Residuals) bool {
	if len(sc.ResidualControl) == 0 {
		return false
	}
	for name, tol := range sc.ResidualControl {
		perf, present := res[name]
		if !present || perf.InitialResidual >= tol {
			return false
		}
	}
	return true
}

func (sc SimpleControl) IsWriteTime(iteration int) bool {
	return iteration >= sc.EndTime || (sc.WriteInterval > 0 && iteration%sc.WriteInterval == 0)
}
