// Package turbulence provides the incompressible turbulence closures selected by name:
// each supplies the effective stress divergence for the momentum equation and is
// corrected once per outer iteration.
package turbulence

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvc"
	"github.com/notargets/srfsimple/fvm"
	"github.com/notargets/srfsimple/linsolve"
	"github.com/notargets/srfsimple/mesh"
)

type Model interface {
	Name() string
	// DivDevReff is the momentum contribution -div(nuEff dev(grad(U) + T(grad(U))))
	DivDevReff(U *fields.VolField) *fvm.Equation
	Correct(ctx context.Context, U *fields.VolField, phi *fields.SurfaceField) error
	NuEff() []float64
}

// FieldSpec is the initial value and boundary conditions of a transported model field
type FieldSpec struct {
	Internal []float64           `json:"internalField"`
	Boundary fields.BoundarySpec `json:"boundaryField"`
}

type Properties struct {
	Model      string               `json:"model"`
	Nu         float64              `json:"nu"`
	Coeffs     map[string]float64   `json:"coeffs,omitempty"`
	Fields     map[string]FieldSpec `json:"fields,omitempty"`
	Solver     linsolve.Settings    `json:"solver"`
	Relaxation float64              `json:"relaxation,omitempty"`
	DivScheme  string               `json:"divScheme,omitempty"`
	SnGrad     string               `json:"snGrad,omitempty"`
}

type Factory func(m *mesh.Mesh, props Properties, log *zap.Logger) (Model, error)

var models = map[string]Factory{}

func init() {
	Register("laminar", newLaminar)
	Register("kEpsilon", newKEpsilon)
}

func Register(name string, factory Factory) {
	models[name] = factory
}

func Models() (names []string) {
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func New(m *mesh.Mesh, props Properties, log *zap.Logger) (Model, error) {
	factory, present := models[props.Model]
	if !present {
		return nil, fmt.Errorf("%w: %q, available %v", ErrUnknownModel, props.Model, Models())
	}
	if props.Nu <= 0 {
		return nil, fmt.Errorf("%w: nu = %g", ErrBadProperties, props.Nu)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return factory(m, props, log)
}

func (p Properties) coeff(name string, def float64) float64 {
	if v, present := p.Coeffs[name]; present {
		return v
	}
	return def
}

func (p Properties) schemes() (div fvm.DivScheme, snGrad fvm.SnGradScheme, err error) {
	var (
		divName, snGradName = p.DivScheme, p.SnGrad
	)
	if divName == "" {
		divName = "upwind"
	}
	if snGradName == "" {
		snGradName = "corrected"
	}
	if div, err = fvm.NewDivScheme(divName); err != nil {
		return
	}
	snGrad, err = fvm.NewSnGradScheme(snGradName)
	return
}

// divDevReff assembles -laplacian(nuEff, U) - div(nuEff dev(T(grad(U))))
func divDevReff(nuEff []float64, U *fields.VolField, snGrad fvm.SnGradScheme) (eq *fvm.Equation) {
	var (
		nuEffField = fields.NewVolFieldFrom("nuEff", U.Mesh, [][]float64{nuEff})
		nuEfff     = fvc.InterpolateScalar(nuEffField)
		divDevT    = fvc.DivDevTranspose(nuEff, U)
	)
	for c := range divDevT {
		for k := range divDevT[c] {
			divDevT[c][k] = -divDevT[c][k]
		}
	}
	eq = fvm.Laplacian(nuEfff, U, snGrad).Negate()
	eq.AddSu(divDevT)
	return
}

type laminar struct {
	nuEff  []float64
	snGrad fvm.SnGradScheme
}

func newLaminar(m *mesh.Mesh, props Properties, _ *zap.Logger) (Model, error) {
	_, snGrad, err := props.schemes()
	if err != nil {
		return nil, err
	}
	nuEff := make([]float64, m.NCells)
	for k := range nuEff {
		nuEff[k] = props.Nu
	}
	return &laminar{nuEff: nuEff, snGrad: snGrad}, nil
}

func (l *laminar) Name() string { return "laminar" }

func (l *laminar) DivDevReff(U *fields.VolField) *fvm.Equation {
	return divDevReff(l.nuEff, U, l.snGrad)
}

func (l *laminar) Correct(_ context.Context, _ *fields.VolField, _ *fields.SurfaceField) error {
	return nil
}

func (l *laminar) NuEff() []float64 { return l.nuEff }
