// Package fvoptions implements the list of user configured momentum sources applied
// to selected cells of the mesh.
package fvoptions

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvm"
	"github.com/notargets/srfsimple/mesh"
)

/*
Source is one momentum source.

	AddSup adds the source to an equation that is placed on the right hand side of
	the momentum equation. Constrain is applied to the assembled, relaxed momentum
	equation, Correct after each velocity correction and Advance once per outer
	iteration.
*/
type Source interface {
	Name() string
	Cells() []int
	AddSup(eq *fvm.Equation)
	Constrain(eq *fvm.Equation)
	Correct(U *fields.VolField)
	Advance(log *zap.Logger)
}

type Selection struct {
	Mode string     `json:"mode"`
	Min  [3]float64 `json:"min,omitempty"`
	Max  [3]float64 `json:"max,omitempty"`
}

// Spec configures one source, only the coefficients of its type are read
type Spec struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Selection Selection  `json:"selection"`
	K         float64    `json:"k,omitempty"`
	U         [3]float64 `json:"U,omitempty"`
	Ubar      [3]float64 `json:"Ubar,omitempty"`
	GradP0    float64    `json:"gradP0,omitempty"`
}

type Factory func(m *mesh.Mesh, spec Spec, cells []int) (Source, error)

var sourceTypes = map[string]Factory{}

func init() {
	Register("linearSink", newLinearSink)
	Register("fixedVelocity", newFixedVelocity)
	Register("meanVelocityForce", newMeanVelocityForce)
}

func Register(name string, factory Factory) {
	sourceTypes[name] = factory
}

func Types() (names []string) {
	for name := range sourceTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func selectCells(m *mesh.Mesh, sel Selection) (cells []int, err error) {
	switch sel.Mode {
	case "all", "":
		cells = make([]int, m.NCells)
		for k := range cells {
			cells[k] = k
		}
	case "box":
		cells = m.CellsInBox(toVec(sel.Min), toVec(sel.Max))
	default:
		return nil, fmt.Errorf("%w: mode %q", ErrBadSelection, sel.Mode)
	}
	if len(cells) == 0 {
		err = fmt.Errorf("%w: no cells in %v", ErrBadSelection, sel)
	}
	return
}

func toVec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }

// List applies its sources in order
type List struct {
	sources []Source
	log     *zap.Logger
}

func New(m *mesh.Mesh, specs []Spec, log *zap.Logger) (l *List, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	l = &List{log: log}
	for i, spec := range specs {
		factory, present := sourceTypes[spec.Type]
		if !present {
			return nil, fmt.Errorf("%w: %q, available %v", ErrUnknownSource, spec.Type, Types())
		}
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("%s%d", spec.Type, i)
		}
		cells, err := selectCells(m, spec.Selection)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.Name, err)
		}
		src, err := factory(m, spec, cells)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.Name, err)
		}
		log.Info("source", zap.String("name", spec.Name), zap.String("type", spec.Type),
			zap.Int("cells", len(cells)))
		l.sources = append(l.sources, src)
	}
	return
}

func (l *List) Len() int            { return len(l.sources) }
func (l *List) Source(i int) Source { return l.sources[i] }

// Contribution returns the sources as an equation for U, to be placed on the right hand side
func (l *List) Contribution(U *fields.VolField) (eq *fvm.Equation) {
	eq = fvm.NewEquation(U)
	for _, src := range l.sources {
		src.AddSup(eq)
	}
	return
}

func (l *List) Constrain(eq *fvm.Equation) {
	for _, src := range l.sources {
		src.Constrain(eq)
	}
}

func (l *List) Correct(U *fields.VolField) {
	for _, src := range l.sources {
		src.Correct(U)
	}
}

func (l *List) Advance() {
	for _, src := range l.sources {
		src.Advance(l.log)
	}
}

type cellSet struct {
	name  string
	cells []int
}

func (cs cellSet) Name() string               { return cs.name }
func (cs cellSet) Cells() []int               { return cs.cells }
func (cs cellSet) AddSup(_ *fvm.Equation)     {}
func (cs cellSet) Constrain(_ *fvm.Equation)  {}
func (cs cellSet) Correct(_ *fields.VolField) {}
func (cs cellSet) Advance(_ *zap.Logger)      {}
