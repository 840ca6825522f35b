package fields

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/mesh"
)

/*
VolField is a cell centred scalar (one component) or vector (three components) field.

	Internal is stored component major, Internal[cmpt][cell]. Boundary holds one
	patch field per mesh patch, in mesh patch order.
*/
type VolField struct {
	Name     string
	Mesh     *mesh.Mesh
	Internal [][]float64
	Boundary []PatchField
	prevIter [][]float64
}

// NewVolField builds a uniform field with boundary conditions taken from bcs by patch name.
// Patches of mesh type empty always carry an empty patch field.
func NewVolField(name string, m *mesh.Mesh, initial []float64, bcs BoundarySpec) (vf *VolField, err error) {
	var (
		nComp = len(initial)
	)
	if nComp != 1 && nComp != 3 {
		err = fmt.Errorf("%w: field %q has %d components", ErrBadPatchDict, name, nComp)
		return
	}
	vf = &VolField{
		Name:     name,
		Mesh:     m,
		Internal: uniformArray(initial, m.NCells),
		Boundary: make([]PatchField, len(m.Patches)),
	}
	for p, patch := range m.Patches {
		info := PatchInfo{Mesh: m, Index: p, NComp: nComp}
		if patch.Empty() {
			vf.Boundary[p] = NewEmpty(info)
			continue
		}
		dict, present := bcs[patch.Name]
		if !present {
			err = fmt.Errorf("%w: %q in field %q", ErrMissingPatch, patch.Name, name)
			return nil, err
		}
		if vf.Boundary[p], err = NewPatchField(info, dict); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
	}
	vf.CorrectBoundaryConditions()
	return
}

func (vf *VolField) NComponents() int { return len(vf.Internal) }

func (vf *VolField) Component(cmpt int) []float64 { return vf.Internal[cmpt] }

func (vf *VolField) Vec(cell int) r3.Vec {
	return r3.Vec{X: vf.Internal[0][cell], Y: vf.Internal[1][cell], Z: vf.Internal[2][cell]}
}

func (vf *VolField) SetVec(cell int, v r3.Vec) {
	vf.Internal[0][cell], vf.Internal[1][cell], vf.Internal[2][cell] = v.X, v.Y, v.Z
}

// SetInternal copies values into the internal field, boundaries are not re-evaluated
func (vf *VolField) SetInternal(values [][]float64) {
	if len(values) != len(vf.Internal) {
		panic(fmt.Errorf("field %q: %d components assigned to %d", vf.Name, len(values), len(vf.Internal)))
	}
	for c := range values {
		copy(vf.Internal[c], values[c])
	}
}

func (vf *VolField) StorePrevIter() {
	vf.prevIter = copyArray(vf.Internal)
}

func (vf *VolField) PrevIter() [][]float64 { return vf.prevIter }

// Relax blends the field with the stored previous iterate, x = x_old + alpha (x - x_old)
func (vf *VolField) Relax(alpha float64) (err error) {
	if alpha <= 0 || alpha > 1 {
		return fmt.Errorf("%w: %g for field %q", ErrBadRelaxation, alpha, vf.Name)
	}
	if vf.prevIter == nil {
		return fmt.Errorf("%w: %q", ErrNoPrevIter, vf.Name)
	}
	if alpha == 1 {
		return
	}
	for c := range vf.Internal {
		for k, xOld := range vf.prevIter[c] {
			vf.Internal[c][k] = xOld + alpha*(vf.Internal[c][k]-xOld)
		}
	}
	vf.CorrectBoundaryConditions()
	return
}

// CorrectBoundaryConditions evaluates every patch from the internal values
func (vf *VolField) CorrectBoundaryConditions() {
	for _, pf := range vf.Boundary {
		pf.Evaluate(vf.Internal)
	}
}

// UpdateCoeffs refreshes patch values that depend on other fields
func (vf *VolField) UpdateCoeffs(ctx *PatchContext) (err error) {
	for _, pf := range vf.Boundary {
		if err = pf.UpdateCoeffs(ctx); err != nil {
			return fmt.Errorf("field %q: %w", vf.Name, err)
		}
	}
	return
}

// NeedReference is true when no patch fixes the value, the level of the field is then undetermined
func (vf *VolField) NeedReference() bool {
	for _, pf := range vf.Boundary {
		if pf.FixesValue() {
			return false
		}
	}
	return true
}

func (vf *VolField) Copy(name string) (R *VolField) {
	R = &VolField{
		Name:     name,
		Mesh:     vf.Mesh,
		Internal: copyArray(vf.Internal),
		Boundary: make([]PatchField, len(vf.Boundary)),
	}
	for p, pf := range vf.Boundary {
		R.Boundary[p] = pf.Clone()
	}
	if vf.prevIter != nil {
		R.prevIter = copyArray(vf.prevIter)
	}
	return
}

// NewVolFieldFrom wraps values as an internal field with zero gradient patches,
// used for derived quantities such as 1/A
func NewVolFieldFrom(name string, m *mesh.Mesh, values [][]float64) (vf *VolField) {
	vf = &VolField{
		Name:     name,
		Mesh:     m,
		Internal: copyArray(values),
		Boundary: make([]PatchField, len(m.Patches)),
	}
	for p, patch := range m.Patches {
		info := PatchInfo{Mesh: m, Index: p, NComp: len(values)}
		if patch.Empty() {
			vf.Boundary[p] = NewEmpty(info)
		} else {
			vf.Boundary[p] = NewZeroGradient(info)
		}
	}
	vf.CorrectBoundaryConditions()
	return
}
