package fields

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/mesh"
)

// Dict is a boundary condition dictionary as decoded from the case file
type Dict map[string]interface{}

// BoundarySpec maps patch names to boundary condition dictionaries
type BoundarySpec map[string]Dict

// PatchContext carries the state flux dependent boundary conditions read in UpdateCoeffs
type PatchContext struct {
	Phi           *SurfaceField
	U             *VolField
	FrameVelocity func(x r3.Vec) r3.Vec
}

// PatchInfo locates a patch field on the mesh
type PatchInfo struct {
	Mesh  *mesh.Mesh
	Index int
	NComp int
}

func (pi PatchInfo) Patch() mesh.Patch { return pi.Mesh.Patches[pi.Index] }

/*
PatchField is the boundary condition on one mesh patch.

	The coefficient functions follow the finite volume convention: the face value
	is ValueInternalCoeffs*x_P + ValueBoundaryCoeffs and the face normal gradient is
	GradientInternalCoeffs*x_P + GradientBoundaryCoeffs, per component and patch face.
*/
type PatchField interface {
	TypeName() string
	Info() PatchInfo
	FixesValue() bool
	Value() [][]float64
	Evaluate(internal [][]float64)
	UpdateCoeffs(ctx *PatchContext) error
	ValueInternalCoeffs(cmpt, face int) float64
	ValueBoundaryCoeffs(cmpt, face int) float64
	GradientInternalCoeffs(cmpt, face int) float64
	GradientBoundaryCoeffs(cmpt, face int) float64
	Clone() PatchField
}

type PatchFactory func(info PatchInfo, dict Dict) (PatchField, error)

var patchTypes = map[string]PatchFactory{}

func init() {
	RegisterPatchType("fixedValue", newFixedValueFromDict)
	RegisterPatchType("noSlip", newNoSlipFromDict)
	RegisterPatchType("zeroGradient", func(info PatchInfo, _ Dict) (PatchField, error) {
		return NewZeroGradient(info), nil
	})
	RegisterPatchType("fixedGradient", newFixedGradientFromDict)
	RegisterPatchType("empty", func(info PatchInfo, _ Dict) (PatchField, error) {
		return NewEmpty(info), nil
	})
	RegisterPatchType("totalPressure", newTotalPressureFromDict)
}

// RegisterPatchType makes a patch field type available by name, re-registration replaces
func RegisterPatchType(name string, factory PatchFactory) {
	patchTypes[name] = factory
}

func PatchTypes() (names []string) {
	for name := range patchTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// NewPatchField builds the patch field named by dict["type"]
func NewPatchField(info PatchInfo, dict Dict) (pf PatchField, err error) {
	var (
		typeName string
		ok       bool
		factory  PatchFactory
	)
	if typeName, ok = dict["type"].(string); !ok {
		err = fmt.Errorf("%w: patch %q has no type", ErrBadPatchDict, info.Patch().Name)
		return
	}
	if factory, ok = patchTypes[typeName]; !ok {
		err = fmt.Errorf("%w: %q on patch %q", ErrUnknownPatchType, typeName, info.Patch().Name)
		return
	}
	return factory(info, dict)
}

// UniformValue reads a scalar or a component list from dict[key]
func UniformValue(dict Dict, key string, nComp int) (val []float64, err error) {
	raw, present := dict[key]
	if !present {
		err = fmt.Errorf("%w: missing %q", ErrBadPatchDict, key)
		return
	}
	switch v := raw.(type) {
	case float64:
		if nComp != 1 {
			err = fmt.Errorf("%w: %q needs %d components", ErrBadPatchDict, key, nComp)
			return
		}
		val = []float64{v}
	case int:
		val = []float64{float64(v)}
	case []float64:
		val = append(val, v...)
	case []interface{}:
		for _, e := range v {
			f, ok := e.(float64)
			if !ok {
				err = fmt.Errorf("%w: %q has a non numeric component", ErrBadPatchDict, key)
				return
			}
			val = append(val, f)
		}
	default:
		err = fmt.Errorf("%w: %q has type %T", ErrBadPatchDict, key, raw)
		return
	}
	if len(val) != nComp {
		err = fmt.Errorf("%w: %q has %d components, need %d", ErrBadPatchDict, key, len(val), nComp)
	}
	return
}

func uniformArray(val []float64, size int) (R [][]float64) {
	R = make([][]float64, len(val))
	for c := range val {
		R[c] = make([]float64, size)
		for i := range R[c] {
			R[c][i] = val[c]
		}
	}
	return
}

func copyArray(A [][]float64) (R [][]float64) {
	R = make([][]float64, len(A))
	for c := range A {
		R[c] = append([]float64(nil), A[c]...)
	}
	return
}

type patchBase struct {
	info   PatchInfo
	cells  []int
	delta  []float64
	values [][]float64
}

func newPatchBase(info PatchInfo) (pb patchBase) {
	var (
		patch = info.Patch()
	)
	pb = patchBase{
		info:   info,
		cells:  info.Mesh.PatchFaceCells(info.Index),
		delta:  info.Mesh.NonOrthDeltaCoeffs[patch.Start : patch.Start+patch.Size],
		values: uniformArray(make([]float64, info.NComp), patch.Size),
	}
	return
}

func (pb *patchBase) Info() PatchInfo                    { return pb.info }
func (pb *patchBase) Value() [][]float64                 { return pb.values }
func (pb *patchBase) UpdateCoeffs(_ *PatchContext) error { return nil }

// FaceCells returns the cell adjacent to each patch face
func (pb *patchBase) FaceCells() []int { return pb.cells }

func (pb *patchBase) clone() patchBase {
	R := *pb
	R.values = copyArray(pb.values)
	return R
}

func (pb *patchBase) extrapolate(internal [][]float64) {
	for c := range pb.values {
		for i, cell := range pb.cells {
			pb.values[c][i] = internal[c][cell]
		}
	}
}

// FixedValue imposes the face values, it is also the base of flux dependent value conditions
type FixedValue struct {
	patchBase
}

func NewFixedValue(info PatchInfo, val []float64) *FixedValue {
	fv := &FixedValue{patchBase: newPatchBase(info)}
	fv.values = uniformArray(val, info.Patch().Size)
	return fv
}

func newFixedValueFromDict(info PatchInfo, dict Dict) (PatchField, error) {
	val, err := UniformValue(dict, "value", info.NComp)
	if err != nil {
		return nil, fmt.Errorf("patch %q: %w", info.Patch().Name, err)
	}
	return NewFixedValue(info, val), nil
}

func newNoSlipFromDict(info PatchInfo, _ Dict) (PatchField, error) {
	return &NoSlip{*NewFixedValue(info, make([]float64, info.NComp))}, nil
}

func (fv *FixedValue) TypeName() string                        { return "fixedValue" }
func (fv *FixedValue) FixesValue() bool                        { return true }
func (fv *FixedValue) Evaluate(_ [][]float64)                  {}
func (fv *FixedValue) ValueInternalCoeffs(_, _ int) float64    { return 0 }
func (fv *FixedValue) ValueBoundaryCoeffs(c, i int) float64    { return fv.values[c][i] }
func (fv *FixedValue) GradientInternalCoeffs(_, i int) float64 { return -fv.delta[i] }
func (fv *FixedValue) GradientBoundaryCoeffs(c, i int) float64 { return fv.delta[i] * fv.values[c][i] }
func (fv *FixedValue) Clone() PatchField                       { return &FixedValue{fv.clone()} }

// SetValue overwrites the face values with a uniform value
func (fv *FixedValue) SetValue(val []float64) {
	for c := range fv.values {
		for i := range fv.values[c] {
			fv.values[c][i] = val[c]
		}
	}
}

// SetFaceValue overwrites the value on one face
func (fv *FixedValue) SetFaceValue(i int, val []float64) {
	for c := range fv.values {
		fv.values[c][i] = val[c]
	}
}

type NoSlip struct {
	FixedValue
}

func (ns *NoSlip) TypeName() string  { return "noSlip" }
func (ns *NoSlip) Clone() PatchField { return &NoSlip{FixedValue{ns.clone()}} }

type ZeroGradient struct {
	patchBase
}

func NewZeroGradient(info PatchInfo) *ZeroGradient {
	return &ZeroGradient{newPatchBase(info)}
}

func (zg *ZeroGradient) TypeName() string                        { return "zeroGradient" }
func (zg *ZeroGradient) FixesValue() bool                        { return false }
func (zg *ZeroGradient) Evaluate(internal [][]float64)           { zg.extrapolate(internal) }
func (zg *ZeroGradient) ValueInternalCoeffs(_, _ int) float64    { return 1 }
func (zg *ZeroGradient) ValueBoundaryCoeffs(_, _ int) float64    { return 0 }
func (zg *ZeroGradient) GradientInternalCoeffs(_, _ int) float64 { return 0 }
func (zg *ZeroGradient) GradientBoundaryCoeffs(_, _ int) float64 { return 0 }
func (zg *ZeroGradient) Clone() PatchField                       { return &ZeroGradient{zg.clone()} }

// FixedGradient imposes the face normal gradient, the face value is x_P + g/delta
type FixedGradient struct {
	patchBase
	gradient []float64
}

func NewFixedGradient(info PatchInfo, gradient []float64) *FixedGradient {
	return &FixedGradient{
		patchBase: newPatchBase(info),
		gradient:  append([]float64(nil), gradient...),
	}
}

func newFixedGradientFromDict(info PatchInfo, dict Dict) (PatchField, error) {
	g, err := UniformValue(dict, "gradient", info.NComp)
	if err != nil {
		return nil, fmt.Errorf("patch %q: %w", info.Patch().Name, err)
	}
	return NewFixedGradient(info, g), nil
}

func (fg *FixedGradient) TypeName() string { return "fixedGradient" }
func (fg *FixedGradient) FixesValue() bool { return false }
func (fg *FixedGradient) Evaluate(internal [][]float64) {
	for c := range fg.values {
		for i, cell := range fg.cells {
			fg.values[c][i] = internal[c][cell] + fg.gradient[c]/fg.delta[i]
		}
	}
}
func (fg *FixedGradient) ValueInternalCoeffs(_, _ int) float64    { return 1 }
func (fg *FixedGradient) ValueBoundaryCoeffs(c, i int) float64    { return fg.gradient[c] / fg.delta[i] }
func (fg *FixedGradient) GradientInternalCoeffs(_, _ int) float64 { return 0 }
func (fg *FixedGradient) GradientBoundaryCoeffs(c, _ int) float64 { return fg.gradient[c] }
func (fg *FixedGradient) Clone() PatchField {
	return &FixedGradient{fg.clone(), append([]float64(nil), fg.gradient...)}
}

// Empty marks a collapsed direction, operators skip empty patches
type Empty struct {
	patchBase
}

func NewEmpty(info PatchInfo) *Empty { return &Empty{newPatchBase(info)} }

func (e *Empty) TypeName() string                        { return "empty" }
func (e *Empty) FixesValue() bool                        { return false }
func (e *Empty) Evaluate(internal [][]float64)           { e.extrapolate(internal) }
func (e *Empty) ValueInternalCoeffs(_, _ int) float64    { return 0 }
func (e *Empty) ValueBoundaryCoeffs(_, _ int) float64    { return 0 }
func (e *Empty) GradientInternalCoeffs(_, _ int) float64 { return 0 }
func (e *Empty) GradientBoundaryCoeffs(_, _ int) float64 { return 0 }
func (e *Empty) Clone() PatchField                       { return &Empty{e.clone()} }

/*
TotalPressure fixes the static pressure from a total pressure p0.

	On inflow faces (phi < 0) the dynamic head 0.5|U|^2 of the patch velocity is
	subtracted, on outflow faces p = p0.
*/
type TotalPressure struct {
	FixedValue
	p0 float64
}

func NewTotalPressure(info PatchInfo, p0 float64) *TotalPressure {
	return &TotalPressure{
		FixedValue: *NewFixedValue(info, []float64{p0}),
		p0:         p0,
	}
}

func newTotalPressureFromDict(info PatchInfo, dict Dict) (PatchField, error) {
	if info.NComp != 1 {
		return nil, fmt.Errorf("%w: totalPressure on vector field, patch %q",
			ErrBadPatchDict, info.Patch().Name)
	}
	p0, err := UniformValue(dict, "p0", 1)
	if err != nil {
		return nil, fmt.Errorf("patch %q: %w", info.Patch().Name, err)
	}
	return NewTotalPressure(info, p0[0]), nil
}

func (tp *TotalPressure) TypeName() string { return "totalPressure" }
func (tp *TotalPressure) Clone() PatchField {
	return &TotalPressure{FixedValue{tp.clone()}, tp.p0}
}

func (tp *TotalPressure) UpdateCoeffs(ctx *PatchContext) error {
	if ctx == nil || ctx.Phi == nil || ctx.U == nil {
		return nil
	}
	var (
		phiP = ctx.Phi.Patch(tp.info.Index)
		Up   = ctx.U.Boundary[tp.info.Index].Value()
	)
	for i := range tp.values[0] {
		if phiP[i] >= 0 {
			tp.values[0][i] = tp.p0
			continue
		}
		var magSqrU float64
		for c := range Up {
			magSqrU += Up[c][i] * Up[c][i]
		}
		tp.values[0][i] = tp.p0 - 0.5*magSqrU
	}
	return nil
}
