package srf

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
)

/*
Velocity is the SRFVelocity boundary condition for the relative velocity.

	With relative set the inlet value is imposed as given. Otherwise the inlet
	value is an absolute velocity and the frame velocity at the face centres is
	subtracted, refreshed in UpdateCoeffs from the context frame velocity.
*/
type Velocity struct {
	fields.FixedValue
	inletValue r3.Vec
	relative   bool
}

func NewVelocity(info fields.PatchInfo, inletValue r3.Vec, relative bool) *Velocity {
	return &Velocity{
		FixedValue: *fields.NewFixedValue(info, []float64{inletValue.X, inletValue.Y, inletValue.Z}),
		inletValue: inletValue,
		relative:   relative,
	}
}

func newVelocityFromDict(info fields.PatchInfo, dict fields.Dict) (fields.PatchField, error) {
	if info.NComp != 3 {
		return nil, fmt.Errorf("%w: SRFVelocity on a scalar field, patch %q",
			fields.ErrBadPatchDict, info.Patch().Name)
	}
	val, err := fields.UniformValue(dict, "inletValue", 3)
	if err != nil {
		return nil, fmt.Errorf("patch %q: %w", info.Patch().Name, err)
	}
	relative, _ := dict["relative"].(bool)
	return NewVelocity(info, r3.Vec{X: val[0], Y: val[1], Z: val[2]}, relative), nil
}

func (v *Velocity) TypeName() string { return "SRFVelocity" }

func (v *Velocity) Clone() fields.PatchField {
	return &Velocity{
		FixedValue: *v.FixedValue.Clone().(*fields.FixedValue),
		inletValue: v.inletValue,
		relative:   v.relative,
	}
}

func (v *Velocity) UpdateCoeffs(ctx *fields.PatchContext) error {
	if v.relative {
		v.SetValue([]float64{v.inletValue.X, v.inletValue.Y, v.inletValue.Z})
		return nil
	}
	if ctx == nil || ctx.FrameVelocity == nil {
		return fmt.Errorf("%w: patch %q", ErrNoFrame, v.Info().Patch().Name)
	}
	var (
		info  = v.Info()
		patch = info.Patch()
	)
	for i := 0; i < patch.Size; i++ {
		u := r3.Sub(v.inletValue, ctx.FrameVelocity(info.Mesh.Cf[patch.Start+i]))
		v.SetFaceValue(i, []float64{u.X, u.Y, u.Z})
	}
	return nil
}
