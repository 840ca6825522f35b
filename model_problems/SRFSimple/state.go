package SRFSimple

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/InputParameters"
	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvc"
	"github.com/notargets/srfsimple/mesh"
)

// State is the solution carried between outer iterations, mutated in place
type State struct {
	P    *fields.VolField
	Urel *fields.VolField
	Phi  *fields.SurfaceField
}

// NewState builds p and Urel from their boundary definitions and the initial flux
// interpolate(Urel) & Sf, with the Urel patches first brought into the rotating frame
func NewState(m *mesh.Mesh, pSpec, USpec InputParameters.FieldSpec, frameVelocity func(r3.Vec) r3.Vec) (st *State, err error) {
	st = &State{}
	if st.P, err = fields.NewVolField("p", m, pSpec.Internal, pSpec.Boundary); err != nil {
		return nil, err
	}
	if st.Urel, err = fields.NewVolField("Urel", m, USpec.Internal, USpec.Boundary); err != nil {
		return nil, err
	}
	if err = st.Urel.UpdateCoeffs(&fields.PatchContext{U: st.Urel, FrameVelocity: frameVelocity}); err != nil {
		return nil, err
	}
	st.Phi = fvc.Flux(st.Urel)
	return
}
