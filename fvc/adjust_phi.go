package fvc

import (
	"fmt"
	"math"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/utils"
)

/*
AdjustPhi scales the outflow on patches where U is not fixed so that the boundary
fluxes balance, when p is determined only up to a constant.

	Returns true when every boundary flux is negligible, i.e. the domain is closed.
	Nothing is changed when p has a fixed value patch.
*/
func AdjustPhi(phi *fields.SurfaceField, U, p *fields.VolField) (closed bool, err error) {
	if !p.NeedReference() {
		return
	}
	var (
		m                                       = phi.Mesh
		massIn, fixedMassOut, adjustableMassOut float64
	)
	for pi, patch := range m.Patches {
		if patch.Empty() {
			continue
		}
		fixed := U.Boundary[pi].FixesValue()
		for _, flux := range phi.Patch(pi) {
			switch {
			case flux < 0:
				massIn -= flux
			case fixed:
				fixedMassOut += flux
			default:
				adjustableMassOut += flux
			}
		}
	}
	var (
		totalFlux = utils.VSMALL
		massCorr  = 1.
	)
	for _, flux := range phi.Values {
		totalFlux += math.Abs(flux)
	}
	magAdjustableMassOut := math.Abs(adjustableMassOut)
	if magAdjustableMassOut > utils.VSMALL && magAdjustableMassOut/totalFlux > utils.SMALL {
		massCorr = (massIn - fixedMassOut) / adjustableMassOut
	} else if math.Abs(fixedMassOut-massIn)/totalFlux > 1.e-8 {
		err = fmt.Errorf("%w: mass in %g, fixed mass out %g, adjustable mass out %g",
			ErrContinuityNotAdjustable, massIn, fixedMassOut, adjustableMassOut)
		return
	}
	for pi, patch := range m.Patches {
		if patch.Empty() || U.Boundary[pi].FixesValue() {
			continue
		}
		phip := phi.Patch(pi)
		for i, flux := range phip {
			if flux > 0 {
				phip[i] = flux * massCorr
			}
		}
	}
	closed = math.Abs(massIn)/totalFlux < utils.SMALL &&
		math.Abs(fixedMassOut)/totalFlux < utils.SMALL &&
		math.Abs(adjustableMassOut)/totalFlux < utils.SMALL
	return
}
