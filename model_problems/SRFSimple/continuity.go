package SRFSimple

import (
	"fmt"
	"math"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvc"
)

/*
ContinuityErrors reports the divergence of the face flux, the pseudo time step is one.

	SumLocal is the volume weighted average of |div(phi)|, MaxLocal its maximum over
	cells and Global the volume weighted average of div(phi). Cumulative accumulates
	|Global| over all outer iterations and never decreases.
*/
type ContinuityErrors struct {
	SumLocal   float64
	MaxLocal   float64
	Global     float64
	Cumulative float64
}

// Update returns the errors of phi folded into the accumulator of ce
func (ce ContinuityErrors) Update(phi *fields.SurfaceField) (R ContinuityErrors) {
	var (
		V      = phi.Mesh.V
		div    = fvc.Div(phi)
		volume float64
	)
	for k, d := range div {
		R.SumLocal += math.Abs(d) * V[k]
		R.Global += d * V[k]
		R.MaxLocal = math.Max(R.MaxLocal, math.Abs(d))
		volume += V[k]
	}
	R.SumLocal /= volume
	R.Global /= volume
	R.Cumulative = ce.Cumulative + math.Abs(R.Global)
	return
}

func (ce ContinuityErrors) String() string {
	return fmt.Sprintf("time step continuity errors : sum local = %g, global = %g, cumulative = %g",
		ce.SumLocal, ce.Global, ce.Cumulative)
}
