package fields

import (
	"fmt"

	"github.com/notargets/srfsimple/mesh"
)

// SurfaceField holds one scalar per mesh face, internal faces first then each patch in order
type SurfaceField struct {
	Name   string
	Mesh   *mesh.Mesh
	Values []float64
}

func NewSurfaceField(name string, m *mesh.Mesh) *SurfaceField {
	return &SurfaceField{
		Name:   name,
		Mesh:   m,
		Values: make([]float64, m.NFaces),
	}
}

func (sf *SurfaceField) Internal() []float64 {
	return sf.Values[:sf.Mesh.NInternalFaces]
}

// Patch returns the slice of values on patch p, it aliases the field storage
func (sf *SurfaceField) Patch(p int) []float64 {
	var (
		patch = sf.Mesh.Patches[p]
	)
	return sf.Values[patch.Start : patch.Start+patch.Size]
}

func (sf *SurfaceField) Copy() (R *SurfaceField) {
	R = NewSurfaceField(sf.Name, sf.Mesh)
	copy(R.Values, sf.Values)
	return
}

// Sub subtracts other in place
func (sf *SurfaceField) Sub(other *SurfaceField) *SurfaceField {
	if len(other.Values) != len(sf.Values) {
		panic(fmt.Errorf("surface field %q: length mismatch %d != %d",
			sf.Name, len(other.Values), len(sf.Values)))
	}
	for f := range sf.Values {
		sf.Values[f] -= other.Values[f]
	}
	return sf
}

func (sf *SurfaceField) Assign(other *SurfaceField) {
	copy(sf.Values, other.Values)
}
