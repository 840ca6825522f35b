// Package srf models a single rotating reference frame: the Coriolis and centrifugal
// momentum sources acting on the relative velocity and the frame velocity used to
// reconstruct absolute velocities.
package srf

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/mesh"
)

type Model interface {
	Name() string
	Omega() r3.Vec
	// Su is the momentum source per unit volume, 2 Omega x Urel + Omega x (Omega x (C - origin))
	Su(Urel *fields.VolField) [][]float64
	// U is the frame velocity at the cell centres
	U() [][]float64
	Velocity(x r3.Vec) r3.Vec
}

type Properties struct {
	Model  string     `json:"model"`
	Origin [3]float64 `json:"origin"`
	Axis   [3]float64 `json:"axis"`
	RPM    float64    `json:"rpm"`
}

type Factory func(m *mesh.Mesh, props Properties) (Model, error)

var models = map[string]Factory{}

func init() {
	Register("rpm", newRPM)
	fields.RegisterPatchType("SRFVelocity", newVelocityFromDict)
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

func New(m *mesh.Mesh, props Properties) (Model, error) {
	factory, present := models[props.Model]
	if !present {
		return nil, fmt.Errorf("%w: %q, available %v", ErrUnknownModel, props.Model, Models())
	}
	return factory(m, props)
}

/*
frame holds the geometry common to all frame models.

	The frame velocity at x is Omega x (r - axis (axis & r)) with r = x - origin,
	the axial component of r does not contribute.
*/
type frame struct {
	m      *mesh.Mesh
	origin r3.Vec
	axis   r3.Vec
	omega  r3.Vec
}

func newFrame(m *mesh.Mesh, props Properties) (f frame, err error) {
	var (
		axis = r3.Vec{X: props.Axis[0], Y: props.Axis[1], Z: props.Axis[2]}
	)
	if r3.Norm(axis) == 0 {
		err = fmt.Errorf("%w: zero rotation axis", ErrBadProperties)
		return
	}
	f = frame{
		m:      m,
		origin: r3.Vec{X: props.Origin[0], Y: props.Origin[1], Z: props.Origin[2]},
		axis:   r3.Unit(axis),
	}
	return
}

func (f *frame) Omega() r3.Vec { return f.omega }

func (f *frame) Velocity(x r3.Vec) r3.Vec {
	r := r3.Sub(x, f.origin)
	r = r3.Sub(r, r3.Scale(r3.Dot(f.axis, r), f.axis))
	return r3.Cross(f.omega, r)
}

func (f *frame) U() (R [][]float64) {
	R = vectorArray(f.m.NCells)
	for k, c := range f.m.C {
		setVec(R, k, f.Velocity(c))
	}
	return
}

func (f *frame) Su(Urel *fields.VolField) (R [][]float64) {
	R = vectorArray(f.m.NCells)
	for k, c := range f.m.C {
		var (
			coriolis    = r3.Scale(2, r3.Cross(f.omega, Urel.Vec(k)))
			centrifugal = r3.Cross(f.omega, r3.Cross(f.omega, r3.Sub(c, f.origin)))
		)
		setVec(R, k, r3.Add(coriolis, centrifugal))
	}
	return
}

func vectorArray(n int) (R [][]float64) {
	R = make([][]float64, 3)
	for c := range R {
		R[c] = make([]float64, n)
	}
	return
}

func setVec(R [][]float64, k int, v r3.Vec) {
	R[0][k], R[1][k], R[2][k] = v.X, v.Y, v.Z
}

// RPM rotates at a constant speed given in revolutions per minute
type RPM struct {
	frame
	rpm float64
}

func newRPM(m *mesh.Mesh, props Properties) (Model, error) {
	f, err := newFrame(m, props)
	if err != nil {
		return nil, err
	}
	f.omega = r3.Scale(props.RPM*2*math.Pi/60, f.axis)
	return &RPM{frame: f, rpm: props.RPM}, nil
}

func (r *RPM) Name() string { return "rpm" }

// Absolute returns Urel + U(), the velocity in the inertial frame
func Absolute(model Model, Urel *fields.VolField) (R [][]float64) {
	var (
		Uframe = model.U()
	)
	R = make([][]float64, 3)
	for c := range R {
		R[c] = make([]float64, len(Uframe[c]))
		for k := range R[c] {
			R[c][k] = Urel.Internal[c][k] + Uframe[c][k]
		}
	}
	return
}
