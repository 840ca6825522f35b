package fvoptions

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvm"
	"github.com/notargets/srfsimple/mesh"
)

// LinearSink is the implicit momentum sink -K U
type LinearSink struct {
	cellSet
	K float64
}

func newLinearSink(_ *mesh.Mesh, spec Spec, cells []int) (Source, error) {
	if spec.K < 0 {
		return nil, fmt.Errorf("%w: negative sink coefficient %g", ErrBadSpec, spec.K)
	}
	return &LinearSink{cellSet{spec.Name, cells}, spec.K}, nil
}

func (ls *LinearSink) AddSup(eq *fvm.Equation) {
	var (
		V = eq.Mesh.V
	)
	for _, k := range ls.cells {
		eq.Matrix.Diag[k] -= ls.K * V[k]
	}
}

// FixedVelocity holds U at a prescribed value in the selected cells
type FixedVelocity struct {
	cellSet
	U r3.Vec
}

func newFixedVelocity(_ *mesh.Mesh, spec Spec, cells []int) (Source, error) {
	return &FixedVelocity{cellSet{spec.Name, cells}, toVec(spec.U)}, nil
}

func (fv *FixedVelocity) values() (R [][]float64) {
	R = make([][]float64, 3)
	for c, v := range []float64{fv.U.X, fv.U.Y, fv.U.Z} {
		R[c] = make([]float64, len(fv.cells))
		for i := range R[c] {
			R[c][i] = v
		}
	}
	return
}

func (fv *FixedVelocity) Constrain(eq *fvm.Equation) {
	eq.SetValues(fv.cells, fv.values())
}

func (fv *FixedVelocity) Correct(U *fields.VolField) {
	for _, k := range fv.cells {
		U.SetVec(k, fv.U)
	}
	U.CorrectBoundaryConditions()
}

/*
MeanVelocityForce drives the volume averaged velocity along Ubar towards |Ubar|
with a uniform explicit pressure gradient source.

	Constrain keeps 1/A of the momentum equation. Correct computes the gradient
	increment that makes the cell set average equal |Ubar|, applies the matching
	velocity increment rA*dGradP along the flow direction and accumulates the gradient.
*/
type MeanVelocityForce struct {
	cellSet
	V        []float64
	flowDir  r3.Vec
	magUbar  float64
	GradP    float64
	rA       []float64
	lastStep float64
}

func newMeanVelocityForce(m *mesh.Mesh, spec Spec, cells []int) (Source, error) {
	var (
		Ubar = toVec(spec.Ubar)
	)
	if r3.Norm(Ubar) == 0 {
		return nil, fmt.Errorf("%w: zero Ubar", ErrBadSpec)
	}
	return &MeanVelocityForce{
		cellSet: cellSet{spec.Name, cells},
		V:       m.V,
		flowDir: r3.Unit(Ubar),
		magUbar: r3.Norm(Ubar),
		GradP:   spec.GradP0,
	}, nil
}

func (mv *MeanVelocityForce) AddSup(eq *fvm.Equation) {
	var (
		f = r3.Scale(mv.GradP, mv.flowDir)
	)
	for _, k := range mv.cells {
		v := eq.Mesh.V[k]
		eq.Source[0][k] -= v * f.X
		eq.Source[1][k] -= v * f.Y
		eq.Source[2][k] -= v * f.Z
	}
}

func (mv *MeanVelocityForce) Constrain(eq *fvm.Equation) {
	A := eq.A()
	mv.rA = make([]float64, len(A))
	for k, a := range A {
		mv.rA[k] = 1. / a
	}
}

// MagUbarAverage is the volume average of the velocity component along Ubar over the cell set
func (mv *MeanVelocityForce) MagUbarAverage(U *fields.VolField) float64 {
	var (
		sum, vol float64
	)
	for _, k := range mv.cells {
		sum += r3.Dot(mv.flowDir, U.Vec(k)) * mv.V[k]
		vol += mv.V[k]
	}
	return sum / vol
}

func (mv *MeanVelocityForce) Correct(U *fields.VolField) {
	if mv.rA == nil {
		return
	}
	var (
		rAave, vol float64
	)
	for _, k := range mv.cells {
		rAave += mv.rA[k] * mv.V[k]
		vol += mv.V[k]
	}
	rAave /= vol
	gradPplus := (mv.magUbar - mv.MagUbarAverage(U)) / rAave
	for _, k := range mv.cells {
		U.SetVec(k, r3.Add(U.Vec(k), r3.Scale(mv.rA[k]*gradPplus, mv.flowDir)))
	}
	U.CorrectBoundaryConditions()
	mv.GradP += gradPplus
	mv.lastStep = gradPplus
}

func (mv *MeanVelocityForce) Advance(log *zap.Logger) {
	log.Info("pressure gradient", zap.String("source", mv.name),
		zap.Float64("gradP", mv.GradP), zap.Float64("increment", mv.lastStep))
}
