package fvm

import (
	"fmt"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/linsolve"
	"github.com/notargets/srfsimple/mesh"
)

/*
Equation is an assembled finite volume system for the field Psi.

	Per component c the system is (Diag + boundary internal coefficients) x = Source[c]
	plus the boundary coefficients, with the off diagonal coefficients of Matrix shared
	by all components. InternalCoeffs and BoundaryCoeffs are indexed [patch][cmpt][face].
	FaceFluxCorrection, when present, is the explicit part of the face flux, [cmpt][face].
*/
type Equation struct {
	Psi                *fields.VolField
	Mesh               *mesh.Mesh
	Matrix             *linsolve.LDUMatrix
	Source             [][]float64
	InternalCoeffs     [][][]float64
	BoundaryCoeffs     [][][]float64
	FaceFluxCorrection [][]float64
}

func NewEquation(psi *fields.VolField) (eq *Equation) {
	var (
		m     = psi.Mesh
		nComp = psi.NComponents()
	)
	eq = &Equation{
		Psi:            psi,
		Mesh:           m,
		Matrix:         linsolve.NewLDUMatrix(m.NCells, m.Owner[:m.NInternalFaces], m.Neighbour),
		Source:         zeros(nComp, m.NCells),
		InternalCoeffs: make([][][]float64, len(m.Patches)),
		BoundaryCoeffs: make([][][]float64, len(m.Patches)),
	}
	for p, patch := range m.Patches {
		eq.InternalCoeffs[p] = zeros(nComp, patch.Size)
		eq.BoundaryCoeffs[p] = zeros(nComp, patch.Size)
	}
	return
}

func zeros(nComp, n int) (R [][]float64) {
	R = make([][]float64, nComp)
	for c := range R {
		R[c] = make([]float64, n)
	}
	return
}

func (eq *Equation) NComponents() int { return len(eq.Source) }

func (eq *Equation) Clone() (R *Equation) {
	R = &Equation{
		Psi:            eq.Psi,
		Mesh:           eq.Mesh,
		Matrix:         eq.Matrix.Clone(),
		Source:         copyArray(eq.Source),
		InternalCoeffs: make([][][]float64, len(eq.InternalCoeffs)),
		BoundaryCoeffs: make([][][]float64, len(eq.BoundaryCoeffs)),
	}
	for p := range eq.InternalCoeffs {
		R.InternalCoeffs[p] = copyArray(eq.InternalCoeffs[p])
		R.BoundaryCoeffs[p] = copyArray(eq.BoundaryCoeffs[p])
	}
	if eq.FaceFluxCorrection != nil {
		R.FaceFluxCorrection = copyArray(eq.FaceFluxCorrection)
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

func (eq *Equation) checkCompatible(other *Equation) {
	if eq.Psi != other.Psi {
		panic(fmt.Errorf("incompatible equations for fields %q and %q", eq.Psi.Name, other.Psi.Name))
	}
}

// Add accumulates other into eq
func (eq *Equation) Add(other *Equation) *Equation {
	eq.checkCompatible(other)
	addTo(eq.Matrix.Diag, other.Matrix.Diag, 1)
	addTo(eq.Matrix.Lower, other.Matrix.Lower, 1)
	addTo(eq.Matrix.Upper, other.Matrix.Upper, 1)
	for c := range eq.Source {
		addTo(eq.Source[c], other.Source[c], 1)
	}
	for p := range eq.InternalCoeffs {
		for c := range eq.InternalCoeffs[p] {
			addTo(eq.InternalCoeffs[p][c], other.InternalCoeffs[p][c], 1)
			addTo(eq.BoundaryCoeffs[p][c], other.BoundaryCoeffs[p][c], 1)
		}
	}
	eq.addFaceFluxCorrection(other.FaceFluxCorrection, 1)
	return eq
}

// Sub subtracts other from eq
func (eq *Equation) Sub(other *Equation) *Equation {
	return eq.Add(other.Clone().Negate())
}

func (eq *Equation) Negate() *Equation {
	eq.Matrix.Scale(-1)
	for c := range eq.Source {
		scale(eq.Source[c], -1)
	}
	for p := range eq.InternalCoeffs {
		for c := range eq.InternalCoeffs[p] {
			scale(eq.InternalCoeffs[p][c], -1)
			scale(eq.BoundaryCoeffs[p][c], -1)
		}
	}
	for c := range eq.FaceFluxCorrection {
		scale(eq.FaceFluxCorrection[c], -1)
	}
	return eq
}

// AddSu adds an explicit volumetric term on the operator side, eq + su
func (eq *Equation) AddSu(su [][]float64) *Equation {
	for c := range eq.Source {
		for k, v := range eq.Mesh.V {
			eq.Source[c][k] -= v * su[c][k]
		}
	}
	return eq
}

// EqualField sets the equation equal to an explicit volumetric term, eq == su
func (eq *Equation) EqualField(su [][]float64) *Equation {
	for c := range eq.Source {
		for k, v := range eq.Mesh.V {
			eq.Source[c][k] += v * su[c][k]
		}
	}
	return eq
}

func (eq *Equation) addFaceFluxCorrection(ffc [][]float64, s float64) {
	if ffc == nil {
		return
	}
	if eq.FaceFluxCorrection == nil {
		eq.FaceFluxCorrection = zeros(len(ffc), len(ffc[0]))
	}
	for c := range ffc {
		addTo(eq.FaceFluxCorrection[c], ffc[c], s)
	}
}

func addTo(dst, src []float64, s float64) {
	for i, v := range src {
		dst[i] += s * v
	}
}

func scale(dst []float64, s float64) {
	for i := range dst {
		dst[i] *= s
	}
}

// boundaryDiag returns the diagonal with the boundary internal coefficients of component c added
func (eq *Equation) boundaryDiag(c int) (D []float64) {
	D = append([]float64(nil), eq.Matrix.Diag...)
	for p, patch := range eq.Mesh.Patches {
		for i := 0; i < patch.Size; i++ {
			D[eq.Mesh.Owner[patch.Start+i]] += eq.InternalCoeffs[p][c][i]
		}
	}
	return
}

// boundarySource returns the source of component c with the boundary coefficients added
func (eq *Equation) boundarySource(c int) (b []float64) {
	b = append([]float64(nil), eq.Source[c]...)
	for p, patch := range eq.Mesh.Patches {
		for i := 0; i < patch.Size; i++ {
			b[eq.Mesh.Owner[patch.Start+i]] += eq.BoundaryCoeffs[p][c][i]
		}
	}
	return
}

// cmptAvBoundaryDiag is the component average of the boundary internal coefficients, per cell
func (eq *Equation) cmptAvBoundaryDiag() (D []float64) {
	var (
		nComp = float64(eq.NComponents())
	)
	D = make([]float64, eq.Mesh.NCells)
	for p, patch := range eq.Mesh.Patches {
		for i := 0; i < patch.Size; i++ {
			var sum float64
			for c := range eq.InternalCoeffs[p] {
				sum += eq.InternalCoeffs[p][c][i]
			}
			D[eq.Mesh.Owner[patch.Start+i]] += sum / nComp
		}
	}
	return
}
