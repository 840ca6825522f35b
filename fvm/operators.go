package fvm

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvc"
)

type DivScheme uint8

const (
	Upwind DivScheme = iota
	Linear
)

var DivSchemeNameMap = map[string]DivScheme{
	"upwind": Upwind,
	"linear": Linear,
}

func (ds DivScheme) String() string {
	return [...]string{"upwind", "linear"}[ds]
}

func NewDivScheme(label string) (ds DivScheme, err error) {
	var ok bool
	if ds, ok = DivSchemeNameMap[label]; !ok {
		err = fmt.Errorf("%w: div scheme %q", ErrUnknownScheme, label)
	}
	return
}

// Div is the implicit convection term div(phi, psi)
func Div(phi *fields.SurfaceField, psi *fields.VolField, scheme DivScheme) (eq *Equation) {
	var (
		m = psi.Mesh
	)
	eq = NewEquation(psi)
	for f := 0; f < m.NInternalFaces; f++ {
		var (
			F = phi.Values[f]
			w float64
		)
		switch scheme {
		case Upwind:
			if F >= 0 {
				w = 1
			}
		case Linear:
			w = m.Weights[f]
		}
		eq.Matrix.Lower[f] = -w * F
		eq.Matrix.Upper[f] = (1 - w) * F
		eq.Matrix.Diag[m.Owner[f]] += w * F
		eq.Matrix.Diag[m.Neighbour[f]] -= (1 - w) * F
	}
	for p, patch := range m.Patches {
		if patch.Empty() {
			continue
		}
		var (
			pf   = psi.Boundary[p]
			phiP = phi.Patch(p)
		)
		for c := range eq.Source {
			for i, F := range phiP {
				eq.InternalCoeffs[p][c][i] = F * pf.ValueInternalCoeffs(c, i)
				eq.BoundaryCoeffs[p][c][i] = -F * pf.ValueBoundaryCoeffs(c, i)
			}
		}
	}
	return
}

type SnGradScheme uint8

const (
	Corrected SnGradScheme = iota
	Uncorrected
)

var SnGradSchemeNameMap = map[string]SnGradScheme{
	"corrected":   Corrected,
	"uncorrected": Uncorrected,
}

func (sg SnGradScheme) String() string {
	return [...]string{"corrected", "uncorrected"}[sg]
}

func NewSnGradScheme(label string) (sg SnGradScheme, err error) {
	var ok bool
	if sg, ok = SnGradSchemeNameMap[label]; !ok {
		err = fmt.Errorf("%w: snGrad scheme %q", ErrUnknownScheme, label)
	}
	return
}

/*
Laplacian is the implicit diffusion term laplacian(gamma, psi) with gamma given on faces.

	The orthogonal part uses the non-orthogonal delta coefficients. With the corrected
	scheme the non-orthogonal part gamma|Sf| corrVec & interpolate(grad(psi)) is evaluated
	from the current psi, added to the source and kept as the face flux correction.
*/
func Laplacian(gammaf []float64, psi *fields.VolField, scheme SnGradScheme) (eq *Equation) {
	var (
		m = psi.Mesh
	)
	eq = NewEquation(psi)
	for f := 0; f < m.NInternalFaces; f++ {
		coeff := gammaf[f] * m.MagSf[f] * m.NonOrthDeltaCoeffs[f]
		eq.Matrix.Upper[f] = coeff
		eq.Matrix.Lower[f] = coeff
		eq.Matrix.Diag[m.Owner[f]] -= coeff
		eq.Matrix.Diag[m.Neighbour[f]] -= coeff
	}
	for p, patch := range m.Patches {
		if patch.Empty() {
			continue
		}
		pf := psi.Boundary[p]
		for c := range eq.Source {
			for i := 0; i < patch.Size; i++ {
				f := patch.Start + i
				gMagSf := gammaf[f] * m.MagSf[f]
				eq.InternalCoeffs[p][c][i] = gMagSf * pf.GradientInternalCoeffs(c, i)
				eq.BoundaryCoeffs[p][c][i] = -gMagSf * pf.GradientBoundaryCoeffs(c, i)
			}
		}
	}
	if scheme == Corrected && nonOrthogonal(psi) {
		var (
			gradPsi = fvc.Grad(psi)
			ffc     = zeros(psi.NComponents(), m.NFaces)
		)
		for c := range ffc {
			for f := 0; f < m.NInternalFaces; f++ {
				var (
					o, n = m.Owner[f], m.Neighbour[f]
					w    = m.Weights[f]
					gf   = r3.Add(r3.Scale(w, gradPsi[c][o]), r3.Scale(1-w, gradPsi[c][n]))
				)
				corr := gammaf[f] * m.MagSf[f] * r3.Dot(m.NonOrthCorrVecs[f], gf)
				ffc[c][f] = corr
				eq.Source[c][o] -= corr
				eq.Source[c][n] += corr
			}
		}
		eq.FaceFluxCorrection = ffc
	}
	return
}

func nonOrthogonal(psi *fields.VolField) bool {
	var (
		m = psi.Mesh
	)
	for f := 0; f < m.NInternalFaces; f++ {
		if r3.Norm2(m.NonOrthCorrVecs[f]) > 1.e-24 {
			return true
		}
	}
	return false
}

// Sp is the implicit source term coeff*psi
func Sp(coeff []float64, psi *fields.VolField) (eq *Equation) {
	eq = NewEquation(psi)
	for k, v := range psi.Mesh.V {
		eq.Matrix.Diag[k] += v * coeff[k]
	}
	return
}

// Su is the explicit source term su
func Su(su [][]float64, psi *fields.VolField) (eq *Equation) {
	eq = NewEquation(psi)
	eq.AddSu(su)
	return
}

// SuSp treats coeff*psi implicitly where coeff is positive and explicitly where it is negative
func SuSp(coeff []float64, psi *fields.VolField) (eq *Equation) {
	eq = NewEquation(psi)
	for k, v := range psi.Mesh.V {
		if coeff[k] > 0 {
			eq.Matrix.Diag[k] += v * coeff[k]
		} else {
			for c := range eq.Source {
				eq.Source[c][k] -= v * coeff[k] * psi.Internal[c][k]
			}
		}
	}
	return
}
