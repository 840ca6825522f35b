// Package fvc holds the explicit finite volume calculus: interpolation, face fluxes,
// Gauss divergence and gradient.
package fvc

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/mesh"
)

// Interpolate returns face values [cmpt][face], linear on internal faces and the patch
// values on boundary faces, zero on empty patches
func Interpolate(vf *fields.VolField) (R [][]float64) {
	var (
		m = vf.Mesh
	)
	R = make([][]float64, vf.NComponents())
	for c := range R {
		var (
			x  = vf.Internal[c]
			xf = make([]float64, m.NFaces)
		)
		for f := 0; f < m.NInternalFaces; f++ {
			w := m.Weights[f]
			xf[f] = w*x[m.Owner[f]] + (1-w)*x[m.Neighbour[f]]
		}
		for p, patch := range m.Patches {
			if patch.Empty() {
				continue
			}
			copy(xf[patch.Start:patch.Start+patch.Size], vf.Boundary[p].Value()[c])
		}
		R[c] = xf
	}
	return
}

// InterpolateScalar interpolates the first component
func InterpolateScalar(vf *fields.VolField) []float64 {
	return Interpolate(vf)[0]
}

// Flux returns the face flux interpolate(U) & Sf
func Flux(U *fields.VolField) (phi *fields.SurfaceField) {
	var (
		m  = U.Mesh
		Uf = Interpolate(U)
	)
	phi = fields.NewSurfaceField("phi", m)
	for f := range phi.Values {
		sf := m.Sf[f]
		phi.Values[f] = Uf[0][f]*sf.X + Uf[1][f]*sf.Y + Uf[2][f]*sf.Z
	}
	for _, patch := range m.Patches {
		if patch.Empty() {
			for f := patch.Start; f < patch.Start+patch.Size; f++ {
				phi.Values[f] = 0
			}
		}
	}
	return
}

// SurfaceSum returns the sum over each cell of its face values, outward positive, empty patches excluded
func SurfaceSum(m *mesh.Mesh, faceValues []float64) (R []float64) {
	R = make([]float64, m.NCells)
	for f := 0; f < m.NInternalFaces; f++ {
		R[m.Owner[f]] += faceValues[f]
		R[m.Neighbour[f]] -= faceValues[f]
	}
	for _, patch := range m.Patches {
		if patch.Empty() {
			continue
		}
		for f := patch.Start; f < patch.Start+patch.Size; f++ {
			R[m.Owner[f]] += faceValues[f]
		}
	}
	return
}

// Div returns the cell divergence of a face flux, sum(phi)/V
func Div(phi *fields.SurfaceField) (R []float64) {
	R = SurfaceSum(phi.Mesh, phi.Values)
	for k, v := range phi.Mesh.V {
		R[k] /= v
	}
	return
}

// Grad is the Gauss linear gradient, R[cmpt][cell] is the gradient of component cmpt
func Grad(vf *fields.VolField) (R [][]r3.Vec) {
	var (
		m  = vf.Mesh
		xf = Interpolate(vf)
	)
	R = make([][]r3.Vec, vf.NComponents())
	for c := range R {
		g := make([]r3.Vec, m.NCells)
		for f := 0; f < m.NInternalFaces; f++ {
			s := r3.Scale(xf[c][f], m.Sf[f])
			g[m.Owner[f]] = r3.Add(g[m.Owner[f]], s)
			g[m.Neighbour[f]] = r3.Sub(g[m.Neighbour[f]], s)
		}
		for _, patch := range m.Patches {
			if patch.Empty() {
				continue
			}
			for f := patch.Start; f < patch.Start+patch.Size; f++ {
				o := m.Owner[f]
				g[o] = r3.Add(g[o], r3.Scale(xf[c][f], m.Sf[f]))
			}
		}
		for k := range g {
			g[k] = r3.Scale(1./m.V[k], g[k])
		}
		R[c] = g
	}
	return
}

// GradVector flattens the gradient of a scalar field into a vector field layout [3][cell]
func GradVector(vf *fields.VolField) (R [][]float64) {
	var (
		g = Grad(vf)[0]
	)
	R = make([][]float64, 3)
	for d := range R {
		R[d] = make([]float64, len(g))
	}
	for k, v := range g {
		R[0][k], R[1][k], R[2][k] = v.X, v.Y, v.Z
	}
	return
}

/*
DivDevTranspose returns div(nu dev(T(grad(U)))) per unit volume, [cmpt][cell].

	With gradU[i][j] = dU_j/dx_i the tensor T(gradU) - tr(gradU)/3 I is formed in
	each cell, scaled by nu, interpolated linearly to faces and integrated with Sf.
*/
func DivDevTranspose(nu []float64, U *fields.VolField) (R [][]float64) {
	var (
		m     = U.Mesh
		gradU = Grad(U)
		tau   = make([][3][3]float64, m.NCells)
	)
	for k := range tau {
		var (
			g  [3][3]float64 // g[i][j] = dU_j/dx_i
			tr float64
		)
		for j := 0; j < 3; j++ {
			gj := gradU[j][k]
			g[0][j], g[1][j], g[2][j] = gj.X, gj.Y, gj.Z
		}
		tr = g[0][0] + g[1][1] + g[2][2]
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				tau[k][i][j] = nu[k] * g[j][i]
			}
			tau[k][i][i] -= nu[k] * tr / 3.
		}
	}
	faceDot := func(sf r3.Vec, t [3][3]float64) (d [3]float64) {
		s := [3]float64{sf.X, sf.Y, sf.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				d[j] += s[i] * t[i][j]
			}
		}
		return
	}
	R = make([][]float64, 3)
	for c := range R {
		R[c] = make([]float64, m.NCells)
	}
	for f := 0; f < m.NInternalFaces; f++ {
		var (
			o, n = m.Owner[f], m.Neighbour[f]
			w    = m.Weights[f]
			tf   [3][3]float64
		)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				tf[i][j] = w*tau[o][i][j] + (1-w)*tau[n][i][j]
			}
		}
		d := faceDot(m.Sf[f], tf)
		for c := 0; c < 3; c++ {
			R[c][o] += d[c]
			R[c][n] -= d[c]
		}
	}
	for _, patch := range m.Patches {
		if patch.Empty() {
			continue
		}
		for f := patch.Start; f < patch.Start+patch.Size; f++ {
			o := m.Owner[f]
			d := faceDot(m.Sf[f], tau[o])
			for c := 0; c < 3; c++ {
				R[c][o] += d[c]
			}
		}
	}
	for c := range R {
		for k, v := range m.V {
			R[c][k] /= v
		}
	}
	return
}
