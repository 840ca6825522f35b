package fvm

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/linsolve"
)

/*
Relax applies implicit under-relaxation with factor alpha.

	The diagonal, including the largest boundary contribution, is made at least as
	large as the sum of the off diagonal magnitudes and divided by alpha. The increase
	of the diagonal times the current psi is added to the source, so a converged
	solution of the relaxed system solves the original one. Factor 1 is a no-op.
*/
func (eq *Equation) Relax(alpha float64) (err error) {
	if alpha <= 0 || alpha > 1 {
		return fmt.Errorf("%w: %g for %q", ErrBadRelaxation, alpha, eq.Psi.Name)
	}
	if alpha == 1 {
		return
	}
	var (
		m      = eq.Mesh
		D      = eq.Matrix.Diag
		D0     = append([]float64(nil), D...)
		sumOff = make([]float64, m.NCells)
	)
	eq.Matrix.SumMagOffDiag(sumOff)
	for p, patch := range m.Patches {
		for i := 0; i < patch.Size; i++ {
			var maxMag float64
			for c := range eq.InternalCoeffs[p] {
				maxMag = math.Max(maxMag, math.Abs(eq.InternalCoeffs[p][c][i]))
			}
			D[m.Owner[patch.Start+i]] += maxMag
		}
	}
	for k := range D {
		D[k] = math.Max(math.Abs(D[k]), sumOff[k]) / alpha
	}
	for p, patch := range m.Patches {
		for i := 0; i < patch.Size; i++ {
			minCoeff := math.MaxFloat64
			for c := range eq.InternalCoeffs[p] {
				minCoeff = math.Min(minCoeff, eq.InternalCoeffs[p][c][i])
			}
			D[m.Owner[patch.Start+i]] -= minCoeff
		}
	}
	for c := range eq.Source {
		for k := range D {
			eq.Source[c][k] += (D[k] - D0[k]) * eq.Psi.Internal[c][k]
		}
	}
	return
}

// SetReference pins psi in cell to value, only when psi has no fixed value patch
func (eq *Equation) SetReference(cell int, value float64) {
	if cell < 0 || !eq.Psi.NeedReference() {
		return
	}
	for c := range eq.Source {
		eq.Source[c][cell] += eq.Matrix.Diag[cell] * value
	}
	eq.Matrix.Diag[cell] += eq.Matrix.Diag[cell]
}

/*
SetValues fixes psi in cells to values[cmpt][i].

	The rows of the cells reduce to the diagonal, the columns are moved into the
	neighbour sources and the boundary coefficients of their faces are dropped.
	The internal values of psi are set as well.
*/
func (eq *Equation) SetValues(cells []int, values [][]float64) {
	var (
		m   = eq.Mesh
		A   = eq.Matrix
		psi = eq.Psi
	)
	for i, cell := range cells {
		for c := range eq.Source {
			psi.Internal[c][cell] = values[c][i]
			eq.Source[c][cell] = values[c][i] * A.Diag[cell]
		}
		for _, f := range m.CellFaces[cell] {
			if f < m.NInternalFaces {
				for c := range eq.Source {
					if cell == m.Owner[f] {
						eq.Source[c][m.Neighbour[f]] -= A.Lower[f] * values[c][i]
					} else {
						eq.Source[c][m.Owner[f]] -= A.Upper[f] * values[c][i]
					}
				}
				A.Upper[f] = 0
				A.Lower[f] = 0
				continue
			}
			for p, patch := range m.Patches {
				if f >= patch.Start && f < patch.Start+patch.Size {
					for c := range eq.Source {
						eq.InternalCoeffs[p][c][f-patch.Start] = 0
						eq.BoundaryCoeffs[p][c][f-patch.Start] = 0
					}
				}
			}
		}
	}
}

// A returns the diagonal coefficient per unit volume, boundary contributions averaged over components
func (eq *Equation) A() (R []float64) {
	var (
		bd = eq.cmptAvBoundaryDiag()
	)
	R = make([]float64, eq.Mesh.NCells)
	for k, v := range eq.Mesh.V {
		R[k] = (eq.Matrix.Diag[k] + bd[k]) / v
	}
	return
}

/*
H returns the off diagonal part of the system applied to the current psi, per unit volume.

	H = (b - sum_nb a_nb psi_nb - (ic - avg(ic)) psi) / V where b includes the boundary
	coefficients, so that A psi - H is the residual of the assembled system.
*/
func (eq *Equation) H() (R [][]float64) {
	var (
		m   = eq.Mesh
		A   = eq.Matrix
		avg = eq.cmptAvBoundaryDiag()
	)
	R = make([][]float64, eq.NComponents())
	for c := range R {
		var (
			x  = eq.Psi.Internal[c]
			bd = eq.boundaryDiag(c)
			h  = eq.boundarySource(c)
		)
		for k := range h {
			h[k] -= (bd[k] - A.Diag[k] - avg[k]) * x[k]
		}
		for f, l := range A.LowerAddr {
			u := A.UpperAddr[f]
			h[l] -= A.Upper[f] * x[u]
			h[u] -= A.Lower[f] * x[l]
		}
		for k, v := range m.V {
			h[k] /= v
		}
		R[c] = h
	}
	return
}

// Flux returns the face flux of the operator applied to the current psi, [cmpt][face]
func (eq *Equation) Flux() (R [][]float64) {
	var (
		m = eq.Mesh
		A = eq.Matrix
	)
	R = zeros(eq.NComponents(), m.NFaces)
	for c := range R {
		x := eq.Psi.Internal[c]
		for f, l := range A.LowerAddr {
			R[c][f] = A.Upper[f]*x[A.UpperAddr[f]] - A.Lower[f]*x[l]
		}
		for p, patch := range m.Patches {
			for i := 0; i < patch.Size; i++ {
				f := patch.Start + i
				R[c][f] = eq.InternalCoeffs[p][c][i]*x[m.Owner[f]] - eq.BoundaryCoeffs[p][c][i]
			}
		}
		if eq.FaceFluxCorrection != nil {
			addTo(R[c], eq.FaceFluxCorrection[c], 1)
		}
	}
	return
}

// ScalarFlux returns the flux of a scalar equation as a surface field
func (eq *Equation) ScalarFlux() (sf *fields.SurfaceField) {
	sf = fields.NewSurfaceField(eq.Psi.Name+"Flux", eq.Mesh)
	copy(sf.Values, eq.Flux()[0])
	return
}

// Residual returns b - A psi per component, with boundary contributions
func (eq *Equation) Residual() (R [][]float64) {
	R = make([][]float64, eq.NComponents())
	for c := range R {
		cmpt := eq.componentMatrix(c)
		R[c] = make([]float64, eq.Mesh.NCells)
		cmpt.Residual(R[c], eq.Psi.Internal[c], eq.boundarySource(c))
	}
	return
}

func (eq *Equation) componentMatrix(c int) *linsolve.LDUMatrix {
	return &linsolve.LDUMatrix{
		LowerAddr: eq.Matrix.LowerAddr,
		UpperAddr: eq.Matrix.UpperAddr,
		Diag:      eq.boundaryDiag(c),
		Lower:     eq.Matrix.Lower,
		Upper:     eq.Matrix.Upper,
	}
}

// SolvedComponents lists the components that are solved for: all of a scalar, the
// directions not collapsed by empty patches of a vector
func (eq *Equation) SolvedComponents() (cmpts []int) {
	if eq.NComponents() == 1 {
		return []int{0}
	}
	for d, solved := range eq.Mesh.SolutionD() {
		if solved {
			cmpts = append(cmpts, d)
		}
	}
	return
}

var componentNames = [3]string{"x", "y", "z"}

/*
Solve solves the system starting from the current psi and returns the new internal
values without modifying the equation or the field.

	The components of a vector equation are solved concurrently, each on its own
	diagonal, source and solution, sharing the off diagonal coefficients. Components
	not solved keep the values of psi.
*/
func (eq *Equation) Solve(ctx context.Context, s linsolve.Settings) (values [][]float64, perf []linsolve.Performance, err error) {
	var (
		cmpts = eq.SolvedComponents()
		g, _  = errgroup.WithContext(ctx)
	)
	values = copyArray(eq.Psi.Internal)
	perf = make([]linsolve.Performance, len(cmpts))
	for i, c := range cmpts {
		i := i
		var (
			name = eq.Psi.Name
			A    = eq.componentMatrix(c)
			b    = eq.boundarySource(c)
			x    = values[c]
		)
		if eq.NComponents() > 1 {
			name += componentNames[c]
		}
		g.Go(func() (err error) {
			perf[i], err = linsolve.Solve(A, x, b, s, name)
			return
		})
	}
	if err = g.Wait(); err != nil {
		return nil, perf, err
	}
	return
}
