package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type PatchType uint8

const (
	PatchGeneric PatchType = iota
	PatchWall
	PatchEmpty
)

func (pt PatchType) String() string {
	return [...]string{"patch", "wall", "empty"}[pt]
}

var PatchTypeNameMap = map[string]PatchType{
	"patch": PatchGeneric,
	"wall":  PatchWall,
	"empty": PatchEmpty,
}

func NewPatchType(label string) (pt PatchType, err error) {
	var ok bool
	if label == "" {
		return PatchGeneric, nil
	}
	if pt, ok = PatchTypeNameMap[label]; !ok {
		err = fmt.Errorf("%w: %q", ErrUnknownPatchType, label)
	}
	return
}

// Patch is a contiguous range of boundary faces, Start is a global face index
type Patch struct {
	Name  string
	Type  PatchType
	Start int
	Size  int
}

func (p Patch) Empty() bool { return p.Type == PatchEmpty }

// Face returns the global face index of the patch-local face i
func (p Patch) Face(i int) int { return p.Start + i }

/*
Mesh is a finite volume mesh in owner/neighbour face addressing.

	Faces [0, NInternalFaces) are internal, ordered by owner then neighbour
	with Owner < Neighbour. Boundary faces follow, grouped by patch.
	Sf points from the owner into the neighbour, and out of the domain on
	boundary faces.
*/
type Mesh struct {
	Points []r3.Vec
	Faces  [][]int

	NCells, NInternalFaces, NFaces int
	Owner, Neighbour               []int
	Patches                        []Patch

	// Geometry
	C, Cf, Sf []r3.Vec
	MagSf, V  []float64

	// Interpolation and gradient coefficients, all faces
	Weights            []float64
	DeltaCoeffs        []float64
	NonOrthDeltaCoeffs []float64
	NonOrthCorrVecs    []r3.Vec

	CellFaces [][]int
}

// NewMesh builds the face and cell geometry from points and face/cell addressing
func NewMesh(points []r3.Vec, faces [][]int, owner, neighbour []int, patches []Patch) (m *Mesh, err error) {
	var (
		nFaces = len(faces)
		nCells int
	)
	if len(owner) != nFaces || len(neighbour) > nFaces {
		err = fmt.Errorf("%w: %d faces, %d owners, %d neighbours",
			ErrBadAddressing, nFaces, len(owner), len(neighbour))
		return
	}
	for _, o := range owner {
		if o+1 > nCells {
			nCells = o + 1
		}
	}
	for f, n := range neighbour {
		if n+1 > nCells {
			nCells = n + 1
		}
		if n <= owner[f] {
			err = fmt.Errorf("%w: internal face %d has owner %d >= neighbour %d",
				ErrBadAddressing, f, owner[f], n)
			return
		}
	}
	var nBoundary int
	for _, p := range patches {
		if p.Start != len(neighbour)+nBoundary {
			err = fmt.Errorf("%w: patch %q starts at %d, expected %d",
				ErrBadAddressing, p.Name, p.Start, len(neighbour)+nBoundary)
			return
		}
		nBoundary += p.Size
	}
	if len(neighbour)+nBoundary != nFaces {
		err = fmt.Errorf("%w: %d internal + %d boundary faces != %d faces",
			ErrBadAddressing, len(neighbour), nBoundary, nFaces)
		return
	}
	m = &Mesh{
		Points:         points,
		Faces:          faces,
		NCells:         nCells,
		NInternalFaces: len(neighbour),
		NFaces:         nFaces,
		Owner:          owner,
		Neighbour:      neighbour,
		Patches:        patches,
	}
	m.calcFaceGeometry()
	m.calcCellGeometry()
	if err = m.checkGeometry(); err != nil {
		return nil, err
	}
	m.calcCellFaces()
	m.calcInterpolationCoeffs()
	return
}

func (m *Mesh) calcFaceGeometry() {
	m.Cf = make([]r3.Vec, m.NFaces)
	m.Sf = make([]r3.Vec, m.NFaces)
	m.MagSf = make([]float64, m.NFaces)
	for f, face := range m.Faces {
		var (
			nPts      = len(face)
			fCentre   r3.Vec
			sumN      r3.Vec
			sumA      float64
			sumAc     r3.Vec
			nextPoint r3.Vec
		)
		for _, pi := range face {
			fCentre = r3.Add(fCentre, m.Points[pi])
		}
		fCentre = r3.Scale(1./float64(nPts), fCentre)
		// Decompose into triangles about the estimated centre
		for i := 0; i < nPts; i++ {
			thisPoint := m.Points[face[i]]
			nextPoint = m.Points[face[(i+1)%nPts]]
			c := r3.Add(r3.Add(thisPoint, nextPoint), fCentre)
			n := r3.Cross(r3.Sub(nextPoint, thisPoint), r3.Sub(fCentre, thisPoint))
			a := r3.Norm(n)
			sumN = r3.Add(sumN, n)
			sumA += a
			sumAc = r3.Add(sumAc, r3.Scale(a, c))
		}
		if sumA < 1.e-300 {
			m.Cf[f] = fCentre
		} else {
			m.Cf[f] = r3.Scale(1./(3.*sumA), sumAc)
		}
		m.Sf[f] = r3.Scale(0.5, sumN)
		m.MagSf[f] = r3.Norm(m.Sf[f])
	}
}

func (m *Mesh) calcCellGeometry() {
	var (
		cEst   = make([]r3.Vec, m.NCells)
		nCellF = make([]int, m.NCells)
	)
	m.C = make([]r3.Vec, m.NCells)
	m.V = make([]float64, m.NCells)
	for f := 0; f < m.NFaces; f++ {
		o := m.Owner[f]
		cEst[o] = r3.Add(cEst[o], m.Cf[f])
		nCellF[o]++
		if f < m.NInternalFaces {
			n := m.Neighbour[f]
			cEst[n] = r3.Add(cEst[n], m.Cf[f])
			nCellF[n]++
		}
	}
	for k := range cEst {
		cEst[k] = r3.Scale(1./float64(nCellF[k]), cEst[k])
	}
	// Pyramid decomposition, volumes accumulate as 3x until the end
	for f := 0; f < m.NFaces; f++ {
		o := m.Owner[f]
		pyr3Vol := r3.Dot(m.Sf[f], r3.Sub(m.Cf[f], cEst[o]))
		pc := r3.Add(r3.Scale(0.75, m.Cf[f]), r3.Scale(0.25, cEst[o]))
		m.C[o] = r3.Add(m.C[o], r3.Scale(pyr3Vol, pc))
		m.V[o] += pyr3Vol
		if f < m.NInternalFaces {
			n := m.Neighbour[f]
			pyr3Vol = r3.Dot(m.Sf[f], r3.Sub(cEst[n], m.Cf[f]))
			pc = r3.Add(r3.Scale(0.75, m.Cf[f]), r3.Scale(0.25, cEst[n]))
			m.C[n] = r3.Add(m.C[n], r3.Scale(pyr3Vol, pc))
			m.V[n] += pyr3Vol
		}
	}
	for k := range m.C {
		if math.Abs(m.V[k]) > 1.e-300 {
			m.C[k] = r3.Scale(1./m.V[k], m.C[k])
		} else {
			m.C[k] = cEst[k]
		}
		m.V[k] /= 3.
	}
}

func (m *Mesh) checkGeometry() (err error) {
	for k, v := range m.V {
		if v <= 0 {
			return fmt.Errorf("%w: cell %d has volume %g", ErrBadGeometry, k, v)
		}
	}
	for f, a := range m.MagSf {
		if a <= 0 {
			return fmt.Errorf("%w: face %d has zero area", ErrBadGeometry, f)
		}
	}
	return
}

func (m *Mesh) calcCellFaces() {
	m.CellFaces = make([][]int, m.NCells)
	for f := 0; f < m.NFaces; f++ {
		m.CellFaces[m.Owner[f]] = append(m.CellFaces[m.Owner[f]], f)
		if f < m.NInternalFaces {
			m.CellFaces[m.Neighbour[f]] = append(m.CellFaces[m.Neighbour[f]], f)
		}
	}
}

func (m *Mesh) calcInterpolationCoeffs() {
	m.Weights = make([]float64, m.NFaces)
	m.DeltaCoeffs = make([]float64, m.NFaces)
	m.NonOrthDeltaCoeffs = make([]float64, m.NFaces)
	m.NonOrthCorrVecs = make([]r3.Vec, m.NFaces)
	for f := 0; f < m.NFaces; f++ {
		var (
			o     = m.Owner[f]
			d     r3.Vec
			unitN = r3.Scale(1./m.MagSf[f], m.Sf[f])
		)
		if f < m.NInternalFaces {
			n := m.Neighbour[f]
			dOwn := r3.Dot(m.Sf[f], r3.Sub(m.Cf[f], m.C[o]))
			dNei := r3.Dot(m.Sf[f], r3.Sub(m.C[n], m.Cf[f]))
			m.Weights[f] = dNei / (dOwn + dNei)
			d = r3.Sub(m.C[n], m.C[o])
		} else {
			m.Weights[f] = 1
			d = r3.Sub(m.Cf[f], m.C[o])
		}
		magD := r3.Norm(d)
		m.DeltaCoeffs[f] = 1. / magD
		m.NonOrthDeltaCoeffs[f] = 1. / math.Max(r3.Dot(unitN, d), 0.05*magD)
		if f < m.NInternalFaces {
			m.NonOrthCorrVecs[f] = r3.Sub(unitN, r3.Scale(m.NonOrthDeltaCoeffs[f], d))
		}
	}
}

// PatchFaceCells returns the owner cell of each face of patch p
func (m *Mesh) PatchFaceCells(p int) (cells []int) {
	var (
		patch = m.Patches[p]
	)
	cells = make([]int, patch.Size)
	for i := range cells {
		cells[i] = m.Owner[patch.Start+i]
	}
	return
}

func (m *Mesh) FindPatch(name string) (p int, found bool) {
	for p = range m.Patches {
		if m.Patches[p].Name == name {
			return p, true
		}
	}
	return -1, false
}

// SolutionD reports, per direction, whether the direction is resolved, i.e. not collapsed by empty patches
func (m *Mesh) SolutionD() (solved [3]bool) {
	var (
		emptyDir r3.Vec
	)
	for _, p := range m.Patches {
		if !p.Empty() {
			continue
		}
		for f := p.Start; f < p.Start+p.Size; f++ {
			s := m.Sf[f]
			emptyDir = r3.Add(emptyDir, r3.Vec{X: math.Abs(s.X), Y: math.Abs(s.Y), Z: math.Abs(s.Z)})
		}
	}
	solved = [3]bool{true, true, true}
	if mag := r3.Norm(emptyDir); mag > 0 {
		emptyDir = r3.Scale(1./mag, emptyDir)
		solved[0] = emptyDir.X <= 1.e-6
		solved[1] = emptyDir.Y <= 1.e-6
		solved[2] = emptyDir.Z <= 1.e-6
	}
	return
}

// FindCell returns the cell whose centre is nearest to point
func (m *Mesh) FindCell(point r3.Vec) (cell int) {
	var (
		minDist = math.MaxFloat64
	)
	cell = -1
	for k, c := range m.C {
		if d := r3.Norm2(r3.Sub(c, point)); d < minDist {
			minDist = d
			cell = k
		}
	}
	return
}

// CellsInBox returns the cells whose centres lie inside the axis aligned box [min, max]
func (m *Mesh) CellsInBox(min, max r3.Vec) (cells []int) {
	for k, c := range m.C {
		if c.X >= min.X && c.X <= max.X &&
			c.Y >= min.Y && c.Y <= max.Y &&
			c.Z >= min.Z && c.Z <= max.Z {
			cells = append(cells, k)
		}
	}
	return
}

type Quality struct {
	TotalVolume         float64
	MaxNonOrthogonality float64 // degrees
	MinVolume           float64
}

func (m *Mesh) CheckMesh() (q Quality) {
	q.MinVolume = math.MaxFloat64
	for _, v := range m.V {
		q.TotalVolume += v
		q.MinVolume = math.Min(q.MinVolume, v)
	}
	for f := 0; f < m.NInternalFaces; f++ {
		var (
			d     = r3.Sub(m.C[m.Neighbour[f]], m.C[m.Owner[f]])
			cosA  = r3.Dot(d, m.Sf[f]) / (r3.Norm(d) * m.MagSf[f])
			angle = math.Acos(math.Min(1, math.Max(-1, cosA))) * 180. / math.Pi
		)
		q.MaxNonOrthogonality = math.Max(q.MaxNonOrthogonality, angle)
	}
	return
}
