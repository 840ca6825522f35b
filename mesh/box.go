package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type Side uint8

const (
	XMin Side = iota
	XMax
	YMin
	YMax
	ZMin
	ZMax
)

func (s Side) String() string {
	return [...]string{"xMin", "xMax", "yMin", "yMax", "zMin", "zMax"}[s]
}

type PatchSpec struct {
	Name string
	Type PatchType
}

/*
BoxSpec describes a structured hexahedral block.

	Skew shears the block in x proportionally to y, x' = x + Skew*(y - Min.Y),
	which keeps faces planar and cell volumes unchanged while making the
	x and y faces non-orthogonal.
*/
type BoxSpec struct {
	Min, Max r3.Vec
	Cells    [3]int
	Skew     float64
	Patches  [6]PatchSpec // Indexed by Side
}

func NewBoxMesh(spec BoxSpec) (m *Mesh, err error) {
	var (
		nx, ny, nz = spec.Cells[0], spec.Cells[1], spec.Cells[2]
		lx         = spec.Max.X - spec.Min.X
		ly         = spec.Max.Y - spec.Min.Y
		lz         = spec.Max.Z - spec.Min.Z
	)
	if nx < 1 || ny < 1 || nz < 1 || lx <= 0 || ly <= 0 || lz <= 0 {
		err = fmt.Errorf("%w: cells %v, extents (%g, %g, %g)", ErrBadBox, spec.Cells, lx, ly, lz)
		return
	}
	var (
		pIndex = func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }
		cIndex = func(i, j, k int) int { return i + nx*(j+ny*k) }
		points = make([]r3.Vec, (nx+1)*(ny+1)*(nz+1))
	)
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				y := spec.Min.Y + ly*float64(j)/float64(ny)
				points[pIndex(i, j, k)] = r3.Vec{
					X: spec.Min.X + lx*float64(i)/float64(nx) + spec.Skew*(y-spec.Min.Y),
					Y: y,
					Z: spec.Min.Z + lz*float64(k)/float64(nz),
				}
			}
		}
	}
	var (
		faces            [][]int
		owner, neighbour []int
	)
	// Internal faces in upper triangular order
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				c := cIndex(i, j, k)
				if i < nx-1 {
					faces = append(faces, []int{pIndex(i+1, j, k), pIndex(i+1, j+1, k),
						pIndex(i+1, j+1, k+1), pIndex(i+1, j, k+1)})
					owner = append(owner, c)
					neighbour = append(neighbour, cIndex(i+1, j, k))
				}
				if j < ny-1 {
					faces = append(faces, []int{pIndex(i, j+1, k), pIndex(i, j+1, k+1),
						pIndex(i+1, j+1, k+1), pIndex(i+1, j+1, k)})
					owner = append(owner, c)
					neighbour = append(neighbour, cIndex(i, j+1, k))
				}
				if k < nz-1 {
					faces = append(faces, []int{pIndex(i, j, k+1), pIndex(i+1, j, k+1),
						pIndex(i+1, j+1, k+1), pIndex(i, j+1, k+1)})
					owner = append(owner, c)
					neighbour = append(neighbour, cIndex(i, j, k+1))
				}
			}
		}
	}
	// Boundary faces with outward normals, one generator per side
	sideFaces := func(s Side) (sf [][]int, so []int) {
		switch s {
		case XMin, XMax:
			i, ci := 0, 0
			if s == XMax {
				i, ci = nx, nx-1
			}
			for k := 0; k < nz; k++ {
				for j := 0; j < ny; j++ {
					f := []int{pIndex(i, j, k), pIndex(i, j+1, k), pIndex(i, j+1, k+1), pIndex(i, j, k+1)}
					if s == XMin {
						f = reverseFace(f)
					}
					sf = append(sf, f)
					so = append(so, cIndex(ci, j, k))
				}
			}
		case YMin, YMax:
			j, cj := 0, 0
			if s == YMax {
				j, cj = ny, ny-1
			}
			for k := 0; k < nz; k++ {
				for i := 0; i < nx; i++ {
					f := []int{pIndex(i, j, k), pIndex(i, j, k+1), pIndex(i+1, j, k+1), pIndex(i+1, j, k)}
					if s == YMin {
						f = reverseFace(f)
					}
					sf = append(sf, f)
					so = append(so, cIndex(i, cj, k))
				}
			}
		case ZMin, ZMax:
			k, ck := 0, 0
			if s == ZMax {
				k, ck = nz, nz-1
			}
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					f := []int{pIndex(i, j, k), pIndex(i+1, j, k), pIndex(i+1, j+1, k), pIndex(i, j+1, k)}
					if s == ZMin {
						f = reverseFace(f)
					}
					sf = append(sf, f)
					so = append(so, cIndex(i, j, ck))
				}
			}
		}
		return
	}
	// Sides sharing a name are merged into one patch, in order of first appearance
	var (
		patches   []Patch
		names     []string
		nameSides = make(map[string][]Side)
	)
	for s := XMin; s <= ZMax; s++ {
		name := spec.Patches[s].Name
		if name == "" {
			name = s.String()
		}
		if _, present := nameSides[name]; !present {
			names = append(names, name)
		}
		nameSides[name] = append(nameSides[name], s)
	}
	for _, name := range names {
		var (
			sides = nameSides[name]
			start = len(faces)
			pt    = spec.Patches[sides[0]].Type
		)
		for _, s := range sides {
			if spec.Patches[s].Type != pt {
				err = fmt.Errorf("%w: patch %q has sides of different types", ErrBadBox, name)
				return
			}
			sf, so := sideFaces(s)
			faces = append(faces, sf...)
			owner = append(owner, so...)
		}
		patches = append(patches, Patch{Name: name, Type: pt, Start: start, Size: len(faces) - start})
	}
	return NewMesh(points, faces, owner, neighbour, patches)
}

func reverseFace(f []int) (r []int) {
	r = make([]int, len(f))
	r[0] = f[0]
	for i := 1; i < len(f); i++ {
		r[i] = f[len(f)-i]
	}
	return
}
