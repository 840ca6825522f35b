// Package output writes cell fields as legacy VTK files of cell centre vertices.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/notargets/srfsimple/mesh"
)

// Field is a scalar (one component) or vector (three component) cell field, Values[cmpt][cell]
type Field struct {
	Name   string
	Values [][]float64
}

func WriteVTK(w io.Writer, title string, m *mesh.Mesh, fields ...Field) (err error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# vtk DataFile Version 3.0\n%s\nASCII\nDATASET UNSTRUCTURED_GRID\n", title)
	fmt.Fprintf(bw, "POINTS %d double\n", m.NCells)
	for _, c := range m.C {
		fmt.Fprintf(bw, "%.9g %.9g %.9g\n", c.X, c.Y, c.Z)
	}
	fmt.Fprintf(bw, "CELLS %d %d\n", m.NCells, 2*m.NCells)
	for k := 0; k < m.NCells; k++ {
		fmt.Fprintf(bw, "1 %d\n", k)
	}
	fmt.Fprintf(bw, "CELL_TYPES %d\n", m.NCells)
	for k := 0; k < m.NCells; k++ {
		fmt.Fprintf(bw, "1\n") // VTK_VERTEX
	}
	if len(fields) > 0 {
		fmt.Fprintf(bw, "POINT_DATA %d\n", m.NCells)
	}
	for _, f := range fields {
		switch len(f.Values) {
		case 1:
			fmt.Fprintf(bw, "SCALARS %s double 1\nLOOKUP_TABLE default\n", f.Name)
			for _, v := range f.Values[0] {
				fmt.Fprintf(bw, "%.9g\n", v)
			}
		case 3:
			fmt.Fprintf(bw, "VECTORS %s double\n", f.Name)
			for k := range f.Values[0] {
				fmt.Fprintf(bw, "%.9g %.9g %.9g\n", f.Values[0][k], f.Values[1][k], f.Values[2][k])
			}
		default:
			return fmt.Errorf("output: field %q has %d components", f.Name, len(f.Values))
		}
	}
	return bw.Flush()
}

// WriteFile writes <dir>/<name>_<iteration>.vtk and returns its path
func WriteFile(dir, name string, iteration int, m *mesh.Mesh, fields ...Field) (path string, err error) {
	if err = os.MkdirAll(dir, 0755); err != nil {
		return
	}
	path = filepath.Join(dir, fmt.Sprintf("%s_%d.vtk", name, iteration))
	file, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	err = WriteVTK(file, fmt.Sprintf("%s iteration %d", name, iteration), m, fields...)
	return
}
