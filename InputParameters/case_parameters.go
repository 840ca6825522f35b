package InputParameters

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ghodss/yaml"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fvoptions"
	"github.com/notargets/srfsimple/linsolve"
	"github.com/notargets/srfsimple/mesh"
	"github.com/notargets/srfsimple/srf"
	"github.com/notargets/srfsimple/turbulence"
)

var ErrBadParameters = errors.New("InputParameters: invalid case parameters")

// FieldSpec is the initial internal value and the boundary conditions of a field
type FieldSpec = turbulence.FieldSpec

type PatchParameters struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// MeshParameters describes a hexahedral box mesh, Patches is keyed by side name (xMin ... zMax)
type MeshParameters struct {
	Min     [3]float64                 `json:"min"`
	Max     [3]float64                 `json:"max"`
	Cells   [3]int                     `json:"cells"`
	Skew    float64                    `json:"skew,omitempty"`
	Patches map[string]PatchParameters `json:"patches"`
}

type SchemeParameters struct {
	Div    string `json:"div,omitempty"`
	SnGrad string `json:"snGrad,omitempty"`
}

type SIMPLEParameters struct {
	NNonOrthogonalCorrectors int                `json:"nNonOrthogonalCorrectors,omitempty"`
	PRefCell                 *int               `json:"pRefCell,omitempty"`
	PRefPoint                *[3]float64        `json:"pRefPoint,omitempty"`
	PRefValue                *float64           `json:"pRefValue,omitempty"`
	ResidualControl          map[string]float64 `json:"residualControl,omitempty"`
}

// RelaxationFactors holds value relaxation per field and matrix relaxation per equation
type RelaxationFactors struct {
	Fields    map[string]float64 `json:"fields,omitempty"`
	Equations map[string]float64 `json:"equations,omitempty"`
}

type ControlParameters struct {
	EndTime       int `json:"endTime"`
	WriteInterval int `json:"writeInterval,omitempty"`
}

// CaseParameters are obtained from the YAML case file
type CaseParameters struct {
	Title             string                       `json:"title"`
	Mesh              MeshParameters               `json:"mesh"`
	Turbulence        turbulence.Properties        `json:"turbulence"`
	SRF               srf.Properties               `json:"SRF"`
	Fields            map[string]FieldSpec         `json:"fields"`
	Sources           []fvoptions.Spec             `json:"sources,omitempty"`
	Schemes           SchemeParameters             `json:"schemes,omitempty"`
	Solvers           map[string]linsolve.Settings `json:"solvers"`
	SIMPLE            SIMPLEParameters             `json:"SIMPLE"`
	RelaxationFactors RelaxationFactors            `json:"relaxationFactors,omitempty"`
	Control           ControlParameters            `json:"control"`
}

func (cp *CaseParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, cp)
}

var sideNames = map[string]mesh.Side{
	"xMin": mesh.XMin, "xMax": mesh.XMax,
	"yMin": mesh.YMin, "yMax": mesh.YMax,
	"zMin": mesh.ZMin, "zMax": mesh.ZMax,
}

func (mp MeshParameters) BoxSpec() (spec mesh.BoxSpec, err error) {
	spec = mesh.BoxSpec{
		Min:   r3.Vec{X: mp.Min[0], Y: mp.Min[1], Z: mp.Min[2]},
		Max:   r3.Vec{X: mp.Max[0], Y: mp.Max[1], Z: mp.Max[2]},
		Cells: mp.Cells,
		Skew:  mp.Skew,
	}
	for sideName, pp := range mp.Patches {
		side, present := sideNames[sideName]
		if !present {
			return spec, fmt.Errorf("%w: unknown box side %q", ErrBadParameters, sideName)
		}
		pt, err := mesh.NewPatchType(pp.Type)
		if err != nil {
			return spec, err
		}
		spec.Patches[side] = mesh.PatchSpec{Name: pp.Name, Type: pt}
	}
	return
}

// Validate checks everything that can be checked without building the mesh
func (cp *CaseParameters) Validate() (err error) {
	if _, err = cp.Mesh.BoxSpec(); err != nil {
		return
	}
	for _, name := range []string{"p", "Urel"} {
		if _, present := cp.Fields[name]; !present {
			return fmt.Errorf("%w: missing field %q", ErrBadParameters, name)
		}
		s, present := cp.Solvers[name]
		if !present {
			return fmt.Errorf("%w: missing solver for %q", ErrBadParameters, name)
		}
		if err = s.Validate(); err != nil {
			return fmt.Errorf("solver for %q: %w", name, err)
		}
	}
	for name, alpha := range cp.RelaxationFactors.Fields {
		if alpha <= 0 || alpha > 1 {
			return fmt.Errorf("%w: relaxation factor %g for field %q", ErrBadParameters, alpha, name)
		}
	}
	for name, alpha := range cp.RelaxationFactors.Equations {
		if alpha <= 0 || alpha > 1 {
			return fmt.Errorf("%w: relaxation factor %g for equation %q", ErrBadParameters, alpha, name)
		}
	}
	if cp.SIMPLE.NNonOrthogonalCorrectors < 0 {
		return fmt.Errorf("%w: nNonOrthogonalCorrectors = %d", ErrBadParameters,
			cp.SIMPLE.NNonOrthogonalCorrectors)
	}
	if cp.SIMPLE.PRefCell != nil && cp.SIMPLE.PRefPoint != nil {
		return fmt.Errorf("%w: both pRefCell and pRefPoint given", ErrBadParameters)
	}
	if cp.Control.EndTime < 1 {
		return fmt.Errorf("%w: endTime = %d", ErrBadParameters, cp.Control.EndTime)
	}
	if cp.Control.WriteInterval < 0 {
		return fmt.Errorf("%w: writeInterval = %d", ErrBadParameters, cp.Control.WriteInterval)
	}
	return
}

func sortedKeys[T any](m map[string]T) (keys []string) {
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

func (cp *CaseParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", cp.Title)
	fmt.Fprintf(w, "%v x %v, %v cells, skew %g\t= Mesh\n", cp.Mesh.Min, cp.Mesh.Max, cp.Mesh.Cells, cp.Mesh.Skew)
	fmt.Fprintf(w, "[%s], nu = %g\t\t= Turbulence Model\n", cp.Turbulence.Model, cp.Turbulence.Nu)
	fmt.Fprintf(w, "[%s], %g rpm about %v\t= SRF Model\n", cp.SRF.Model, cp.SRF.RPM, cp.SRF.Axis)
	fmt.Fprintf(w, "[%d]\t\t\t\t= End Iteration\n", cp.Control.EndTime)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Non-orthogonal Correctors\n", cp.SIMPLE.NNonOrthogonalCorrectors)
	for _, key := range sortedKeys(cp.Solvers) {
		s := cp.Solvers[key]
		fmt.Fprintf(w, "Solvers[%s] = %s %s%s, tolerance %g, relTol %g\n",
			key, s.Solver, s.Preconditioner, s.Smoother, s.Tolerance, s.RelTol)
	}
	for _, key := range sortedKeys(cp.RelaxationFactors.Fields) {
		fmt.Fprintf(w, "RelaxationFactors.Fields[%s] = %g\n", key, cp.RelaxationFactors.Fields[key])
	}
	for _, key := range sortedKeys(cp.RelaxationFactors.Equations) {
		fmt.Fprintf(w, "RelaxationFactors.Equations[%s] = %g\n", key, cp.RelaxationFactors.Equations[key])
	}
	for _, key := range sortedKeys(cp.SIMPLE.ResidualControl) {
		fmt.Fprintf(w, "ResidualControl[%s] = %g\n", key, cp.SIMPLE.ResidualControl[key])
	}
	for _, src := range cp.Sources {
		fmt.Fprintf(w, "Source %q = %s over %s\n", src.Name, src.Type, src.Selection.Mode)
	}
}
