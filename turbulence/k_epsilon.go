package turbulence

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/srfsimple/fields"
	"github.com/notargets/srfsimple/fvc"
	"github.com/notargets/srfsimple/fvm"
	"github.com/notargets/srfsimple/mesh"
	"github.com/notargets/srfsimple/utils"
)

// Standard high Reynolds number coefficients
const (
	Cmu      = 0.09
	C1       = 1.44
	C2       = 1.92
	SigmaK   = 1.0
	SigmaEps = 1.3
)

const (
	kMin       = utils.SMALL
	epsilonMin = utils.SMALL
)

/*
KEpsilon is the standard k-epsilon model.

	Each correction solves epsilon then k, relaxed and bounded, and updates
	nut = Cmu k^2/epsilon. Wall treatment comes from the k and epsilon boundary
	conditions given in the case, no wall functions are applied.
*/
type KEpsilon struct {
	props                         Properties
	log                           *zap.Logger
	div                           fvm.DivScheme
	snGrad                        fvm.SnGradScheme
	cmu, c1, c2, sigmaK, sigmaEps float64
	K, Epsilon                    *fields.VolField
	nut, nuEff                    []float64
}

func newKEpsilon(m *mesh.Mesh, props Properties, log *zap.Logger) (model Model, err error) {
	ke := &KEpsilon{
		props:    props,
		log:      log,
		cmu:      props.coeff("Cmu", Cmu),
		c1:       props.coeff("C1", C1),
		c2:       props.coeff("C2", C2),
		sigmaK:   props.coeff("sigmak", SigmaK),
		sigmaEps: props.coeff("sigmaEps", SigmaEps),
		nut:      make([]float64, m.NCells),
		nuEff:    make([]float64, m.NCells),
	}
	if ke.div, ke.snGrad, err = props.schemes(); err != nil {
		return
	}
	if props.Relaxation < 0 || props.Relaxation > 1 {
		return nil, fmt.Errorf("%w: relaxation %g", ErrBadProperties, props.Relaxation)
	}
	if err = props.Solver.Validate(); err != nil {
		return nil, fmt.Errorf("%w: k-epsilon solver: %v", ErrBadProperties, err)
	}
	for _, name := range []string{"k", "epsilon"} {
		spec, present := props.Fields[name]
		if !present {
			return nil, fmt.Errorf("%w: kEpsilon needs field %q", ErrBadProperties, name)
		}
		vf, err := fields.NewVolField(name, m, spec.Internal, spec.Boundary)
		if err != nil {
			return nil, err
		}
		if vf.NComponents() != 1 {
			return nil, fmt.Errorf("%w: %q must be scalar", ErrBadProperties, name)
		}
		if vf.Internal[0][0] <= 0 {
			return nil, fmt.Errorf("%w: initial %s = %g must be positive", ErrBadProperties, name, vf.Internal[0][0])
		}
		if name == "k" {
			ke.K = vf
		} else {
			ke.Epsilon = vf
		}
	}
	ke.updateNut()
	return ke, nil
}

func (ke *KEpsilon) Name() string     { return "kEpsilon" }
func (ke *KEpsilon) NuEff() []float64 { return ke.nuEff }
func (ke *KEpsilon) Nut() []float64   { return ke.nut }

func (ke *KEpsilon) DivDevReff(U *fields.VolField) *fvm.Equation {
	return divDevReff(ke.nuEff, U, ke.snGrad)
}

func (ke *KEpsilon) updateNut() {
	var (
		k   = ke.K.Internal[0]
		eps = ke.Epsilon.Internal[0]
	)
	for i := range ke.nut {
		ke.nut[i] = ke.cmu * utils.POW(k[i], 2) / eps[i]
		ke.nuEff[i] = ke.nut[i] + ke.props.Nu
	}
}

func (ke *KEpsilon) diffusivity(sigma float64) []float64 {
	D := make([]float64, len(ke.nut))
	for i, nut := range ke.nut {
		D[i] = nut/sigma + ke.props.Nu
	}
	return fvc.InterpolateScalar(fields.NewVolFieldFrom("D", ke.K.Mesh, [][]float64{D}))
}

func (ke *KEpsilon) Correct(ctx context.Context, U *fields.VolField, phi *fields.SurfaceField) (err error) {
	var (
		m      = U.Mesh
		gradU  = fvc.Grad(U)
		divPhi = fvc.Div(phi)
		G      = make([]float64, m.NCells)
		k      = ke.K.Internal[0]
		eps    = ke.Epsilon.Internal[0]
	)
	// G = nut 2 |symm(grad(U))|^2
	for c := range G {
		var magSqr float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				gij := component(gradU[j][c], i)
				gji := component(gradU[i][c], j)
				s := 0.5 * (gij + gji)
				magSqr += s * s
			}
		}
		G[c] = ke.nut[c] * 2 * magSqr
	}
	var (
		epsSp = make([]float64, m.NCells)
		epsSu = make([]float64, m.NCells)
		kSp   = make([]float64, m.NCells)
	)
	for c := range G {
		epsSp[c] = ke.c2 * eps[c] / k[c]
		epsSu[c] = ke.c1 * G[c] * eps[c] / k[c]
		kSp[c] = eps[c] / k[c]
	}
	epsEqn := ke.transport(phi, ke.Epsilon, divPhi, ke.diffusivity(ke.sigmaEps), epsSp, epsSu)
	if err = ke.solve(ctx, epsEqn, ke.Epsilon, epsilonMin); err != nil {
		return
	}
	kEqn := ke.transport(phi, ke.K, divPhi, ke.diffusivity(ke.sigmaK), kSp, G)
	if err = ke.solve(ctx, kEqn, ke.K, kMin); err != nil {
		return
	}
	ke.updateNut()
	return
}

// transport assembles div(phi, psi) - SuSp(div(phi), psi) - laplacian(D, psi) == su - Sp(sp, psi)
func (ke *KEpsilon) transport(phi *fields.SurfaceField, psi *fields.VolField, divPhi, Df, sp, su []float64) (eq *fvm.Equation) {
	eq = fvm.Div(phi, psi, ke.div)
	eq.Sub(fvm.SuSp(divPhi, psi))
	eq.Sub(fvm.Laplacian(Df, psi, ke.snGrad))
	eq.Add(fvm.Sp(sp, psi))
	eq.EqualField([][]float64{su})
	return
}

func (ke *KEpsilon) solve(ctx context.Context, eq *fvm.Equation, psi *fields.VolField, lower float64) (err error) {
	if ke.props.Relaxation > 0 {
		if err = eq.Relax(ke.props.Relaxation); err != nil {
			return
		}
	}
	values, perf, err := eq.Solve(ctx, ke.props.Solver)
	if err != nil {
		return
	}
	for _, p := range perf {
		ke.log.Debug("linear solve", zap.String("solver", p.Solver), zap.String("field", p.Field),
			zap.Float64("initialResidual", p.InitialResidual), zap.Float64("finalResidual", p.FinalResidual),
			zap.Int("iterations", p.NIterations))
	}
	psi.SetInternal(values)
	var (
		vMin, vMax = utils.Min(psi.Internal[0]), utils.Max(psi.Internal[0])
	)
	if n := utils.Bound(psi.Internal[0], lower); n > 0 {
		ke.log.Debug("bounding", zap.String("field", psi.Name), zap.Int("cells", n),
			zap.Float64("min", vMin), zap.Float64("max", vMax), zap.Float64("bound", lower))
	}
	psi.CorrectBoundaryConditions()
	return
}

func component(v r3.Vec, i int) float64 {
	return [3]float64{v.X, v.Y, v.Z}[i]
}
