package linsolve

import "fmt"

// Settings selects and controls a linear solver, field names follow the case file
type Settings struct {
	Solver         string  `json:"solver"`
	Preconditioner string  `json:"preconditioner,omitempty"`
	Smoother       string  `json:"smoother,omitempty"`
	NSweeps        int     `json:"nSweeps,omitempty"`
	Tolerance      float64 `json:"tolerance"`
	RelTol         float64 `json:"relTol"`
	MaxIter        int     `json:"maxIter,omitempty"`
	MinIter        int     `json:"minIter,omitempty"`
}

const defaultMaxIter = 1000

func (s Settings) maxIter() int {
	if s.MaxIter <= 0 {
		return defaultMaxIter
	}
	return s.MaxIter
}

func (s Settings) nSweeps() int {
	if s.NSweeps <= 0 {
		return 1
	}
	return s.NSweeps
}

func (s Settings) Validate() (err error) {
	switch s.Solver {
	case "PCG", "PBiCGStab", "smoothSolver":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSolver, s.Solver)
	}
	if s.Solver == "smoothSolver" {
		switch s.Smoother {
		case "GaussSeidel", "symGaussSeidel", "":
		default:
			return fmt.Errorf("%w: smoother %q", ErrUnknownSolver, s.Smoother)
		}
		return
	}
	if _, present := preconditioners[s.Preconditioner]; !present && s.Preconditioner != "" {
		return fmt.Errorf("%w: preconditioner %q", ErrUnknownSolver, s.Preconditioner)
	}
	return
}

// Performance reports one linear solve
type Performance struct {
	Solver          string
	Field           string
	InitialResidual float64
	FinalResidual   float64
	NIterations     int
	Converged       bool
	Singular        bool
}

func (p Performance) String() string {
	return fmt.Sprintf("%s:  Solving for %s, Initial residual = %g, Final residual = %g, No Iterations %d",
		p.Solver, p.Field, p.InitialResidual, p.FinalResidual, p.NIterations)
}

func (p *Performance) checkConvergence(s Settings) bool {
	p.Converged = p.FinalResidual < s.Tolerance ||
		(s.RelTol > 0 && p.FinalResidual < s.RelTol*p.InitialResidual)
	return p.Converged
}

// Max combines the performance of the components of a vector solve
func (p Performance) Max(o Performance) (R Performance) {
	R = p
	if o.InitialResidual > R.InitialResidual {
		R.InitialResidual = o.InitialResidual
	}
	if o.FinalResidual > R.FinalResidual {
		R.FinalResidual = o.FinalResidual
	}
	if o.NIterations > R.NIterations {
		R.NIterations = o.NIterations
	}
	R.Converged = p.Converged && o.Converged
	R.Singular = p.Singular || o.Singular
	return
}
