package linsolve

import "errors"

var (
	// ErrSingular is returned when a matrix has a zero diagonal coefficient.
	ErrSingular = errors.New("linsolve: singular matrix")

	// ErrDiverged is returned when a residual becomes NaN or infinite.
	ErrDiverged = errors.New("linsolve: solution diverged")

	// ErrUnknownSolver is returned for an unrecognised solver, preconditioner or smoother name.
	ErrUnknownSolver = errors.New("linsolve: unknown solver")

	// ErrAsymmetric is returned when a symmetric method is requested for an asymmetric matrix.
	ErrAsymmetric = errors.New("linsolve: symmetric solver on asymmetric matrix")
)
