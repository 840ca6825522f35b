package fvm

import "errors"

var (
	// ErrUnknownScheme is returned for an unrecognised discretisation scheme name.
	ErrUnknownScheme = errors.New("fvm: unknown scheme")

	// ErrBadRelaxation is returned for a matrix relaxation factor outside (0, 1].
	ErrBadRelaxation = errors.New("fvm: relaxation factor outside (0, 1]")
)
