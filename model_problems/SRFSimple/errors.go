package SRFSimple

import "errors"

var (
	// ErrNoReference is returned when p needs a reference level and none is configured.
	ErrNoReference = errors.New("SRFSimple: unable to set reference cell for field p")

	// ErrBadRelaxation is returned for a relaxation factor outside (0, 1].
	ErrBadRelaxation = errors.New("SRFSimple: relaxation factor outside (0, 1]")

	// ErrMissingSolver is returned when no linear solver is configured for a solved field.
	ErrMissingSolver = errors.New("SRFSimple: no solver settings for field")
)
