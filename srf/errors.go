package srf

import "errors"

var (
	// ErrUnknownModel is returned when no frame model is registered under a name.
	ErrUnknownModel = errors.New("srf: unknown model")

	// ErrBadProperties is returned for a zero rotation axis or other invalid frame settings.
	ErrBadProperties = errors.New("srf: invalid properties")

	// ErrNoFrame is returned when an absolute frame boundary condition is updated without a frame model.
	ErrNoFrame = errors.New("srf: no frame velocity available")
)
