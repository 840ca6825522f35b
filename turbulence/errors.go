package turbulence

import "errors"

var (
	// ErrUnknownModel is returned when no turbulence model is registered under a name.
	ErrUnknownModel = errors.New("turbulence: unknown model")

	// ErrBadProperties is returned for missing or invalid model properties.
	ErrBadProperties = errors.New("turbulence: invalid properties")
)
