package fvc

import "errors"

var (
	// ErrContinuityNotAdjustable is returned when the boundary flux imbalance of a closed
	// pressure system cannot be removed by scaling the adjustable outflow.
	ErrContinuityNotAdjustable = errors.New("fvc: continuity error cannot be removed by adjusting the outflow")
)
