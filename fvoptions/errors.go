package fvoptions

import "errors"

var (
	// ErrUnknownSource is returned when no source type is registered under a name.
	ErrUnknownSource = errors.New("fvoptions: unknown source type")

	// ErrBadSelection is returned for an unknown selection mode or a selection with no cells.
	ErrBadSelection = errors.New("fvoptions: invalid cell selection")

	// ErrBadSpec is returned for invalid source coefficients.
	ErrBadSpec = errors.New("fvoptions: invalid source definition")
)
