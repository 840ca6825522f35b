package mesh

import "errors"

var (
	// ErrBadBox is returned for a box definition with non-positive extents or cell counts.
	ErrBadBox = errors.New("mesh: invalid box definition")

	// ErrBadAddressing is returned when owner/neighbour addressing is inconsistent.
	ErrBadAddressing = errors.New("mesh: inconsistent face addressing")

	// ErrBadGeometry is returned when a cell has a non-positive volume or a face has zero area.
	ErrBadGeometry = errors.New("mesh: degenerate geometry")

	// ErrUnknownPatchType is returned when a patch type name cannot be resolved.
	ErrUnknownPatchType = errors.New("mesh: unknown patch type")
)
