package fields

import "errors"

var (
	// ErrUnknownPatchType is returned when no patch field type is registered under a name.
	ErrUnknownPatchType = errors.New("fields: unknown patch field type")

	// ErrMissingPatch is returned when a boundary dictionary set omits a mesh patch.
	ErrMissingPatch = errors.New("fields: no boundary condition for patch")

	// ErrBadPatchDict is returned for a malformed boundary condition dictionary.
	ErrBadPatchDict = errors.New("fields: malformed boundary condition")

	// ErrNoPrevIter is returned when a field is relaxed without a stored previous iterate.
	ErrNoPrevIter = errors.New("fields: previous iteration not stored")

	// ErrBadRelaxation is returned for a relaxation factor outside (0, 1].
	ErrBadRelaxation = errors.New("fields: relaxation factor outside (0, 1]")
)
