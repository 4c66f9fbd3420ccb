package imaging

import "errors"

// Error classes returned by the nodes. Callers branch with errors.Is.
var (
	// ErrInvalidInput marks a rejected argument: bad percentages, unknown
	// position, wrong mask rank, non-scalar colour, unsupported extension.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPrecondition marks a missing required input.
	ErrPrecondition = errors.New("precondition failed")
)
