package contracts

import "errors"

// Per-instrument soft failures. None of these ever aborts a scan: each one
// becomes a failed GateResult for that instrument and the batch continues.
var (
	// ErrInsufficientHistory marks a series shorter than a gate's window
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrMissingField marks an absent fundamental/institutional attribute;
	// the signal that needed it counts as failed
	ErrMissingField = errors.New("missing field")

	// ErrDegenerateGroup marks a sector with too few peers for a meaningful
	// z-score; evaluation falls back to the absolute threshold
	ErrDegenerateGroup = errors.New("degenerate sector group")

	// ErrCompute marks an unexpected numeric failure (division by zero,
	// NaN propagation) caught per instrument
	ErrCompute = errors.New("compute error")
)
