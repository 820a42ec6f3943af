package govern

import "errors"

var (
	// ErrInvalidMaxPercent is returned for a threshold outside (0, 100].
	ErrInvalidMaxPercent = errors.New("maxPercent must be within (0, 100]")

	// ErrPressurePersists is returned by AwaitRelief when memory usage
	// is still above the threshold after the bounded wait.
	ErrPressurePersists = errors.New("memory pressure persists after bounded wait")
)
