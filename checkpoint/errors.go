package checkpoint

import "errors"

var (
	// ErrCorrupt indicates the persisted record exists but cannot be
	// read or decoded. Callers must treat this as fatal unless an
	// explicit restart directive allows discarding the record.
	ErrCorrupt = errors.New("checkpoint corrupt")
)
