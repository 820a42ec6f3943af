package cache

import "errors"

var (
	// ErrInvalidCapacity is returned when the configured capacity is not positive.
	ErrInvalidCapacity = errors.New("cache capacity must be greater than 0")
)
