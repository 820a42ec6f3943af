package fallback

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when MaxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidDelay is returned when a backoff delay is negative.
	ErrInvalidDelay = errors.New("backoff delays must not be negative")

	// ErrNoProviders is returned when a router is constructed with an
	// empty provider chain.
	ErrNoProviders = errors.New("at least one provider required")

	// ErrInvalidThreshold is returned for an acceptance threshold
	// outside 0-100.
	ErrInvalidThreshold = errors.New("confidence threshold must be between 0 and 100")

	// ErrAllProvidersExhausted is returned when every provider in the
	// chain failed outright and no result of any confidence exists.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)
