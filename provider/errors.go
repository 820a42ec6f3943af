// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures worth retrying on the same provider:
	// rate limits, timeouts, transient connectivity.
	ErrTransient = errors.New("transient provider error")

	// ErrPermanent marks failures that no retry can fix for this
	// provider: malformed or unsupported input.
	ErrPermanent = errors.New("permanent provider error")
)

// Transient wraps err as a retryable failure.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Permanent wraps err as a non-retryable failure.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err is classified as permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// IsTransient reports whether err should be retried on the same
// provider. Deadline expiry counts as transient (the per-call timeout
// says nothing about the input), and so does any unclassified error:
// retrying a few times before escalating is cheaper than escalating on
// a one-off failure.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return !IsPermanent(err)
}
