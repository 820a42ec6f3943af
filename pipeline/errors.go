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


package pipeline

import "errors"

var (
	// ErrInvalidConfig indicates a configuration value out of range.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrRouterRequired indicates a nil router was passed to the
	// orchestrator.
	ErrRouterRequired = errors.New("fallback router is required")

	// ErrStoreRequired indicates a nil downstream store was passed to
	// the orchestrator.
	ErrStoreRequired = errors.New("downstream store is required")

	// ErrCheckpointsRequired indicates a nil checkpoint store was
	// passed to the orchestrator.
	ErrCheckpointsRequired = errors.New("checkpoint store is required")

	// ErrCommitFailed indicates a downstream commit failed after all
	// retries. The affected batch is never checkpointed.
	ErrCommitFailed = errors.New("downstream commit failed")

	// ErrPersistentMemoryPressure indicates the governor's mitigations
	// did not relieve pressure across the configured number of
	// consecutive batches.
	ErrPersistentMemoryPressure = errors.New("persistent memory pressure")
)
