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


package store

import (
	"context"

	"github.com/poiesic/docstream/core"
)

// Store is the downstream document store the pipeline commits into.
// Implementations must be thread-safe, and CommitBatch must be an
// idempotent upsert keyed by fingerprint: committing the same document
// twice leaves a single copy, which is what makes full-batch replay on
// resume safe.
type Store interface {
	// CommitBatch durably stores the documents. Calling it again with
	// documents already stored (same fingerprints) replaces them in
	// place without duplication.
	CommitBatch(ctx context.Context, docs []*core.Document) error

	// Get retrieves a stored document by fingerprint.
	// Returns ErrNotFound if no document with that fingerprint exists.
	Get(ctx context.Context, fp core.Fingerprint) (*core.Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// DeleteAll removes every stored document. Destructive; exposed
	// only behind an explicit reset directive.
	DeleteAll(ctx context.Context) error

	// Close closes the storage backend and releases resources.
	Close() error
}
