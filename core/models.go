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


package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a stable content-derived identifier for a work item.
// It is used for duplicate detection, cache keys, and idempotent
// downstream commits.
type Fingerprint string

// FingerprintFromContent generates a deterministic fingerprint from raw
// content using BLAKE2b hashing. Identical content always produces an
// identical fingerprint.
func FingerprintFromContent(data []byte) Fingerprint {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write(data)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// ItemStatus tracks the lifecycle of a work item through the pipeline.
type ItemStatus int

const (
	// StatusDiscovered means the item has been found but not processed.
	StatusDiscovered ItemStatus = iota + 1
	// StatusInProgress means a worker is currently processing the item.
	StatusInProgress
	// StatusSucceeded means the item was processed and committed downstream.
	StatusSucceeded
	// StatusFailed means every provider failed to produce a result.
	StatusFailed
	// StatusSkippedDuplicate means an item with the same fingerprint was
	// already seen, either in this run or in a previous committed batch.
	StatusSkippedDuplicate
)

// String returns the status name for logging and reports.
func (s ItemStatus) String() string {
	switch s {
	case StatusDiscovered:
		return "discovered"
	case StatusInProgress:
		return "in-progress"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkippedDuplicate:
		return "skipped-duplicate"
	default:
		return "unknown"
	}
}

// WorkItem is a single unit of work discovered from the input set.
// Identity (Path, Fingerprint) is immutable once created; only Status
// is mutated, and only by the orchestrator.
type WorkItem struct {
	Path        string
	Fingerprint Fingerprint
	Status      ItemStatus
}

// Batch is an ordered, finite sequence of work items carved from the
// discovered item list in discovery order. The batch index increases
// monotonically and is the unit of checkpoint granularity.
type Batch struct {
	Index int
	Items []*WorkItem
}

// Document is the committed unit of output: extracted text plus its
// embedding vector, keyed by the source item's fingerprint so that
// repeated commits are idempotent upserts.
type Document struct {
	Fingerprint Fingerprint
	SourcePath  string
	Contents    string
	Vector      []float32
	Metadata    map[string]string
	Provider    string // provider that produced the extraction
	Confidence  int    // provider-reported confidence, 0-100
	StoredAt    int64  // unix microseconds
}
