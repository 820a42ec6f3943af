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


package checkpoint

import (
	"slices"
	"time"

	"github.com/poiesic/docstream/core"
)

// Record is the durable account of pipeline progress and the sole
// source of truth for resume. If LastCompletedBatchIndex is N, every
// item in batches 0..N has been durably stored downstream, and no item
// whose fingerprint appears in ProcessedFingerprints is reprocessed.
type Record struct {
	LastCompletedBatchIndex int                `json:"last_completed_batch_index"`
	TotalBatches            int                `json:"total_batches"`
	ProcessedFingerprints   []core.Fingerprint `json:"processed_fingerprints"`
	Timestamp               time.Time          `json:"timestamp"`
}

// NewRecord builds a record from the processed-fingerprint set. The
// fingerprints are sorted so saved records are byte-stable for
// identical progress.
func NewRecord(lastBatch, totalBatches int, processed map[core.Fingerprint]struct{}) *Record {
	fingerprints := make([]core.Fingerprint, 0, len(processed))
	for fp := range processed {
		fingerprints = append(fingerprints, fp)
	}
	slices.Sort(fingerprints)

	return &Record{
		LastCompletedBatchIndex: lastBatch,
		TotalBatches:            totalBatches,
		ProcessedFingerprints:   fingerprints,
	}
}

// ProcessedSet returns the processed fingerprints as a set for O(1)
// resume lookups.
func (r *Record) ProcessedSet() map[core.Fingerprint]struct{} {
	set := make(map[core.Fingerprint]struct{}, len(r.ProcessedFingerprints))
	for _, fp := range r.ProcessedFingerprints {
		set[fp] = struct{}{}
	}
	return set
}
