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

import "github.com/poiesic/docstream/core"

// planner carves ordered batches off the pending item list. Batches are
// carved lazily so the effective batch size can shrink mid-run under
// memory pressure; the processed-fingerprint set in the checkpoint is
// what keeps resume correct when two runs partition the same input
// differently.
type planner struct {
	items     []*core.WorkItem
	pos       int
	batchSize int
	nextIndex int
}

// newPlanner builds a planner over pending items. nextIndex is the
// index the first carved batch receives; on resume it continues after
// the checkpoint watermark.
func newPlanner(items []*core.WorkItem, batchSize, nextIndex int) *planner {
	return &planner{
		items:     items,
		batchSize: batchSize,
		nextIndex: nextIndex,
	}
}

// Next carves the next batch, or returns nil when input is exhausted.
func (p *planner) Next() *core.Batch {
	if p.pos >= len(p.items) {
		return nil
	}

	end := p.pos + p.batchSize
	if end > len(p.items) {
		end = len(p.items)
	}

	batch := &core.Batch{
		Index: p.nextIndex,
		Items: p.items[p.pos:end],
	}
	p.pos = end
	p.nextIndex++
	return batch
}

// Shrink halves the size of subsequently carved batches, to a floor of
// one item. Returns the new size.
func (p *planner) Shrink() int {
	if p.batchSize > 1 {
		p.batchSize /= 2
	}
	return p.batchSize
}

// Remaining reports how many items have not been carved yet.
func (p *planner) Remaining() int {
	return len(p.items) - p.pos
}

// TotalBatches estimates the total batch count for checkpoint records:
// batches carved so far plus the batches the remaining items would fill
// at the current size.
func (p *planner) TotalBatches() int {
	remaining := p.Remaining()
	pending := (remaining + p.batchSize - 1) / p.batchSize
	return p.nextIndex + pending
}
