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


package cache

import (
	"container/list"
	"sync"

	"github.com/poiesic/docstream/core"
)

// Bounded is a capacity-limited least-recently-used cache mapping a
// content fingerprint to a previously computed result. It prevents
// unbounded memory growth from repeated inputs.
//
// The cache is volatile: it starts empty on every run and eviction is
// silent. Evicted results are always reproducible by recomputation, so
// eviction must never be treated as data loss.
//
// Bounded is safe for concurrent use by the worker pool; all operations
// are serialized by an internal mutex so recency updates never race.
type Bounded[V any] struct {
	capacity int
	mu       sync.Mutex
	order    *list.List // front = most recently used
	entries  map[core.Fingerprint]*list.Element
	hits     uint64
	misses   uint64
}

type entry[V any] struct {
	key   core.Fingerprint
	value V
}

// NewBounded creates a cache holding at most capacity entries.
// Returns ErrInvalidCapacity if capacity is not a positive integer.
func NewBounded[V any](capacity int) (*Bounded[V], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Bounded[V]{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[core.Fingerprint]*list.Element, capacity),
	}, nil
}

// Get returns the cached value for the fingerprint. A hit updates
// recency; a miss simply reports not-found.
func (c *Bounded[V]) Get(fp core.Fingerprint) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[fp]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return elem.Value.(*entry[V]).value, true
}

// Put stores a value under the fingerprint, updating recency. When the
// cache is full, the least recently touched entry is evicted first;
// among entries never touched since insertion, the oldest inserted one
// is evicted.
func (c *Bounded[V]) Put(fp core.Fingerprint, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[fp]; ok {
		elem.Value.(*entry[V]).value = value
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry[V]).key)
		}
	}

	c.entries[fp] = c.order.PushFront(&entry[V]{key: fp, value: value})
}

// Len returns the number of entries currently cached.
func (c *Bounded[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports cumulative hit and miss counts since construction.
func (c *Bounded[V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
