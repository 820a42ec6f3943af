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


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docstream/core"
	"github.com/poiesic/docstream/store"
)

// DocumentStore implements store.Store for BadgerDB. Commits are
// keyed by fingerprint, so replaying a batch overwrites rather than
// duplicates.
type DocumentStore struct {
	backend *Backend
}

var _ store.Store = (*DocumentStore)(nil)

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(backend *Backend) *DocumentStore {
	return &DocumentStore{backend: backend}
}

// CommitBatch writes documents in a single transaction. Fingerprints
// already present are overwritten in place.
func (s *DocumentStore) CommitBatch(ctx context.Context, docs []*core.Document) error {
	if s.backend.IsClosed() {
		return store.ErrStorageClosed
	}
	if len(docs) == 0 {
		return nil
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC().UnixMicro()
		for _, doc := range docs {
			if err := core.ValidateDocument(doc); err != nil {
				return err
			}
			if doc.StoredAt == 0 {
				doc.StoredAt = now
			}

			value := store.MarshalDocument(doc)
			if err := tx.Set(makeDocumentKey(doc.Fingerprint), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a document by fingerprint.
func (s *DocumentStore) Get(ctx context.Context, fp core.Fingerprint) (*core.Document, error) {
	if s.backend.IsClosed() {
		return nil, store.ErrStorageClosed
	}

	var result *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(fp))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return store.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = store.UnmarshalDocument(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	if s.backend.IsClosed() {
		return 0, store.ErrStorageClosed
	}

	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(documentPrefix + ":")

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// DeleteAll removes every stored document. Destructive; callers gate
// this behind explicit confirmation.
func (s *DocumentStore) DeleteAll(ctx context.Context) error {
	if s.backend.IsClosed() {
		return store.ErrStorageClosed
	}
	return s.backend.DropPrefix([]byte(documentPrefix + ":"))
}

// Close closes the underlying backend.
func (s *DocumentStore) Close() error {
	return s.backend.Close()
}
