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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileName is the well-known checkpoint file name inside the
// processing output directory.
const FileName = ".checkpoint.json"

// Store persists checkpoint records with atomic replacement: a save
// writes to a temporary file, syncs it, then renames it over the prior
// record, so a crash mid-write never corrupts the last valid
// checkpoint. Writes are single-writer (the orchestrator's committing
// step), so no locking is needed beyond the atomic rename.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a checkpoint store rooted at the given output
// directory, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{
		path:   filepath.Join(dir, FileName),
		logger: slog.Default().With("component", "checkpoint"),
	}, nil
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted record. A missing file returns (nil, nil).
// A malformed or unreadable record returns ErrCorrupt: discarding
// progress is a user-visible decision the caller must make explicitly,
// never an implicit one.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no checkpoint file found", "path", s.path)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if record.LastCompletedBatchIndex < -1 || record.TotalBatches < 0 {
		return nil, fmt.Errorf("%w: implausible batch indices (%d/%d)",
			ErrCorrupt, record.LastCompletedBatchIndex, record.TotalBatches)
	}

	s.logger.Info("checkpoint loaded",
		"batch", record.LastCompletedBatchIndex,
		"totalBatches", record.TotalBatches,
		"processed", len(record.ProcessedFingerprints))

	return &record, nil
}

// Save atomically persists the record, stamping it with the current
// time. It is called exactly once per fully committed batch, and only
// after the batch's results are durable downstream.
func (s *Store) Save(record *Record) error {
	record.Timestamp = time.Now().UTC()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}

	s.logger.Info("checkpoint saved",
		"batch", record.LastCompletedBatchIndex,
		"totalBatches", record.TotalBatches,
		"processed", len(record.ProcessedFingerprints))

	return nil
}

// Clear removes the checkpoint file. Removing an absent file is not an
// error. Used after a completed run and on explicit restart directives.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	s.logger.Info("checkpoint cleared", "path", s.path)
	return nil
}
