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

import "fmt"

// ValidateWorkItem validates a WorkItem according to domain rules.
//
// Validation rules:
//   - Path must not be empty
//   - Fingerprint must not be empty
//   - Status must be a defined lifecycle value
func ValidateWorkItem(item *WorkItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidWorkItem)
	}

	if item.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidWorkItem, ErrEmptyPath)
	}

	if item.Fingerprint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidWorkItem, ErrEmptyFingerprint)
	}

	if err := ValidateStatus(item.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkItem, err)
	}

	return nil
}

// ValidateStatus validates that an ItemStatus has a defined value.
func ValidateStatus(status ItemStatus) error {
	switch status {
	case StatusDiscovered, StatusInProgress, StatusSucceeded, StatusFailed, StatusSkippedDuplicate:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}
}

// ValidateDocument validates a Document before it is committed downstream.
//
// Validation rules:
//   - Fingerprint must not be empty
//   - Confidence must be within 0-100
//
// NOT validated (legitimately empty in degraded runs):
//   - Vector (empty when no embedder is configured)
//   - Contents (a provider may legitimately extract an empty payload)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Fingerprint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFingerprint)
	}

	if doc.Confidence < 0 || doc.Confidence > 100 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidConfidence)
	}

	return nil
}
