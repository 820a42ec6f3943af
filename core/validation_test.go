package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItem() *WorkItem {
	return &WorkItem{
		Path:        "/data/input/report.txt",
		Fingerprint: FingerprintFromContent([]byte("report")),
		Status:      StatusDiscovered,
	}
}

func TestValidateWorkItem(t *testing.T) {
	t.Run("valid item", func(t *testing.T) {
		require.NoError(t, ValidateWorkItem(validItem()))
	})

	t.Run("nil item", func(t *testing.T) {
		err := ValidateWorkItem(nil)
		assert.ErrorIs(t, err, ErrInvalidWorkItem)
	})

	t.Run("empty path", func(t *testing.T) {
		item := validItem()
		item.Path = ""
		err := ValidateWorkItem(item)
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("empty fingerprint", func(t *testing.T) {
		item := validItem()
		item.Fingerprint = ""
		err := ValidateWorkItem(item)
		assert.ErrorIs(t, err, ErrEmptyFingerprint)
	})

	t.Run("undefined status", func(t *testing.T) {
		item := validItem()
		item.Status = ItemStatus(42)
		err := ValidateWorkItem(item)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestValidateDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc := &Document{
			Fingerprint: FingerprintFromContent([]byte("doc")),
			Contents:    "extracted text",
			Confidence:  85,
		}
		require.NoError(t, ValidateDocument(doc))
	})

	t.Run("nil document", func(t *testing.T) {
		assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
	})

	t.Run("missing fingerprint", func(t *testing.T) {
		doc := &Document{Contents: "text", Confidence: 50}
		assert.ErrorIs(t, ValidateDocument(doc), ErrEmptyFingerprint)
	})

	t.Run("confidence out of range", func(t *testing.T) {
		doc := &Document{Fingerprint: "abc", Confidence: 101}
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidConfidence)

		doc.Confidence = -1
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidConfidence)
	})

	t.Run("empty vector and contents allowed", func(t *testing.T) {
		doc := &Document{Fingerprint: "abc", Confidence: 0}
		require.NoError(t, ValidateDocument(doc))
	})
}
