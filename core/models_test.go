package core

import (
	"testing"
)

func TestFingerprintFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same fingerprint",
			content: "test content",
		},
		{
			name:    "empty content",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp1 := FingerprintFromContent([]byte(tt.content))
			fp2 := FingerprintFromContent([]byte(tt.content))

			if fp1 != fp2 {
				t.Errorf("FingerprintFromContent() produced different fingerprints for same content: %s vs %s", fp1, fp2)
			}
			if len(fp1) != 32 {
				t.Errorf("FingerprintFromContent() length = %d, want 32 hex chars", len(fp1))
			}
		})
	}
}

func TestFingerprintFromContent_Different(t *testing.T) {
	fp1 := FingerprintFromContent([]byte("content1"))
	fp2 := FingerprintFromContent([]byte("content2"))

	if fp1 == fp2 {
		t.Errorf("FingerprintFromContent() produced same fingerprint for different content")
	}
}

func TestItemStatus_String(t *testing.T) {
	tests := []struct {
		status ItemStatus
		want   string
	}{
		{StatusDiscovered, "discovered"},
		{StatusInProgress, "in-progress"},
		{StatusSucceeded, "succeeded"},
		{StatusFailed, "failed"},
		{StatusSkippedDuplicate, "skipped-duplicate"},
		{ItemStatus(0), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("ItemStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
