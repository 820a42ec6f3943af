package plaintext

import (
	"context"
	"testing"

	"github.com/poiesic/docstream/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptCleanText(t *testing.T) {
	p := New()
	out, err := p.Attempt(context.Background(), &provider.Input{
		Path:    "a.txt",
		Content: []byte("Hello, world.\nA second line.\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, out.Confidence)
	assert.Contains(t, out.Payload, "Hello, world.")
}

func TestAttemptBinaryContentScoresLow(t *testing.T) {
	p := New()
	content := make([]byte, 100)
	for i := range content {
		content[i] = byte(i % 7) // control bytes and invalid sequences
	}
	out, err := p.Attempt(context.Background(), &provider.Input{Path: "a.bin", Content: content})
	require.NoError(t, err)
	assert.Less(t, out.Confidence, 50)
}

func TestAttemptMixedContent(t *testing.T) {
	p := New()
	content := append([]byte("readable text "), 0x00, 0x01, 0xff, 0xfe)
	out, err := p.Attempt(context.Background(), &provider.Input{Path: "m.dat", Content: content})
	require.NoError(t, err)
	assert.Greater(t, out.Confidence, 50)
	assert.Less(t, out.Confidence, 100)
	assert.Contains(t, out.Payload, "readable text")
}

func TestAttemptEmptyContentIsPermanent(t *testing.T) {
	p := New()
	_, err := p.Attempt(context.Background(), &provider.Input{Path: "empty.txt"})
	require.Error(t, err)
	assert.True(t, provider.IsPermanent(err))
}

func TestAttemptHonorsCancellation(t *testing.T) {
	p := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Attempt(ctx, &provider.Input{Path: "a.txt", Content: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}
