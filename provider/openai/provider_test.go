package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docstream/provider"
	"github.com/stretchr/testify/assert"
)

func TestClassifyPermanent(t *testing.T) {
	for _, msg := range []string{
		"API returned unexpected status code: 400",
		"API returned unexpected status code: 401",
		"API returned unexpected status code: 404",
		"request exceeds the model context length",
	} {
		err := classify(errors.New(msg))
		assert.True(t, provider.IsPermanent(err), msg)
	}
}

func TestClassifyTransient(t *testing.T) {
	for _, msg := range []string{
		"API returned unexpected status code: 429",
		"API returned unexpected status code: 503",
		"connection refused",
	} {
		err := classify(errors.New(msg))
		assert.False(t, provider.IsPermanent(err), msg)
		assert.True(t, provider.IsTransient(err), msg)
	}
}

func TestClassifyPassesContextErrors(t *testing.T) {
	assert.ErrorIs(t, classify(context.DeadlineExceeded), context.DeadlineExceeded)
	assert.ErrorIs(t, classify(context.Canceled), context.Canceled)
}
