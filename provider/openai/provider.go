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


package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/docstream/provider"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = `You are a text extraction engine. The user message contains the raw contents of a document. Return the readable text of the document, cleaned of encoding artifacts and markup noise. Return only the extracted text, with no commentary.`

// Confidence reported for successful remote extractions. The remote
// model does not score its own output, so a fixed high value stands in,
// mirroring how managed extraction services report quality.
const reportedConfidence = 95

// Provider extracts text through an OpenAI-compatible chat model. It is
// the slow, expensive, higher-quality end of the fallback chain.
type Provider struct {
	client     llms.Model
	name       string
	confidence int
	logger     *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithName overrides the provider name used in results and logs.
func WithName(name string) Option {
	return func(p *Provider) {
		p.name = name
	}
}

// WithConfidence overrides the fixed confidence reported for successes.
func WithConfidence(confidence int) Option {
	return func(p *Provider) {
		p.confidence = confidence
	}
}

// New creates a remote extraction provider against an OpenAI-compatible
// endpoint. Use "none" as a token placeholder for local services that
// don't require authentication.
func New(host, model string, opts ...Option) (*Provider, error) {
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken("none"),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		client:     client,
		name:       "openai",
		confidence: reportedConfidence,
		logger:     slog.Default().With("component", "openai-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name identifies the provider in results and logs.
func (p *Provider) Name() string {
	return p.name
}

// Attempt sends the document contents to the model for extraction.
func (p *Provider) Attempt(ctx context.Context, input *provider.Input) (*provider.Outcome, error) {
	if len(input.Content) == 0 {
		return nil, provider.Permanent(errors.New("empty input content"))
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(string(input.Content)),
			},
		},
	}

	response, err := p.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		p.logger.Error("extraction request failed", "path", input.Path, "err", err)
		return nil, classify(err)
	}

	if len(response.Choices) < 1 {
		p.logger.Warn("no choices returned from model", "path", input.Path)
		return nil, provider.Transient(errors.New("model returned no choices"))
	}

	payload := strings.TrimSpace(response.Choices[0].Content)
	p.logger.Debug("extracted text", "path", input.Path, "length", len(payload))

	return &provider.Outcome{
		Payload:    payload,
		Confidence: p.confidence,
	}, nil
}

// classify maps API failures onto the transient/permanent taxonomy.
// Rate limits, server errors, and connectivity issues are retryable;
// client errors about the request itself are not.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status code: 400"),
		strings.Contains(msg, "status code: 401"),
		strings.Contains(msg, "status code: 403"),
		strings.Contains(msg, "status code: 404"),
		strings.Contains(msg, "context length"):
		return provider.Permanent(err)
	default:
		return provider.Transient(err)
	}
}
