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


package plaintext

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/docstream/provider"
)

// Provider is the local, fast extractor. It decodes content as UTF-8
// text and reports confidence from the fraction of printable runes, so
// binary or mangled input scores low and escalates to a remote provider.
type Provider struct {
	logger *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New creates a plaintext provider.
func New() *Provider {
	return &Provider{
		logger: slog.Default().With("component", "plaintext-provider"),
	}
}

// Name identifies the provider in results and logs.
func (p *Provider) Name() string {
	return "plaintext"
}

// Attempt decodes the input as text.
func (p *Provider) Attempt(ctx context.Context, input *provider.Input) (*provider.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input.Content) == 0 {
		return nil, provider.Permanent(errors.New("empty input content"))
	}

	payload, confidence := decode(input.Content)
	p.logger.Debug("decoded input", "path", input.Path, "confidence", confidence)

	return &provider.Outcome{
		Payload:    payload,
		Confidence: confidence,
	}, nil
}

// decode extracts printable text and scores it. Invalid UTF-8 sequences
// and control characters count against the score; whitespace is neutral.
func decode(content []byte) (string, int) {
	var sb strings.Builder
	sb.Grow(len(content))

	total := 0
	printable := 0

	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		i += size
		total++

		if r == utf8.RuneError && size == 1 {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
			sb.WriteRune(r)
		}
	}

	if total == 0 {
		return "", 0
	}
	return sb.String(), printable * 100 / total
}
