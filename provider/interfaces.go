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


package provider

import "context"

// Input is the unit of work handed to a capability provider: the source
// path (for logging and format hints) and the raw content to extract from.
type Input struct {
	Path    string
	Content []byte
}

// Outcome is a successful provider result: the extracted payload and the
// provider's self-reported confidence score.
type Outcome struct {
	// Payload is the extracted text.
	Payload string

	// Confidence is a quality score from 0 to 100 reported by the
	// provider for its own output. It gates escalation to the next
	// provider in the chain.
	Confidence int
}

// Provider is a capability provider for text extraction. Providers are
// ordered by the router from cheap/local to expensive/remote.
//
// Attempt either returns an Outcome or an error classified by the
// transient/permanent taxonomy in this package. Callers supply the
// per-call timeout through ctx. Implementations must be safe for
// concurrent use by the worker pool.
type Provider interface {
	// Name identifies the provider in results, logs, and statistics.
	Name() string

	// Attempt extracts text from the input.
	Attempt(ctx context.Context, input *Input) (*Outcome, error)
}
