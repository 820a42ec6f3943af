package mock

import (
	"context"
	"sync"

	"github.com/poiesic/docstream/provider"
)

// Step is one scripted response of a mock provider: either an outcome
// or an error. When a provider's script is exhausted, the last step
// repeats.
type Step struct {
	Outcome *provider.Outcome
	Err     error
}

// Provider is a test double for provider.Provider with a scripted
// sequence of responses. It is safe for concurrent use and records the
// number of Attempt calls.
type Provider struct {
	// AttemptFunc is called by Attempt if set, bypassing the script.
	AttemptFunc func(ctx context.Context, input *provider.Input) (*provider.Outcome, error)

	name   string
	script []Step

	mu        sync.Mutex
	callCount int
}

var _ provider.Provider = (*Provider)(nil)

// NewProvider creates a mock provider replaying the given steps in order.
// Note: Returns concrete type to allow test assertions via CallCount().
func NewProvider(name string, steps ...Step) *Provider {
	return &Provider{name: name, script: steps}
}

// Succeeding creates a mock provider that always returns the given
// payload and confidence.
func Succeeding(name, payload string, confidence int) *Provider {
	return NewProvider(name, Step{Outcome: &provider.Outcome{Payload: payload, Confidence: confidence}})
}

// Failing creates a mock provider that always returns err.
func Failing(name string, err error) *Provider {
	return NewProvider(name, Step{Err: err})
}

// Name identifies the mock in results and logs.
func (m *Provider) Name() string {
	return m.name
}

// Attempt replays the next scripted step.
func (m *Provider) Attempt(ctx context.Context, input *provider.Input) (*provider.Outcome, error) {
	m.mu.Lock()
	call := m.callCount
	m.callCount++
	m.mu.Unlock()

	if m.AttemptFunc != nil {
		return m.AttemptFunc(ctx, input)
	}

	if len(m.script) == 0 {
		return &provider.Outcome{Payload: "mock payload", Confidence: 100}, nil
	}

	if call >= len(m.script) {
		call = len(m.script) - 1
	}
	step := m.script[call]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Outcome, nil
}

// CallCount returns the number of Attempt calls made so far.
func (m *Provider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
