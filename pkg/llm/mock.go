package llm

import (
	"context"
	"sync"
)

// MockCall records one Generate invocation.
type MockCall struct {
	Prompt       string
	SystemPrompt string
	Options      Options
}

// MockGateway is a configurable Gateway for tests. Set GenerateFunc to
// control behavior; calls are recorded in order.
type MockGateway struct {
	GenerateFunc func(ctx context.Context, prompt, systemPrompt string, opts Options) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	mu    sync.Mutex
	calls []MockCall
}

// NewMockGateway creates a mock that answers every call with response.
func NewMockGateway(response string) *MockGateway {
	return &MockGateway{
		GenerateFunc: func(context.Context, string, string, Options) (string, error) {
			return response, nil
		},
	}
}

// Generate implements Gateway.
func (m *MockGateway) Generate(ctx context.Context, prompt, systemPrompt string, opts Options) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, SystemPrompt: systemPrompt, Options: opts})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, systemPrompt, opts)
	}
	return "", nil
}

// Calls returns a copy of the recorded calls.
func (m *MockGateway) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Generate ran.
func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Model implements Gateway.
func (m *MockGateway) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Close implements Gateway.
func (m *MockGateway) Close() error {
	return nil
}

var _ Gateway = (*MockGateway)(nil)
