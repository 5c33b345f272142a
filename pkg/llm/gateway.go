// Package llm is the model gateway: prompt and system instruction in, text out.
package llm

import (
	"context"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Options tune a single generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Gateway is the only surface the pipeline sees. Implementations may return
// malformed text; callers must parse defensively.
type Gateway interface {
	Generate(ctx context.Context, prompt, systemPrompt string, opts Options) (string, error)

	// Model returns the configured model name.
	Model() string

	// Close releases client resources.
	Close() error
}
