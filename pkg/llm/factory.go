package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
)

// defaultOllamaURL is the config default; hosted providers ignore it.
const defaultOllamaURL = "http://localhost:11434/v1"

// NewGateway builds the configured provider client wrapped in retries and
// a circuit breaker.
func NewGateway(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Gateway, error) {
	clientCfg := &ClientConfig{
		Endpoint: cfg.BaseURL,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	var (
		inner Gateway
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI, "":
		inner, err = NewOpenAIClient(clientCfg, logger)
	case ProviderAnthropic:
		if clientCfg.Endpoint == defaultOllamaURL {
			clientCfg.Endpoint = ""
		}
		inner, err = NewAnthropicClient(clientCfg, logger)
	case ProviderGemini:
		inner, err = NewGeminiClient(ctx, clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	return NewResilientGateway(inner, ResilienceConfig{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Breaker: CircuitBreakerConfig{
			Threshold:  cfg.FailureThreshold,
			ResetAfter: cfg.ResetAfter,
		},
	}, logger), nil
}
