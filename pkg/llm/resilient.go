package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/retry"
)

// ResilientGateway adds a per-call timeout, transient-error retries and a
// circuit breaker around a provider client.
type ResilientGateway struct {
	inner   Gateway
	breaker *CircuitBreaker
	retry   *retry.Config
	timeout time.Duration
	logger  *zap.Logger
}

// ResilienceConfig configures NewResilientGateway.
type ResilienceConfig struct {
	Timeout    time.Duration
	MaxRetries int
	Breaker    CircuitBreakerConfig
}

// NewResilientGateway wraps inner.
func NewResilientGateway(inner Gateway, cfg ResilienceConfig, logger *zap.Logger) *ResilientGateway {
	logger = logger.Named("llm-gateway")

	breakerCfg := cfg.Breaker
	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(from, to CircuitState) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
	}

	retryCfg := retry.ModelConfig(cfg.MaxRetries)
	retryCfg.OnRetry = func(attempt int, err error) {
		logger.Warn("Retrying model call", zap.Int("attempt", attempt), zap.Error(err))
	}

	return &ResilientGateway{
		inner:   inner,
		breaker: NewCircuitBreaker(breakerCfg),
		retry:   retryCfg,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Generate calls the provider, retrying transient failures while the breaker allows.
func (g *ResilientGateway) Generate(ctx context.Context, prompt, systemPrompt string, opts Options) (string, error) {
	return retry.DoIfRetryableWithResult(ctx, g.retry, func() (string, error) {
		if err := g.breaker.Allow(); err != nil {
			return "", NewError(ErrorTypeCircuit, "call rejected", false, err)
		}

		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		out, err := g.inner.Generate(callCtx, prompt, systemPrompt, opts)
		if err != nil {
			// Caller cancellation says nothing about provider health.
			if !errors.Is(ctx.Err(), context.Canceled) {
				g.breaker.RecordFailure()
			}
			return "", ClassifyError(err)
		}
		g.breaker.RecordSuccess()
		return out, nil
	})
}

// BreakerState exposes the breaker state for health reporting.
func (g *ResilientGateway) BreakerState() CircuitState {
	return g.breaker.State()
}

// Model returns the wrapped client's model.
func (g *ResilientGateway) Model() string {
	return g.inner.Model()
}

// Close closes the wrapped client.
func (g *ResilientGateway) Close() error {
	return g.inner.Close()
}

var _ Gateway = (*ResilientGateway)(nil)
