package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
)

func TestNewGateway_OpenAICompatible(t *testing.T) {
	g, err := NewGateway(context.Background(), config.LLMConfig{
		Provider: ProviderOpenAI,
		BaseURL:  defaultOllamaURL,
		Model:    "llama3.2",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", g.Model())
	assert.IsType(t, &ResilientGateway{}, g)
}

func TestNewGateway_UnknownProvider(t *testing.T) {
	_, err := NewGateway(context.Background(), config.LLMConfig{Provider: "cohere"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider")
}
