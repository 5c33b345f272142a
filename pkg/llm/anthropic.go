package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates an Anthropic client. Endpoint overrides the
// default API base URL when set.
func NewAnthropicClient(cfg *ClientConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
		logger: logger.Named("llm-anthropic"),
	}, nil
}

// Generate sends one message with the system prompt as the system field.
func (c *AnthropicClient) Generate(ctx context.Context, prompt, systemPrompt string, opts Options) (string, error) {
	temperature := float32(opts.Temperature)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemPrompt,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", withContext(ClassifyError(err), c.model, "anthropic")
	}

	text := extractAnthropicText(resp)
	if text == "" {
		return "", NewErrorWithContext(ErrorTypeResponse, "no text content in response", false, nil, c.model, "anthropic", 0)
	}

	c.logger.Info("LLM request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

func extractAnthropicText(resp anthropic.MessagesResponse) string {
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			parts = append(parts, *block.Text)
		}
	}
	return strings.Join(parts, "")
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string {
	return c.model
}

// Close is a no-op.
func (c *AnthropicClient) Close() error {
	return nil
}

var _ Gateway = (*AnthropicClient)(nil)
