package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/llm"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/prompts"
)

// InsightTemperature leaves the business summaries some room to phrase.
const InsightTemperature = 0.3

// InsightGenerator writes business summaries. Every failure wraps
// apperrors.ErrSummarizationDegraded; callers treat it as a warning.
type InsightGenerator interface {
	// Summarize explains a query result to the person who asked question.
	Summarize(ctx context.Context, question string, rows []models.Row, rowCount int) (string, error)
	// Insights comments on an analytics payload.
	Insights(ctx context.Context, topic string, data any) (string, error)
}

type insightGenerator struct {
	gateway   llm.Gateway
	maxTokens int
	logger    *zap.Logger
}

func NewInsightGenerator(gateway llm.Gateway, maxTokens int, logger *zap.Logger) InsightGenerator {
	return &insightGenerator{
		gateway:   gateway,
		maxTokens: maxTokens,
		logger:    logger.Named("insight-generator"),
	}
}

var _ InsightGenerator = (*insightGenerator)(nil)

func (g *insightGenerator) Summarize(ctx context.Context, question string, rows []models.Row, rowCount int) (string, error) {
	return g.generate(ctx, prompts.BuildSummaryPrompt(question, rows, rowCount))
}

func (g *insightGenerator) Insights(ctx context.Context, topic string, data any) (string, error) {
	return g.generate(ctx, prompts.BuildInsightPrompt(topic, data))
}

func (g *insightGenerator) generate(ctx context.Context, prompt string) (string, error) {
	raw, err := g.gateway.Generate(ctx, prompt, prompts.InsightGeneratorSystem,
		llm.Options{Temperature: InsightTemperature, MaxTokens: g.maxTokens})
	if err != nil {
		g.logger.Warn("Insight generation failed",
			zap.String("model", g.gateway.Model()),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", apperrors.ErrSummarizationDegraded, err)
	}

	text := strings.TrimSpace(llm.StripThinking(raw))
	if text == "" {
		return "", fmt.Errorf("%w: empty response", apperrors.ErrSummarizationDegraded)
	}
	return text, nil
}
