package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/llm"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/logging"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/prompts"
)

// GenerationTemperature keeps SQL output close to deterministic.
const GenerationTemperature = 0.1

// QueryGenerator turns a natural-language question into one SQL statement.
type QueryGenerator interface {
	Generate(ctx context.Context, question, schemaContext string) (string, error)
}

type queryGenerator struct {
	gateway   llm.Gateway
	maxTokens int
	logger    *zap.Logger
}

func NewQueryGenerator(gateway llm.Gateway, maxTokens int, logger *zap.Logger) QueryGenerator {
	return &queryGenerator{
		gateway:   gateway,
		maxTokens: maxTokens,
		logger:    logger.Named("query-generator"),
	}
}

var _ QueryGenerator = (*queryGenerator)(nil)

func (g *queryGenerator) Generate(ctx context.Context, question, schemaContext string) (string, error) {
	raw, err := g.gateway.Generate(ctx,
		prompts.BuildSQLPrompt(question, schemaContext),
		prompts.SQLGeneratorSystem,
		llm.Options{Temperature: GenerationTemperature, MaxTokens: g.maxTokens},
	)
	if err != nil {
		g.logger.Error("SQL generation call failed",
			zap.String("model", g.gateway.Model()),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperrors.ErrGenerationFailed, err)
	}

	sqlQuery := llm.CleanSQL(raw)
	if sqlQuery == "" {
		g.logger.Warn("Model returned no SQL",
			zap.String("response", logging.TruncateString(raw, 200)))
		return "", fmt.Errorf("%w: empty response", apperrors.ErrGenerationFailed)
	}

	g.logger.Debug("Generated SQL", zap.String("sql", logging.SanitizeQuery(sqlQuery)))
	return sqlQuery, nil
}
