package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/jsonutil"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/llm"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/prompts"
	sqlguard "github.com/Manzanedodelgado/IA-DENTAL/pkg/sql"
)

const (
	// ValidationTemperature makes the judge deterministic.
	ValidationTemperature = 0.0

	issueUnparseableVerdict = "unparseable verdict"
)

// verdictSchema is the shape the semantic judge must answer with.
const verdictSchema = `{
  "type": "object",
  "required": ["valid", "risk_level"],
  "properties": {
    "valid": {"type": "boolean"},
    "issues": {"type": "array"},
    "risk_level": {"type": "string", "enum": ["low", "medium", "high"]}
  }
}`

var verdictSchemaLoader = gojsonschema.NewStringLoader(verdictSchema)

// QueryValidator decides whether a generated statement may run.
type QueryValidator interface {
	// Validate runs the semantic judge and the deterministic rules and merges them.
	Validate(ctx context.Context, sqlQuery, schemaContext string) models.ValidationVerdict

	// Inspect runs only the deterministic rules.
	Inspect(sqlQuery string) models.ValidationVerdict
}

type queryValidator struct {
	gateway   llm.Gateway
	maxTokens int
	logger    *zap.Logger
}

func NewQueryValidator(gateway llm.Gateway, maxTokens int, logger *zap.Logger) QueryValidator {
	return &queryValidator{
		gateway:   gateway,
		maxTokens: maxTokens,
		logger:    logger.Named("query-validator"),
	}
}

var _ QueryValidator = (*queryValidator)(nil)

func (v *queryValidator) Validate(ctx context.Context, sqlQuery, schemaContext string) models.ValidationVerdict {
	semantic := v.semantic(ctx, sqlQuery, schemaContext)
	return MergeVerdicts(semantic, v.Inspect(sqlQuery))
}

func (v *queryValidator) Inspect(sqlQuery string) models.ValidationVerdict {
	inspection := sqlguard.Inspect(sqlQuery)
	verdict := models.ValidationVerdict{
		Valid:     inspection.Safe(),
		Issues:    inspection.Issues,
		RiskLevel: models.RiskLow,
	}
	if !inspection.Safe() {
		verdict.RiskLevel = models.RiskHigh
	}
	if verdict.Issues == nil {
		verdict.Issues = []string{}
	}
	return verdict
}

func (v *queryValidator) semantic(ctx context.Context, sqlQuery, schemaContext string) models.ValidationVerdict {
	raw, err := v.gateway.Generate(ctx,
		prompts.BuildValidationPrompt(sqlQuery, schemaContext),
		prompts.QueryValidatorSystem,
		llm.Options{Temperature: ValidationTemperature, MaxTokens: v.maxTokens},
	)
	if err != nil {
		v.logger.Warn("Semantic validation unavailable", zap.Error(err))
		return rejectedVerdict(fmt.Sprintf("semantic validation unavailable: %v", err))
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		v.logger.Warn("Unparseable validation verdict", zap.Error(err))
		return rejectedVerdict(issueUnparseableVerdict)
	}
	return verdict
}

func rejectedVerdict(issue string) models.ValidationVerdict {
	return models.ValidationVerdict{
		Valid:         false,
		Issues:        []string{issue},
		RiskLevel:     models.RiskHigh,
		EstimatedRows: 0,
	}
}

type rawVerdict struct {
	Valid         bool              `json:"valid"`
	Issues        []json.RawMessage `json:"issues"`
	RiskLevel     string            `json:"risk_level"`
	EstimatedRows json.RawMessage   `json:"estimated_rows"`
}

// ParseVerdict extracts, schema-checks and decodes a judge response.
func ParseVerdict(response string) (models.ValidationVerdict, error) {
	doc, err := llm.ExtractJSON(response)
	if err != nil {
		return models.ValidationVerdict{}, err
	}

	result, err := gojsonschema.Validate(verdictSchemaLoader, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return models.ValidationVerdict{}, fmt.Errorf("load verdict: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return models.ValidationVerdict{}, fmt.Errorf("verdict does not match schema: %s", strings.Join(msgs, "; "))
	}

	var rv rawVerdict
	if err := json.Unmarshal([]byte(doc), &rv); err != nil {
		return models.ValidationVerdict{}, fmt.Errorf("unmarshal verdict: %w", err)
	}

	verdict := models.ValidationVerdict{
		Valid:     rv.Valid,
		Issues:    make([]string, 0, len(rv.Issues)),
		RiskLevel: models.RiskLevel(rv.RiskLevel),
	}
	for _, issue := range rv.Issues {
		if s := jsonutil.FlexibleString(issue); s != "" {
			verdict.Issues = append(verdict.Issues, s)
		}
	}
	if n, ok := jsonutil.FlexibleCount(rv.EstimatedRows); ok {
		verdict.EstimatedRows = n
	}
	return verdict, nil
}

// MergeVerdicts combines the semantic and deterministic stages: valid only
// when both are valid, at the higher of the two risks, issues concatenated.
func MergeVerdicts(semantic, deterministic models.ValidationVerdict) models.ValidationVerdict {
	issues := make([]string, 0, len(semantic.Issues)+len(deterministic.Issues))
	issues = append(issues, semantic.Issues...)
	issues = append(issues, deterministic.Issues...)

	return models.ValidationVerdict{
		Valid:         semantic.Valid && deterministic.Valid,
		Issues:        issues,
		RiskLevel:     models.MaxRisk(semantic.RiskLevel, deterministic.RiskLevel),
		EstimatedRows: semantic.EstimatedRows,
	}
}
