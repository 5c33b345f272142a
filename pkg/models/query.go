package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
)

// QueryStatus is the terminal (or pending) state of a pipeline run.
type QueryStatus string

const (
	QueryStatusPending          QueryStatus = "pending"
	QueryStatusSuccess          QueryStatus = "success"
	QueryStatusValidationFailed QueryStatus = "validation_failed"
	QueryStatusError            QueryStatus = "error"
)

// RiskLevel grades a validation verdict.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank orders risk levels; unknown values rank as high.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	if a.Rank() == 2 {
		return RiskHigh
	}
	return a
}

// QueryRequest is a natural-language question submitted by a caller.
type QueryRequest struct {
	Text        string    `json:"text"`
	RequestedAt time.Time `json:"requested_at"`
	Validate    bool      `json:"validate"`
	// RequestedBy is the opaque caller identity (token subject).
	RequestedBy string `json:"requested_by,omitempty"`
	Persist     bool   `json:"persist,omitempty"`
}

// ValidationVerdict is the merged outcome of the semantic and deterministic checks.
type ValidationVerdict struct {
	Valid         bool      `json:"valid"`
	Issues        []string  `json:"issues"`
	RiskLevel     RiskLevel `json:"risk_level"`
	EstimatedRows int64     `json:"estimated_rows"`
}

// ColumnInfo describes a result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Field is a single named value in a Row.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered mapping from column name to value.
type Row []Field

// Get returns the value for name and whether it was present.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Map returns the row as an unordered map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON writes the row as an object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// QueryResult is the immutable record of one pipeline run.
type QueryResult struct {
	ID           uuid.UUID          `json:"id"`
	Request      QueryRequest       `json:"request"`
	Domain       string             `json:"domain"`
	GeneratedSQL string             `json:"generated_sql,omitempty"`
	Validation   *ValidationVerdict `json:"validation,omitempty"`
	Columns      []ColumnInfo       `json:"columns,omitempty"`
	Rows         []Row              `json:"rows,omitempty"`
	RowCount     int                `json:"row_count"`
	Summary      string             `json:"summary,omitempty"`
	Status       QueryStatus        `json:"status"`
	ErrorKind    apperrors.Kind     `json:"error_kind,omitempty"`
	ErrorMessage string             `json:"error,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
	CompletedAt  time.Time          `json:"completed_at"`
	DurationMs   int64              `json:"duration_ms"`
}

// Succeeded reports whether the run reached the success state.
func (r *QueryResult) Succeeded() bool {
	return r.Status == QueryStatusSuccess
}
