package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report kinds.
const (
	ReportKindIntegrity = "integrity"
	ReportKindAnalytics = "analytics"
	ReportKindMonthly   = "monthly"
	ReportKindQuery     = "query"
)

// Report categories.
const (
	CategoryDailyCheck      = "daily_check"
	CategoryWeeklyAnalytics = "weekly_analytics"
	CategoryMonthlyReport   = "monthly_report"
	CategoryInteractive     = "interactive"
)

// Report is an append-only record produced by a job or a persisted query.
type Report struct {
	ID                 uuid.UUID       `json:"id"`
	Kind               string          `json:"kind"`
	Category           string          `json:"category"`
	Severity           Severity        `json:"severity"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Payload            json.RawMessage `json:"payload"`
	RecommendedActions []string        `json:"recommended_actions"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ReportFilter narrows report listings.
type ReportFilter struct {
	Kind  string
	Since *time.Time
	Limit int
}

// Alert is sent to the alert sink when a job finds critical problems or fails.
type Alert struct {
	JobID     string    `json:"job_id"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ReportID  string    `json:"report_id,omitempty"`
	Issues    []string  `json:"issues,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
