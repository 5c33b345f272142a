package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity grades findings and reports.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// FindingStatus is the outcome of one integrity check.
type FindingStatus string

const (
	FindingPassed FindingStatus = "passed"
	FindingFailed FindingStatus = "failed"
)

// RunStatus is the overall integrity verdict.
type RunStatus string

const (
	RunPassed  RunStatus = "PASSED"
	RunWarning RunStatus = "WARNING"
	RunFailed  RunStatus = "FAILED"
)

// Integrity check categories.
const (
	CategoryOrphan       = "orphan"
	CategoryConsistency  = "consistency"
	CategoryBusinessRule = "business_rule"
)

// IntegrityFinding is the result of one executed check.
type IntegrityFinding struct {
	TestName    string        `json:"test_name"`
	Category    string        `json:"category"`
	Severity    Severity      `json:"severity"`
	MetricCount int64         `json:"metric_count"`
	Status      FindingStatus `json:"status"`
	Description string        `json:"description"`
}

// IsCritical reports a failed finding of critical severity.
func (f IntegrityFinding) IsCritical() bool {
	return f.Severity == SeverityCritical && f.Status == FindingFailed
}

// CheckWarning records a check that could not execute.
type CheckWarning struct {
	TestName string `json:"test_name"`
	Error    string `json:"error"`
}

// IntegrityRun aggregates one pass over the check catalog.
type IntegrityRun struct {
	ID             uuid.UUID          `json:"id"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	CatalogVersion string             `json:"catalog_version"`
	Total          int                `json:"total_tests"`
	Passed         int                `json:"passed"`
	Failed         int                `json:"failed"`
	Status         RunStatus          `json:"status"`
	Findings       []IntegrityFinding `json:"results"`
	CriticalIssues []IntegrityFinding `json:"critical_issues"`
	Warnings       []CheckWarning     `json:"warnings,omitempty"`
}

// FailedFindings returns the failed findings in catalog order.
func (r *IntegrityRun) FailedFindings() []IntegrityFinding {
	var out []IntegrityFinding
	for _, f := range r.Findings {
		if f.Status == FindingFailed {
			out = append(out, f)
		}
	}
	return out
}
