package models

import "time"

// ScheduledJob describes a registered recurring job.
type ScheduledJob struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CronSpec  string     `json:"trigger"`
	NextRunAt *time.Time `json:"next_run_time,omitempty"`
	PrevRunAt *time.Time `json:"prev_run_time,omitempty"`
	Running   bool       `json:"running"`
}

// HealthStatus is the system health snapshot.
type HealthStatus struct {
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	Database      ComponentState `json:"database"`
	Schema        SchemaState    `json:"schema"`
	LastIntegrity *ReportRef     `json:"last_integrity_check,omitempty"`
	Jobs          []ScheduledJob `json:"jobs,omitempty"`
}

// ComponentState reports a dependency's reachability.
type ComponentState struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SchemaState reports whether the catalog is loaded.
type SchemaState struct {
	Loaded  bool    `json:"loaded"`
	Tables  int     `json:"tables"`
	Columns int     `json:"columns"`
	AvgCols float64 `json:"avg_columns_per_table"`
}

// ReportRef points at a stored report.
type ReportRef struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Severity Severity  `json:"severity"`
	Title    string    `json:"title"`
}
