package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/logging"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/schema"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger checks database reachability. datasource.QueryExecutor satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobLister lists the scheduled jobs. *scheduler.Scheduler satisfies it.
type JobLister interface {
	Jobs() []models.ScheduledJob
}

// HealthService reports whether the system can serve requests.
type HealthService interface {
	// Status is healthy when the database answers and the schema is loaded,
	// degraded otherwise.
	Status(ctx context.Context) *models.HealthStatus
}

type healthService struct {
	db        Pinger
	catalog   *schema.Holder
	integrity IntegrityService
	jobs      JobLister
	logger    *zap.Logger
}

// NewHealthService builds the health check. integrity and jobs may be nil.
func NewHealthService(db Pinger, catalog *schema.Holder, integrity IntegrityService, jobs JobLister, logger *zap.Logger) HealthService {
	return &healthService{
		db:        db,
		catalog:   catalog,
		integrity: integrity,
		jobs:      jobs,
		logger:    logger.Named("health-service"),
	}
}

var _ HealthService = (*healthService)(nil)

func (s *healthService) Status(ctx context.Context) *models.HealthStatus {
	status := &models.HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Database:  models.ComponentState{Status: StatusHealthy},
	}

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("Database ping failed", zap.String("error", logging.SanitizeError(err)))
		status.Database = models.ComponentState{Status: StatusUnhealthy, Error: logging.SanitizeError(err)}
	}

	catalog := s.catalog.Load()
	stats := catalog.Stats()
	status.Schema = models.SchemaState{
		Loaded:  !catalog.IsEmpty(),
		Tables:  stats.Tables,
		Columns: stats.Columns,
		AvgCols: stats.AvgColumnsPerTable,
	}

	if s.integrity != nil {
		report, err := s.integrity.Latest(ctx)
		if err != nil {
			s.logger.Warn("Failed to read latest integrity report", zap.Error(err))
		} else if report != nil {
			status.LastIntegrity = &models.ReportRef{
				ID:       report.ID.String(),
				Date:     report.CreatedAt,
				Severity: report.Severity,
				Title:    report.Title,
			}
		}
	}

	if s.jobs != nil {
		status.Jobs = s.jobs.Jobs()
	}

	if status.Database.Status != StatusHealthy || !status.Schema.Loaded {
		status.Status = StatusDegraded
	}
	return status
}
