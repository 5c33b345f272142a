package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

const latestReportKeyPrefix = "ia-dental:reports:latest:"

// cachedReportRepository keeps the newest report of each kind in Redis.
// Cache errors are logged and fall through to the underlying store.
type cachedReportRepository struct {
	next   ReportRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedReportRepository wraps next with a Redis read-through cache for Latest.
func NewCachedReportRepository(next ReportRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) ReportRepository {
	return &cachedReportRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.Named("report-cache"),
	}
}

var _ ReportRepository = (*cachedReportRepository)(nil)

func latestKey(kind string) string {
	return latestReportKeyPrefix + kind
}

func (r *cachedReportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.next.Create(ctx, report); err != nil {
		return err
	}
	r.store(ctx, report)
	return nil
}

func (r *cachedReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return r.next.GetByID(ctx, id)
}

func (r *cachedReportRepository) Latest(ctx context.Context, kind string) (*models.Report, error) {
	data, err := r.client.Get(ctx, latestKey(kind)).Bytes()
	switch {
	case err == nil:
		var report models.Report
		if jsonErr := json.Unmarshal(data, &report); jsonErr == nil {
			return &report, nil
		}
		r.logger.Warn("Dropping undecodable cached report", zap.String("kind", kind))
		r.client.Del(ctx, latestKey(kind))
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("Report cache read failed", zap.String("kind", kind), zap.Error(err))
	}

	report, err := r.next.Latest(ctx, kind)
	if err != nil {
		return nil, err
	}
	r.store(ctx, report)
	return report, nil
}

func (r *cachedReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	return r.next.List(ctx, filter)
}

func (r *cachedReportRepository) store(ctx context.Context, report *models.Report) {
	data, err := json.Marshal(report)
	if err != nil {
		r.logger.Warn("Failed to encode report for cache", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, latestKey(report.Kind), data, r.ttl).Err(); err != nil {
		r.logger.Warn("Report cache write failed",
			zap.String("kind", report.Kind),
			zap.Error(err))
	}
}
