package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/repositories"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/scoring"
)

// Default list sizes for the analytics endpoints.
const (
	DefaultTopLimit  = 10
	DefaultListLimit = 100
)

// AnalyticsConfig bundles the scoring parameters.
type AnalyticsConfig struct {
	Churn config.ChurnConfig
	LTV   config.LTVConfig
	ROI   config.ROIConfig
}

// AnalyticsService scores patients and treatments from clinic data.
type AnalyticsService interface {
	// ChurnRisk lists patients at or above the report cutoff, highest first.
	// A non-empty tier keeps only that tier.
	ChurnRisk(ctx context.Context, tier string) ([]models.EntityScore, error)
	ChurnReport(ctx context.Context) (*models.ChurnReport, error)

	// LTV lists patients by projected value, highest first.
	LTV(ctx context.Context, limit int) ([]models.EntityScore, error)
	TopLTV(ctx context.Context, n int) ([]models.EntityScore, error)
	Cohorts(ctx context.Context, by string) ([]models.Cohort, error)
	LTVReport(ctx context.Context) (*models.LTVReport, error)

	ROI(ctx context.Context) ([]models.EntityScore, error)
	// TopROI lists the treatments with the highest total profit.
	TopROI(ctx context.Context, n int) ([]models.EntityScore, error)
	// LowPerformers lists treatments below threshold ROI, worst first.
	// A nil threshold uses the configured one.
	LowPerformers(ctx context.Context, threshold *float64) ([]models.EntityScore, error)
	ROIReport(ctx context.Context) (*models.ROIReport, error)

	// Dashboard computes the three reports concurrently, without insights.
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	// Weekly computes the three reports concurrently, with insights.
	Weekly(ctx context.Context) (*WeeklyAnalytics, error)
}

type analyticsService struct {
	metrics  repositories.ClinicMetricsRepository
	insights InsightGenerator
	cfg      AnalyticsConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewAnalyticsService(metrics repositories.ClinicMetricsRepository, insights InsightGenerator, cfg AnalyticsConfig, logger *zap.Logger) AnalyticsService {
	return &analyticsService{
		metrics:  metrics,
		insights: insights,
		cfg:      cfg,
		logger:   logger.Named("analytics-service"),
		now:      time.Now,
	}
}

var _ AnalyticsService = (*analyticsService)(nil)

func (s *analyticsService) churnScores(ctx context.Context) ([]models.EntityScore, error) {
	features, err := s.metrics.ChurnFeatures(ctx, s.now())
	if err != nil {
		return nil, err
	}
	scores := make([]models.EntityScore, 0, len(features))
	for _, f := range features {
		scores = append(scores, scoring.ScoreChurn(f, s.cfg.Churn))
	}
	scoring.SortByScore(scores)

	s.logger.Debug("Scored churn", zap.Int("patients", len(scores)))
	return scores, nil
}

func (s *analyticsService) ChurnRisk(ctx context.Context, tier string) ([]models.EntityScore, error) {
	if tier != "" && !validTier(tier) {
		return nil, fmt.Errorf("%w: unknown risk level %q", apperrors.ErrInvalidInput, tier)
	}

	scores, err := s.churnScores(ctx)
	if err != nil {
		return nil, err
	}
	atRisk := scoring.AtRisk(scores, s.cfg.Churn.ReportCutoff)
	if tier != "" {
		atRisk = scoring.FilterTier(atRisk, tier)
	}
	return atRisk, nil
}

func validTier(tier string) bool {
	switch tier {
	case models.TierLow, models.TierMedium, models.TierHigh, models.TierCritical:
		return true
	}
	return false
}

func (s *analyticsService) ChurnReport(ctx context.Context) (*models.ChurnReport, error) {
	report, err := s.churnReport(ctx)
	if err != nil {
		return nil, err
	}
	report.Insights, report.InsightError = s.insight(ctx, "Patient churn risk analysis", scoring.ChurnInsightData(*report))
	return report, nil
}

func (s *analyticsService) churnReport(ctx context.Context) (*models.ChurnReport, error) {
	scores, err := s.churnScores(ctx)
	if err != nil {
		return nil, err
	}
	report := scoring.BuildChurnReport(scores, s.cfg.Churn.ReportCutoff)
	return &report, nil
}

func (s *analyticsService) patientValues(ctx context.Context) ([]scoring.PatientLTV, error) {
	revenue, err := s.metrics.PatientRevenue(ctx, s.now())
	if err != nil {
		return nil, err
	}
	values := make([]scoring.PatientLTV, 0, len(revenue))
	for _, p := range revenue {
		values = append(values, scoring.AnalyzeLTV(p, s.cfg.LTV))
	}
	return values, nil
}

func (s *analyticsService) ltvEntities(ctx context.Context) ([]models.EntityScore, error) {
	values, err := s.patientValues(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]models.EntityScore, 0, len(values))
	for _, v := range values {
		entities = append(entities, v.Entity())
	}
	scoring.SortByScore(entities)
	return entities, nil
}

func (s *analyticsService) LTV(ctx context.Context, limit int) ([]models.EntityScore, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	entities, err := s.ltvEntities(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.Top(entities, limit), nil
}

func (s *analyticsService) TopLTV(ctx context.Context, n int) ([]models.EntityScore, error) {
	if n <= 0 {
		n = DefaultTopLimit
	}
	return s.LTV(ctx, n)
}

func (s *analyticsService) Cohorts(ctx context.Context, by string) ([]models.Cohort, error) {
	switch by {
	case "":
		by = scoring.CohortMonth
	case scoring.CohortMonth, scoring.CohortQuarter:
	default:
		return nil, fmt.Errorf("%w: cohort period must be month or quarter, got %q", apperrors.ErrInvalidInput, by)
	}

	members, err := s.metrics.CohortMembers(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.BuildCohorts(members, by), nil
}

func (s *analyticsService) LTVReport(ctx context.Context) (*models.LTVReport, error) {
	report, err := s.ltvReport(ctx)
	if err != nil {
		return nil, err
	}
	report.Insights, report.InsightError = s.insight(ctx, "Patient lifetime value analysis", scoring.LTVInsightData(*report))
	return report, nil
}

func (s *analyticsService) ltvReport(ctx context.Context) (*models.LTVReport, error) {
	values, err := s.patientValues(ctx)
	if err != nil {
		return nil, err
	}
	report := scoring.BuildLTVReport(values)
	return &report, nil
}

func (s *analyticsService) treatmentROI(ctx context.Context) ([]scoring.TreatmentROI, error) {
	stats, err := s.metrics.TreatmentStats(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]scoring.TreatmentROI, 0, len(stats))
	for _, t := range stats {
		results = append(results, scoring.AnalyzeROI(t, s.cfg.ROI))
	}
	return results, nil
}

func roiEntities(results []scoring.TreatmentROI) []models.EntityScore {
	entities := make([]models.EntityScore, 0, len(results))
	for _, r := range results {
		entities = append(entities, r.Entity())
	}
	return entities
}

func (s *analyticsService) ROI(ctx context.Context) ([]models.EntityScore, error) {
	results, err := s.treatmentROI(ctx)
	if err != nil {
		return nil, err
	}
	entities := roiEntities(results)
	scoring.SortByScore(entities)
	return entities, nil
}

func (s *analyticsService) TopROI(ctx context.Context, n int) ([]models.EntityScore, error) {
	if n <= 0 {
		n = DefaultTopLimit
	}
	results, err := s.treatmentROI(ctx)
	if err != nil {
		return nil, err
	}
	return roiEntities(scoring.StarTreatments(results, n)), nil
}

func (s *analyticsService) LowPerformers(ctx context.Context, threshold *float64) ([]models.EntityScore, error) {
	limit := s.cfg.ROI.LowPerformerROI
	if threshold != nil {
		limit = *threshold
	}
	results, err := s.treatmentROI(ctx)
	if err != nil {
		return nil, err
	}
	return roiEntities(scoring.LowPerformers(results, limit)), nil
}

func (s *analyticsService) ROIReport(ctx context.Context) (*models.ROIReport, error) {
	report, err := s.roiReport(ctx)
	if err != nil {
		return nil, err
	}
	report.Insights, report.InsightError = s.insight(ctx, "Treatment profitability analysis", scoring.ROIInsightData(*report))
	return report, nil
}

func (s *analyticsService) roiReport(ctx context.Context) (*models.ROIReport, error) {
	results, err := s.treatmentROI(ctx)
	if err != nil {
		return nil, err
	}
	report := scoring.BuildROIReport(results, s.cfg.ROI)
	return &report, nil
}

func (s *analyticsService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	churn, ltv, roi, err := s.all(ctx, false)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{Churn: *churn, LTV: *ltv, ROI: *roi}, nil
}

func (s *analyticsService) Weekly(ctx context.Context) (*WeeklyAnalytics, error) {
	started := s.now()
	churn, ltv, roi, err := s.all(ctx, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Weekly analytics computed",
		zap.Int("patients_scored", churn.TotalScored),
		zap.Int("patients_at_risk", churn.AtRisk),
		zap.Int("vip_patients", ltv.VIPCount),
		zap.Int("treatments", roi.TotalTreatments),
		zap.Duration("elapsed", s.now().Sub(started)))
	return &WeeklyAnalytics{
		Timestamp: started,
		Churn:     *churn,
		LTV:       *ltv,
		ROI:       *roi,
	}, nil
}

// all runs the three engines concurrently and returns once every one has
// finished. The first extraction error cancels the others.
func (s *analyticsService) all(ctx context.Context, withInsights bool) (*models.ChurnReport, *models.LTVReport, *models.ROIReport, error) {
	var (
		churn *models.ChurnReport
		ltv   *models.LTVReport
		roi   *models.ROIReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if withInsights {
			churn, err = s.ChurnReport(gctx)
		} else {
			churn, err = s.churnReport(gctx)
		}
		if err != nil {
			return fmt.Errorf("churn analysis: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if withInsights {
			ltv, err = s.LTVReport(gctx)
		} else {
			ltv, err = s.ltvReport(gctx)
		}
		if err != nil {
			return fmt.Errorf("ltv analysis: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if withInsights {
			roi, err = s.ROIReport(gctx)
		} else {
			roi, err = s.roiReport(gctx)
		}
		if err != nil {
			return fmt.Errorf("roi analysis: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return churn, ltv, roi, nil
}

// insight asks for a business summary. A failure is returned as the
// second value; the report is still complete without it.
func (s *analyticsService) insight(ctx context.Context, topic string, data any) (string, string) {
	if s.insights == nil {
		return "", ""
	}
	text, err := s.insights.Insights(ctx, topic, data)
	if err != nil {
		return "", err.Error()
	}
	return text, ""
}
