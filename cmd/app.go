package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	_ "github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource/mssql"
	_ "github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource/postgres"
	_ "github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource/sqlite"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/audit"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/database"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/integrity"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/llm"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/repositories"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/scheduler"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/schema"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

// app is the fully wired service graph shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	exec    datasource.QueryExecutor
	catalog *schema.Holder
	gateway llm.Gateway
	redis   *redis.Client

	reports      services.ReportService
	integrity    services.IntegrityService
	analytics    services.AnalyticsService
	orchestrator services.QueryOrchestrator
	alerts       services.AlertService
	health       services.HealthService
	runner       *services.JobRunner
	scheduler    *scheduler.Scheduler

	closers []func()
}

// newApp connects to every backing store and builds the services. Only the
// clinic database, the schema file (when required) and the report store are
// fatal; Redis and the archive degrade to disabled.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.exec, err = datasource.NewQueryExecutor(ctx, cfg.Datasource, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clinic database: %w", err)
	}
	a.onClose(func() { _ = a.exec.Close() })

	a.catalog, err = loadSchema(cfg.Schema, logger)
	if err != nil {
		return nil, err
	}

	a.gateway, err = llm.NewGateway(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = a.gateway.Close() })

	a.redis, err = database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable; report cache and job locks disabled", zap.Error(err))
		a.redis = nil
	}
	if a.redis != nil {
		a.onClose(func() { _ = a.redis.Close() })
	}

	repo, err := a.reportRepository(ctx)
	if err != nil {
		return nil, err
	}
	a.reports = services.NewReportService(repo, logger)

	engine, err := newIntegrityEngine(cfg, a.exec, logger)
	if err != nil {
		return nil, err
	}
	a.integrity = services.NewIntegrityService(engine, a.reports, logger)

	maxTokens := cfg.LLM.MaxTokens
	insights := services.NewInsightGenerator(a.gateway, maxTokens, logger)
	a.analytics = services.NewAnalyticsService(
		repositories.NewClinicMetricsRepository(a.exec),
		insights,
		services.AnalyticsConfig{Churn: cfg.Churn, LTV: cfg.LTV, ROI: cfg.ROI},
		logger,
	)
	a.orchestrator = services.NewQueryOrchestrator(
		a.catalog,
		services.NewQueryGenerator(a.gateway, maxTokens, logger),
		services.NewQueryValidator(a.gateway, maxTokens, logger),
		a.exec,
		insights,
		a.reports,
		a.integrity,
		audit.NewSecurityAuditor(logger),
		services.OrchestratorConfig{
			ValidationEnabled: cfg.Validation.Enabled,
			MaxQueryTime:      cfg.Validation.MaxQueryTime,
			SummaryMaxRows:    cfg.Query.SummaryMaxRows,
			PersistResults:    cfg.Query.PersistResults,
		},
		logger,
	)

	a.alerts = services.NewAlertService(services.NewAlertSink(cfg.Alerts, logger), cfg.Alerts.Timeout, logger)
	a.onClose(a.alerts.Wait)
	a.runner = services.NewJobRunner(a.integrity, a.analytics, a.reports, a.alerts, logger)

	opts := scheduler.Options{
		Location: cfg.Scheduler.Location(),
		LockTTL:  cfg.Scheduler.LockTTL,
		OnError:  a.runner.Failed,
	}
	if a.redis != nil {
		opts.Locker = scheduler.NewRedisLocker(a.redis)
	}
	a.scheduler = scheduler.New(opts, logger)
	if err := a.scheduler.RegisterAll(scheduler.ClinicJobs(cfg.Scheduler, a.runner)); err != nil {
		return nil, err
	}

	a.health = services.NewHealthService(a.exec, a.catalog, a.integrity, a.scheduler, logger)
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// reportRepository selects the primary report store and layers the
// optional archive and cache over it.
func (a *app) reportRepository(ctx context.Context) (repositories.ReportRepository, error) {
	var (
		repo repositories.ReportRepository
		err  error
	)
	switch a.cfg.Reports.Store {
	case "postgres":
		db, err := database.NewConnection(ctx, database.ConfigFrom(&a.cfg.Database))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to report database: %w", err)
		}
		a.onClose(db.Close)
		repo = repositories.NewReportRepository(db)
	default:
		repo, err = repositories.NewDatasourceReportRepository(a.exec, a.cfg.Reports.Table)
		if err != nil {
			return nil, err
		}
	}
	a.logger.Info("Report store ready", zap.String("store", a.cfg.Reports.Store))

	archive, err := database.NewArchiveStore(ctx, &a.cfg.Archive)
	switch {
	case err != nil:
		a.logger.Warn("Report archive unavailable", zap.Error(err))
	case archive != nil:
		a.logger.Info("Archiving reports", zap.String("bucket", archive.Bucket()))
		repo = repositories.NewArchivedReportRepository(repo, archive, a.logger)
	}

	if a.redis != nil {
		repo = repositories.NewCachedReportRepository(repo, a.redis, a.cfg.Redis.CacheTTL, a.logger)
	}
	return repo, nil
}

func loadSchema(cfg config.SchemaConfig, logger *zap.Logger) (*schema.Holder, error) {
	catalog, err := schema.Load(cfg.File)
	if err != nil {
		if cfg.Required {
			return nil, err
		}
		logger.Warn("Schema file unavailable; prompts will carry no schema",
			zap.String("file", cfg.File),
			zap.Error(err))
		return schema.NewHolder(nil), nil
	}

	stats := catalog.Stats()
	logger.Info("Schema catalog loaded",
		zap.String("file", cfg.File),
		zap.Int("tables", stats.Tables),
		zap.Int("columns", stats.Columns))
	return schema.NewHolder(catalog), nil
}

func newIntegrityEngine(cfg *config.Config, exec datasource.QueryExecutor, logger *zap.Logger) (*integrity.Engine, error) {
	var (
		catalog *integrity.Catalog
		err     error
	)
	if cfg.Integrity.CatalogFile != "" {
		catalog, err = integrity.LoadCatalog(cfg.Integrity.CatalogFile)
	} else {
		catalog, err = integrity.DefaultCatalog()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load integrity catalog: %w", err)
	}

	params := integrity.Params{
		InactivityMonths: cfg.Integrity.InactivityMonths,
		FutureYears:      cfg.Integrity.FutureYears,
	}
	return integrity.NewEngine(exec, exec.Dialect(), catalog, params, logger)
}
