package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/logging"
)

// NewQueryExecutor creates the executor for cfg.Type using the registry.
// Adapters register themselves from init(); import them for side effects.
func NewQueryExecutor(ctx context.Context, cfg config.DatasourceConfig, logger *zap.Logger) (QueryExecutor, error) {
	reg, ok := lookup(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported datasource type: %s (not compiled in)", cfg.Type)
	}
	return reg.Factory(ctx, cfg, logger)
}

// OpenPool opens a pool, applies the configured bounds and pings it.
// Open connections are capped at pool_size + max_overflow; callers beyond
// that wait for a free connection.
func OpenPool(ctx context.Context, driver, dsn string, cfg config.DatasourceConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", driver, err)
	}

	ApplyPoolSettings(db, cfg)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %s", logging.SanitizeError(err))
	}

	logger.Info("Datasource pool opened",
		zap.String("driver", driver),
		zap.String("dsn", logging.SanitizeConnectionString(dsn)),
		zap.Int("max_open", maxOpen(cfg)),
		zap.Int("max_idle", cfg.PoolSize))
	return db, nil
}

// ApplyPoolSettings bounds db according to cfg.
func ApplyPoolSettings(db *sql.DB, cfg config.DatasourceConfig) {
	db.SetMaxOpenConns(maxOpen(cfg))
	db.SetMaxIdleConns(cfg.PoolSize)
	if cfg.ConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnLifetime)
	}
}

func maxOpen(cfg config.DatasourceConfig) int {
	n := cfg.PoolSize + cfg.MaxOverflow
	if n <= 0 {
		return 1
	}
	return n
}
