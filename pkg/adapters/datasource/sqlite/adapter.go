// Package sqlite runs clinic queries against a local SQLite file. It backs
// local development and the in-process tests of the integrity engine.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
			Description: "Local SQLite file for development and tests",
		},
		Factory: NewQueryExecutor,
	})
}

// NewQueryExecutor opens cfg.Path. ":memory:" databases are pinned to a
// single connection so every call sees the same data.
func NewQueryExecutor(ctx context.Context, cfg config.DatasourceConfig, logger *zap.Logger) (datasource.QueryExecutor, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if cfg.Path == ":memory:" {
		cfg.PoolSize, cfg.MaxOverflow, cfg.ConnLifetime = 1, 0, 0
	}
	db, err := datasource.OpenPool(ctx, DriverName, BuildDSN(cfg.Path), cfg, logger)
	if err != nil {
		return nil, err
	}
	return datasource.NewSQLExecutor(db, Dialect{}, logger), nil
}

// BuildDSN sets a busy timeout on every connection. Foreign keys stay
// unenforced, like the GELITE tables this mirrors.
func BuildDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)"
}

// Dialect implements datasource.Dialect for SQLite.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) ReadOnlyTx() bool { return true }

// Placeholder renders ?N, which SQLite binds positionally.
func (Dialect) Placeholder(n int) string { return fmt.Sprintf("?%d", n) }

func (Dialect) BindArgs(params []any) []any { return params }

func (Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) MapType(dbType string) string {
	if dbType == "" {
		return "ANY"
	}
	return strings.ToUpper(dbType)
}

func (Dialect) NormalizeValue(dbType string, v any) any {
	if b, ok := v.([]byte); ok && !strings.EqualFold(dbType, "BLOB") {
		return string(b)
	}
	return v
}
