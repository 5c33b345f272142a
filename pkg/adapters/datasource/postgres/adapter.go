// Package postgres runs clinic queries against a PostgreSQL copy of the
// practice database through pgx's database/sql driver.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "PostgreSQL 12+ replica of the practice database",
		},
		Factory: NewQueryExecutor,
	})
}

// NewQueryExecutor opens a bounded pool against PostgreSQL.
func NewQueryExecutor(ctx context.Context, cfg config.DatasourceConfig, logger *zap.Logger) (datasource.QueryExecutor, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := datasource.OpenPool(ctx, DriverName, dsn, cfg, logger)
	if err != nil {
		return nil, err
	}
	return datasource.NewSQLExecutor(db, Dialect{}, logger), nil
}

// BuildDSN builds a PostgreSQL URL with proper escaping.
// IMPORTANT: All user-provided fields must be URL-escaped to handle special characters
// in passwords (e.g., @, /, #, ?) that would otherwise break URL parsing.
func BuildDSN(cfg config.DatasourceConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("database is required")
	}

	sslMode := "disable"
	if cfg.Encrypt {
		sslMode = "require"
	}

	dsn := fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		url.QueryEscape(cfg.Database),
		sslMode,
	)
	if cfg.ConnectTimeout > 0 {
		dsn += fmt.Sprintf("&connect_timeout=%d", int(cfg.ConnectTimeout.Seconds()))
	}
	return dsn, nil
}

// Dialect implements datasource.Dialect for PostgreSQL.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) ReadOnlyTx() bool { return true }

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Dialect) BindArgs(params []any) []any { return params }

// QuoteIdentifier wraps name in double quotes, doubling embedded quotes.
func (Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) MapType(dbType string) string {
	switch t := strings.ToUpper(dbType); t {
	case "INT2":
		return "SMALLINT"
	case "INT4":
		return "INTEGER"
	case "INT8":
		return "BIGINT"
	case "FLOAT4":
		return "REAL"
	case "FLOAT8":
		return "DOUBLE PRECISION"
	case "BPCHAR":
		return "CHAR"
	case "TIMESTAMPTZ":
		return "TIMESTAMP WITH TIME ZONE"
	case "BOOL":
		return "BOOLEAN"
	default:
		return t
	}
}

// NormalizeValue decodes NUMERIC text into float64 and text bytes into strings.
func (Dialect) NormalizeValue(dbType string, v any) any {
	switch x := v.(type) {
	case []byte:
		if strings.EqualFold(dbType, "BYTEA") {
			return x
		}
		return string(x)
	case string:
		if strings.EqualFold(dbType, "NUMERIC") {
			if f, err := datasource.ToFloat64(x); err == nil {
				return f
			}
		}
		return x
	default:
		return v
	}
}
