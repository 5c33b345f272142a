package datasource

import (
	"context"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// MaxQueryLimit is the hard cap on rows returned by Query methods.
const MaxQueryLimit = 1000

// QueryExecutor runs statements against the clinic database. Every call
// runs in its own transaction. Read calls always roll back, so a write
// smuggled into a read statement is never committed; ExecuteWithParams
// commits on success.
//
// Each implementation owns its connection pool and must be closed when done.
type QueryExecutor interface {
	// Query runs a read statement and returns at most limit rows.
	//   - limit <= 0: uses MaxQueryLimit
	//   - limit > MaxQueryLimit: capped to MaxQueryLimit
	// The cap is applied while scanning; the statement is not rewritten.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error)

	// QueryWithParams is Query with positional parameters written $1, $2, ...
	QueryWithParams(ctx context.Context, sqlQuery string, params []any, limit int) (*QueryExecutionResult, error)

	// QueryEach streams every row to fn without the row cap. It serves
	// feature extraction over whole tables, never user-generated SQL.
	QueryEach(ctx context.Context, sqlQuery string, params []any, fn func(models.Row) error) error

	// QueryScalar returns the first column of the first row, or nil when
	// the statement returns no rows.
	QueryScalar(ctx context.Context, sqlQuery string, params ...any) (any, error)

	// ExecuteWithParams runs a write statement ($1, $2, ... placeholders).
	ExecuteWithParams(ctx context.Context, sqlStatement string, params []any) (*ExecuteResult, error)

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Dialect returns the SQL dialect of the connected database.
	Dialect() Dialect

	Close() error
}

// Dialect isolates what differs between database engines.
type Dialect interface {
	// Name is the datasource type: "mssql", "postgres" or "sqlite".
	Name() string

	// Placeholder renders the nth (1-based) positional parameter.
	Placeholder(n int) string

	// BindArgs adapts positional parameters to what the driver expects.
	BindArgs(params []any) []any

	// MapType maps a driver type name to a portable type name.
	MapType(dbType string) string

	// NormalizeValue converts a scanned driver value into a JSON friendly value.
	NormalizeValue(dbType string, v any) any

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// ReadOnlyTx reports whether the driver accepts read-only transactions.
	ReadOnlyTx() bool
}

// ExecuteResult holds the outcome of a write statement.
type ExecuteResult struct {
	RowsAffected int64 `json:"rows_affected"`
}

// QueryExecutionResult holds the rows of a read statement.
type QueryExecutionResult struct {
	Columns  []models.ColumnInfo `json:"columns"`
	Rows     []models.Row        `json:"rows"`
	RowCount int                 `json:"row_count"`
	// Truncated is set when more rows were available than the limit.
	Truncated bool `json:"truncated,omitempty"`
}
