package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/logging"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// SQLExecutor implements QueryExecutor over database/sql for any Dialect.
type SQLExecutor struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewSQLExecutor wraps an open pool.
func NewSQLExecutor(db *sql.DB, dialect Dialect, logger *zap.Logger) *SQLExecutor {
	return &SQLExecutor{
		db:      db,
		dialect: dialect,
		logger:  logger.Named("query-executor").With(zap.String("dialect", dialect.Name())),
	}
}

// DB exposes the pool for migrations and tests.
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

// Query runs a read statement and returns bounded results.
// See QueryExecutor.Query for limit behavior.
func (e *SQLExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error) {
	return e.QueryWithParams(ctx, sqlQuery, nil, limit)
}

// QueryWithParams runs a parameterized read statement with bounded results.
func (e *SQLExecutor) QueryWithParams(ctx context.Context, sqlQuery string, params []any, limit int) (*QueryExecutionResult, error) {
	effectiveLimit := EffectiveLimit(limit)

	query := ConvertPlaceholders(sqlQuery, e.dialect.Placeholder)
	args := e.dialect.BindArgs(params)

	var result *QueryExecutionResult
	err := e.readTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		result, err = e.scanRows(rows, effectiveLimit)
		return err
	})
	if err != nil {
		e.logger.Error("Query failed",
			zap.String("sql", logging.SanitizeQuery(sqlQuery)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	e.logger.Debug("Query executed",
		zap.String("sql", logging.SanitizeQuery(sqlQuery)),
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", result.Truncated))
	return result, nil
}

// QueryEach streams every row of a read statement to fn without a row cap.
// An error from fn stops the iteration and rolls back.
func (e *SQLExecutor) QueryEach(ctx context.Context, sqlQuery string, params []any, fn func(models.Row) error) error {
	query := ConvertPlaceholders(sqlQuery, e.dialect.Placeholder)
	args := e.dialect.BindArgs(params)

	count := 0
	err := e.readTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		columnTypes, columns, err := e.columns(rows)
		if err != nil {
			return err
		}
		for rows.Next() {
			row, err := e.scanRow(rows, columnTypes, columns)
			if err != nil {
				return err
			}
			if err := fn(row); err != nil {
				return err
			}
			count++
		}
		return rows.Err()
	})
	if err != nil {
		e.logger.Error("Streaming query failed",
			zap.String("sql", logging.SanitizeQuery(sqlQuery)),
			zap.String("error", logging.SanitizeError(err)))
		return err
	}

	e.logger.Debug("Streaming query executed",
		zap.String("sql", logging.SanitizeQuery(sqlQuery)),
		zap.Int("rows", count))
	return nil
}

// QueryScalar returns the first column of the first row.
func (e *SQLExecutor) QueryScalar(ctx context.Context, sqlQuery string, params ...any) (any, error) {
	result, err := e.QueryWithParams(ctx, sqlQuery, params, 1)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return nil, nil
	}
	return result.Rows[0][0].Value, nil
}

// ExecuteWithParams runs a write statement inside its own transaction.
func (e *SQLExecutor) ExecuteWithParams(ctx context.Context, sqlStatement string, params []any) (*ExecuteResult, error) {
	query := ConvertPlaceholders(sqlStatement, e.dialect.Placeholder)
	args := e.dialect.BindArgs(params)

	result := &ExecuteResult{}
	err := e.inTx(ctx, "execute", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		// Some drivers cannot report affected rows; that is not a failure.
		if n, err := res.RowsAffected(); err == nil {
			result.RowsAffected = n
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Statement failed",
			zap.String("sql", logging.SanitizeQuery(sqlStatement)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}
	return result, nil
}

// Ping verifies connectivity.
func (e *SQLExecutor) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return apperrors.NewExecutionError("ping", err)
	}
	return nil
}

// Dialect returns the executor's dialect.
func (e *SQLExecutor) Dialect() Dialect {
	return e.dialect
}

// Close closes the pool.
func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

// readTx runs fn in a transaction that is always rolled back. The
// transaction is also opened read-only where the driver supports it.
func (e *SQLExecutor) readTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: e.dialect.ReadOnlyTx()})
	if err != nil {
		return apperrors.NewExecutionError("query", fmt.Errorf("begin transaction: %w", err))
	}

	fnErr := fn(tx)
	if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
		e.logger.Warn("Rollback failed", zap.String("error", logging.SanitizeError(rbErr)))
	}
	if fnErr != nil {
		return apperrors.NewExecutionError("query", fnErr)
	}
	return nil
}

// inTx runs fn in a transaction owned by this call.
func (e *SQLExecutor) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewExecutionError(op, fmt.Errorf("begin transaction: %w", err))
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			e.logger.Warn("Rollback failed", zap.String("error", logging.SanitizeError(rbErr)))
		}
		return apperrors.NewExecutionError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewExecutionError(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (e *SQLExecutor) scanRows(rows *sql.Rows, limit int) (*QueryExecutionResult, error) {
	columnTypes, columns, err := e.columns(rows)
	if err != nil {
		return nil, err
	}

	result := &QueryExecutionResult{Columns: columns, Rows: make([]models.Row, 0)}
	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}
		row, err := e.scanRow(rows, columnTypes, columns)
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

func (e *SQLExecutor) columns(rows *sql.Rows) ([]*sql.ColumnType, []models.ColumnInfo, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get column types: %w", err)
	}

	names := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		names[i] = ct.Name()
	}
	names = UniqueColumnNames(names)

	columns := make([]models.ColumnInfo, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = models.ColumnInfo{
			Name: names[i],
			Type: e.dialect.MapType(ct.DatabaseTypeName()),
		}
	}
	return columnTypes, columns, nil
}

// UniqueColumnNames suffixes repeated names with _2, _3, ... so every
// field of a row has its own JSON key. "SELECT p.IdPac, c.IdPac" yields
// IdPac and IdPac_2. The comparison is case-insensitive.
func UniqueColumnNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[strings.ToLower(n)] = true
	}
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		key := strings.ToLower(n)
		if !seen[key] {
			seen[key] = true
			out[i] = n
			continue
		}
		for k := 2; ; k++ {
			candidate := fmt.Sprintf("%s_%d", n, k)
			ck := strings.ToLower(candidate)
			if !taken[ck] && !seen[ck] {
				seen[ck] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

func (e *SQLExecutor) scanRow(rows *sql.Rows, columnTypes []*sql.ColumnType, columns []models.ColumnInfo) (models.Row, error) {
	values := make([]any, len(columnTypes))
	valuePtrs := make([]any, len(columnTypes))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	row := make(models.Row, len(columnTypes))
	for i, ct := range columnTypes {
		row[i] = models.Field{
			Name:  columns[i].Name,
			Value: e.dialect.NormalizeValue(ct.DatabaseTypeName(), values[i]),
		}
	}
	return row, nil
}

// EffectiveLimit applies the default and the hard cap to a requested limit.
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}

var _ QueryExecutor = (*SQLExecutor)(nil)
