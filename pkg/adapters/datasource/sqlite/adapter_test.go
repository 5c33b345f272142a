package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

func newMemoryExecutor(t *testing.T) datasource.QueryExecutor {
	t.Helper()
	exec, err := NewQueryExecutor(context.Background(), config.DatasourceConfig{Type: "sqlite", Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })

	ctx := context.Background()
	_, err = exec.ExecuteWithParams(ctx, `CREATE TABLE Pacientes (IdPac INTEGER PRIMARY KEY, Nombre TEXT, Saldo REAL)`, nil)
	require.NoError(t, err)
	for i, name := range []string{"Ana", "Luis", "Marta"} {
		_, err = exec.ExecuteWithParams(ctx, `INSERT INTO Pacientes (IdPac, Nombre, Saldo) VALUES ($1, $2, $3)`,
			[]any{i + 1, name, float64(i) * 100})
		require.NoError(t, err)
	}
	return exec
}

func TestExecutor_QueryOrderedRows(t *testing.T) {
	exec := newMemoryExecutor(t)

	res, err := exec.Query(context.Background(), `SELECT Nombre, IdPac FROM Pacientes ORDER BY IdPac`, 0)
	require.NoError(t, err)
	require.Equal(t, 3, res.RowCount)
	assert.False(t, res.Truncated)
	require.Len(t, res.Columns, 2)
	assert.Equal(t, "Nombre", res.Columns[0].Name)
	assert.Equal(t, "Nombre", res.Rows[0][0].Name)
	assert.Equal(t, "Ana", res.Rows[0][0].Value)
	assert.Equal(t, "IdPac", res.Rows[0][1].Name)
}

func TestExecutor_LimitAppliedWhileScanning(t *testing.T) {
	exec := newMemoryExecutor(t)

	res, err := exec.Query(context.Background(), `SELECT IdPac FROM Pacientes ORDER BY IdPac`, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount)
	assert.True(t, res.Truncated)
}

func TestExecutor_QueryWithParams(t *testing.T) {
	exec := newMemoryExecutor(t)

	res, err := exec.QueryWithParams(context.Background(),
		`SELECT Nombre FROM Pacientes WHERE Saldo >= $1 AND Nombre <> $2 ORDER BY IdPac`,
		[]any{100.0, "Marta"}, 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount)
	assert.Equal(t, "Luis", res.Rows[0][0].Value)
}

func TestExecutor_QueryEachStreamsAllRows(t *testing.T) {
	exec := newMemoryExecutor(t)

	var names []string
	err := exec.QueryEach(context.Background(), `SELECT Nombre FROM Pacientes WHERE IdPac > $1 ORDER BY IdPac`,
		[]any{1}, func(row models.Row) error {
			names = append(names, row[0].Value.(string))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"Luis", "Marta"}, names)
}

func TestExecutor_QueryEachStopsOnCallbackError(t *testing.T) {
	exec := newMemoryExecutor(t)
	stop := errors.New("stop")

	calls := 0
	err := exec.QueryEach(context.Background(), `SELECT IdPac FROM Pacientes`, nil, func(models.Row) error {
		calls++
		return stop
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, stop))
	assert.Equal(t, 1, calls)
}

func TestExecutor_QueryScalar(t *testing.T) {
	exec := newMemoryExecutor(t)
	ctx := context.Background()

	v, err := exec.QueryScalar(ctx, `SELECT COUNT(*) FROM Pacientes WHERE Saldo > $1`, 50.0)
	require.NoError(t, err)
	n, err := datasource.ToInt64(v)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	v, err = exec.QueryScalar(ctx, `SELECT Nombre FROM Pacientes WHERE IdPac = 99`)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestExecutor_ErrorsAreExecutionErrors(t *testing.T) {
	exec := newMemoryExecutor(t)

	_, err := exec.Query(context.Background(), `SELECT Nombre FROM Pacientez`, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExecutionFailed))

	var execErr *apperrors.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Driver, "Pacientez")
}

func TestExecutor_FailedWriteRollsBack(t *testing.T) {
	exec := newMemoryExecutor(t)
	ctx := context.Background()

	// second row violates the primary key, so the whole statement is undone
	_, err := exec.ExecuteWithParams(ctx, `INSERT INTO Pacientes (IdPac, Nombre) VALUES (10, 'Eva'), (1, 'Dup')`, nil)
	require.Error(t, err)

	v, err := exec.QueryScalar(ctx, `SELECT COUNT(*) FROM Pacientes`)
	require.NoError(t, err)
	n, _ := datasource.ToInt64(v)
	assert.Equal(t, int64(3), n)
}

func TestExecutor_WriteThroughQueryIsRolledBack(t *testing.T) {
	exec := newMemoryExecutor(t)
	ctx := context.Background()

	res, err := exec.Query(ctx, `INSERT INTO Pacientes (IdPac, Nombre) VALUES (42, 'Eva') RETURNING IdPac`, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)

	v, err := exec.QueryScalar(ctx, `SELECT COUNT(*) FROM Pacientes`)
	require.NoError(t, err)
	n, _ := datasource.ToInt64(v)
	assert.Equal(t, int64(3), n)
}

func TestExecutor_DuplicateColumnNamesAreSuffixed(t *testing.T) {
	exec := newMemoryExecutor(t)

	res, err := exec.Query(context.Background(),
		`SELECT p.IdPac, q.IdPac FROM Pacientes p JOIN Pacientes q ON q.IdPac = p.IdPac WHERE p.IdPac = 2`, 0)
	require.NoError(t, err)
	require.Len(t, res.Columns, 2)
	assert.Equal(t, "IdPac", res.Columns[0].Name)
	assert.Equal(t, "IdPac_2", res.Columns[1].Name)
	require.Equal(t, 1, res.RowCount)
	assert.Equal(t, "IdPac_2", res.Rows[0][1].Name)
	assert.Equal(t, res.Rows[0][0].Value, res.Rows[0][1].Value)
}

func TestDialect_ReadOnlyTx(t *testing.T) {
	assert.True(t, Dialect{}.ReadOnlyTx())
}

func TestExecutor_PingAndDialect(t *testing.T) {
	exec := newMemoryExecutor(t)
	assert.NoError(t, exec.Ping(context.Background()))
	assert.Equal(t, "sqlite", exec.Dialect().Name())
	assert.Equal(t, "?3", exec.Dialect().Placeholder(3))
}

func TestNewQueryExecutor_RequiresPath(t *testing.T) {
	_, err := NewQueryExecutor(context.Background(), config.DatasourceConfig{}, zap.NewNop())
	assert.ErrorContains(t, err, "path is required")
}

func TestBuildDSN(t *testing.T) {
	assert.Equal(t, "clinic.db?_pragma=busy_timeout(5000)", BuildDSN("clinic.db"))
	assert.Equal(t, "file:x.db?mode=ro&_pragma=busy_timeout(5000)", BuildDSN("file:x.db?mode=ro"))
}
