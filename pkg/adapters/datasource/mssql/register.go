package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "GELITE on SQL Server 2012+ (SQL authentication)",
		},
		Factory: NewQueryExecutor,
	})
}

// NewQueryExecutor opens a bounded pool against SQL Server.
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
