package mssql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"
)

// Dialect implements datasource.Dialect for SQL Server.
type Dialect struct{}

func (Dialect) Name() string { return "mssql" }

// ReadOnlyTx is false: go-mssqldb rejects read-only transaction options.
func (Dialect) ReadOnlyTx() bool { return false }

// Placeholder renders @pN; BindArgs supplies the matching named values.
func (Dialect) Placeholder(n int) string {
	return fmt.Sprintf("@p%d", n)
}

func (Dialect) BindArgs(params []any) []any {
	if len(params) == 0 {
		return nil
	}
	named := make([]any, len(params))
	for i, p := range params {
		named[i] = sql.Named(fmt.Sprintf("p%d", i+1), p)
	}
	return named
}

// QuoteIdentifier uses QUOTENAME semantics: brackets, with ] doubled.
func (Dialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// MapType maps SQL Server type names to portable type names.
func (Dialect) MapType(sqlServerType string) string {
	switch strings.ToUpper(sqlServerType) {
	case "TINYINT":
		return "TINYINT"
	case "SMALLINT":
		return "SMALLINT"
	case "INT":
		return "INTEGER"
	case "BIGINT":
		return "BIGINT"
	case "DECIMAL", "NUMERIC":
		return "NUMERIC"
	case "MONEY", "SMALLMONEY":
		return "MONEY"
	case "FLOAT":
		return "DOUBLE PRECISION"
	case "REAL":
		return "REAL"
	case "CHAR", "NCHAR":
		return "CHAR"
	case "VARCHAR", "NVARCHAR":
		return "VARCHAR"
	case "TEXT", "NTEXT":
		return "TEXT"
	case "BINARY", "VARBINARY":
		return "BYTEA"
	case "IMAGE":
		return "BLOB"
	case "DATE":
		return "DATE"
	case "TIME":
		return "TIME"
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		return "TIMESTAMP"
	case "DATETIMEOFFSET":
		return "TIMESTAMP WITH TIME ZONE"
	case "BIT":
		return "BOOLEAN"
	case "UNIQUEIDENTIFIER":
		return "UUID"
	default:
		return strings.ToUpper(sqlServerType)
	}
}

// NormalizeValue turns the driver's []byte encodings into plain values.
// DECIMAL and MONEY arrive as text, UNIQUEIDENTIFIER in mixed-endian bytes.
func (Dialect) NormalizeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	switch t := strings.ToUpper(dbType); {
	case t == "UNIQUEIDENTIFIER":
		var id mssqldb.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			return id.String()
		}
		return string(b)
	case isDecimalType(t):
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
		return string(b)
	case isStringType(t):
		return string(b)
	default:
		return b
	}
}

func isDecimalType(sqlType string) bool {
	switch sqlType {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

func isStringType(sqlType string) bool {
	switch sqlType {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT", "XML":
		return true
	}
	return false
}
