// Package mssql is the SQL Server adapter used against GELITE in production.
package mssql

import (
	"fmt"
	"net/url"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
)

// DriverName is the database/sql driver registered by go-mssqldb.
const DriverName = "sqlserver"

// BuildDSN builds a SQL authentication URL. Credentials are URL-escaped so
// passwords with @, / or # survive. A named instance replaces the port and
// is resolved through the SQL Browser service.
func BuildDSN(cfg config.DatasourceConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("database is required")
	}
	if cfg.Instance == "" && (cfg.Port <= 0 || cfg.Port > 65535) {
		return "", fmt.Errorf("invalid port: %d", cfg.Port)
	}

	query := url.Values{}
	query.Add("database", cfg.Database)
	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", int(cfg.ConnectTimeout.Seconds())))
	}
	query.Add("app name", "ia-dental")

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: query.Encode(),
	}
	if cfg.Instance != "" {
		u.Host = cfg.Host
		u.Path = "/" + cfg.Instance
	}
	return u.String(), nil
}
