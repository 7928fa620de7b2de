package mssql

import (
	"fmt"
	"net/url"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
)

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// applyDefaults fills unset descriptor fields. Encryption is always requested;
// certificate validation is relaxed outside production-like environments so
// local instances with self-signed certificates work out of the box. Both the
// connection resolver and the sync orchestrator build descriptors through this
// path, so the two call sites behave identically.
func (a *Adapter) applyDefaults(info datasource.ConnectionInfo) datasource.ConnectionInfo {
	if info.Port == 0 {
		info.Port = DefaultPort()
	}
	if info.TimeoutSeconds == 0 {
		info.TimeoutSeconds = DefaultConnectionTimeout()
	}
	if info.AppName == "" {
		info.AppName = a.appName
	}
	info.Encrypt = true
	if !a.production {
		info.TrustServerCertificate = true
	}
	return info
}

// BuildDSN renders the descriptor as a sqlserver:// URL without credentials.
// The result is safe to log or serialize; credentials are applied separately
// at open time.
func BuildDSN(info datasource.ConnectionInfo) string {
	query := url.Values{}
	query.Add("database", info.Database)
	if info.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if info.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if info.TimeoutSeconds > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", info.TimeoutSeconds))
	}
	if info.AppName != "" {
		query.Add("app name", info.AppName)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%d", info.Host, info.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// validate checks the descriptor has the fields a connection attempt needs.
func validate(info datasource.ConnectionInfo) error {
	if info.Host == "" {
		return fmt.Errorf("host is required")
	}
	if info.Database == "" {
		return fmt.Errorf("database is required")
	}
	if info.Port <= 0 || info.Port > 65535 {
		return fmt.Errorf("invalid port: %d", info.Port)
	}
	return nil
}
