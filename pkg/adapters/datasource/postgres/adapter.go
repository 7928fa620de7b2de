// Package postgres implements the PostgreSQL datasource adapter. PostgreSQL
// targets are always synced over the cross-server path; the metadata store is
// SQL Server, so no same-server fast path exists for this engine.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
)

// Adapter is the PostgreSQL implementation of datasource.Adapter.
type Adapter struct {
	appName string
	logger  *zap.Logger
}

var _ datasource.Adapter = (*Adapter)(nil)

// NewAdapter creates a PostgreSQL adapter.
func NewAdapter(appName string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{appName: appName, logger: logger}
}

// BuildDSN renders the descriptor as a postgres:// URL without credentials.
func BuildDSN(info datasource.ConnectionInfo) string {
	query := url.Values{}
	if info.TimeoutSeconds > 0 {
		query.Add("connect_timeout", fmt.Sprintf("%d", info.TimeoutSeconds))
	}
	if info.AppName != "" {
		query.Add("application_name", info.AppName)
	}
	if !info.Encrypt {
		query.Add("sslmode", "disable")
	} else if info.TrustServerCertificate {
		query.Add("sslmode", "require")
	} else {
		query.Add("sslmode", "verify-full")
	}

	u := &url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", info.Host, info.Port),
		Path:     "/" + info.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (a *Adapter) applyDefaults(info datasource.ConnectionInfo) datasource.ConnectionInfo {
	if info.Port == 0 {
		info.Port = 5432
	}
	if info.TimeoutSeconds == 0 {
		info.TimeoutSeconds = 30
	}
	if info.AppName == "" {
		info.AppName = a.appName
	}
	return info
}

func (a *Adapter) open(ctx context.Context, info datasource.ConnectionInfo) (*sql.DB, error) {
	info = a.applyDefaults(info)
	if info.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if info.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	u, err := url.Parse(BuildDSN(info))
	if err != nil {
		return nil, fmt.Errorf("build connection url: %w", err)
	}
	if info.Credentials.Username != "" {
		u.User = url.UserPassword(info.Credentials.Username, info.Credentials.Password)
	}

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// TestConnection makes a single connection attempt and classifies the outcome.
func (a *Adapter) TestConnection(ctx context.Context, info datasource.ConnectionInfo) datasource.ConnectionResult {
	db, err := a.open(ctx, info)
	if err != nil {
		code, message, helpURL := classify(err)
		a.logger.Info("connection test failed",
			zap.String("host", info.Host),
			zap.Int("port", info.Port),
			zap.String("database", info.Database),
			zap.String("code", code))
		return datasource.ConnectionResult{
			Valid:   false,
			Code:    code,
			Message: message,
			HelpURL: helpURL,
		}
	}
	defer db.Close()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		code, message, helpURL := classify(err)
		return datasource.ConnectionResult{
			Valid:   false,
			Code:    code,
			Message: message,
			HelpURL: helpURL,
		}
	}

	return datasource.ConnectionResult{
		Valid:         true,
		ServerVersion: version,
	}
}

// NewSchemaReader opens a dedicated connection for schema extraction.
func (a *Adapter) NewSchemaReader(ctx context.Context, info datasource.ConnectionInfo) (datasource.SchemaReader, error) {
	db, err := a.open(ctx, info)
	if err != nil {
		return nil, err
	}
	return &schemaReader{db: db}, nil
}
