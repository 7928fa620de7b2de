// Package mssql implements the SQL Server datasource adapter: connectivity
// testing with classified failures, and schema extraction over the system
// catalog views.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
)

// Adapter is the SQL Server implementation of datasource.Adapter.
type Adapter struct {
	appName    string
	production bool
	logger     *zap.Logger
}

var _ datasource.Adapter = (*Adapter)(nil)

// NewAdapter creates a SQL Server adapter. appName is sent to the server as
// the application name on every connection; production tightens certificate
// validation.
func NewAdapter(appName string, production bool, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		appName:    appName,
		production: production,
		logger:     logger,
	}
}

// open dials the target described by info. Credentials are injected into the
// driver URL here and nowhere else; BuildDSN output never contains them.
func (a *Adapter) open(ctx context.Context, info datasource.ConnectionInfo) (*sql.DB, error) {
	info = a.applyDefaults(info)
	if err := validate(info); err != nil {
		return nil, err
	}

	u, err := url.Parse(BuildDSN(info))
	if err != nil {
		return nil, fmt.Errorf("build connection url: %w", err)
	}
	if info.Credentials.Username != "" {
		u.User = url.UserPassword(info.Credentials.Username, info.Credentials.Password)
	}

	db, err := sql.Open("sqlserver", u.String())
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

// TestConnection makes a single connection attempt. Failures never surface as
// errors; they are classified into the result so callers can always report a
// structured outcome.
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
	if err := db.QueryRowContext(ctx, "SELECT @@VERSION").Scan(&version); err != nil {
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
