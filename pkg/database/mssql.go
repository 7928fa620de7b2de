package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/actoengine/actoengine/pkg/config"
)

// DB wraps the metadata store connection pool. It is the connection factory
// the sync orchestrator draws its transactional unit of work from.
type DB struct {
	*sql.DB
}

// NewConnection opens a connection pool to the metadata store and verifies it
// with a ping.
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	query := url.Values{}
	query.Add("database", cfg.Database)
	query.Add("app name", "actoengine-store")

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: query.Encode(),
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store connection: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns == 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping metadata store: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.DB.Close()
}

// ServerIdentity asks the metadata store for its own instance name, used by
// same-server detection. Recomputed on every call; the answer is never
// cached because failover or reconfiguration can change it between syncs.
func (db *DB) ServerIdentity(ctx context.Context) (string, error) {
	var name sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT CAST(SERVERPROPERTY('ServerName') AS NVARCHAR(256))").Scan(&name)
	if err != nil {
		return "", err
	}
	return name.String, nil
}
