// Package datasource defines the contracts actoengine uses to talk to
// target databases: connection descriptors, connectivity testing with a
// fixed error taxonomy, and read-only schema extraction.
package datasource

import (
	"context"

	"github.com/actoengine/actoengine/pkg/models"
)

// Credentials is the username/password pair for a target database. It is
// carried separately from ConnectionInfo so that rendering or logging a
// descriptor can never leak the password.
type Credentials struct {
	Username string
	Password string
}

// ConnectionInfo describes a target database connection. It contains no
// credential material; see Credentials.
type ConnectionInfo struct {
	Engine                 string `json:"engine"`
	Host                   string `json:"host"`
	Port                   int    `json:"port"`
	Database               string `json:"database"`
	Encrypt                bool   `json:"encrypt"`
	TrustServerCertificate bool   `json:"trust_server_certificate"`
	TimeoutSeconds         int    `json:"timeout_seconds"`
	AppName                string `json:"app_name"`

	Credentials Credentials `json:"-"`
}

// Classification codes for connection failures. Stable machine-readable
// values; unmapped driver errors fall into CodeUnknown.
const (
	CodeAuthFailed         = "AUTH_FAILED"
	CodeNetworkUnreachable = "NETWORK_UNREACHABLE"
	CodeServerNotFound     = "SERVER_NOT_FOUND"
	CodeDatabaseNotFound   = "DATABASE_NOT_FOUND"
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeTLSFailed          = "TLS_HANDSHAKE_FAILED"
	CodeUnknown            = "UNKNOWN"
)

// ConnectionResult is the structured outcome of a single connection attempt.
type ConnectionResult struct {
	Valid         bool   `json:"valid"`
	ServerVersion string `json:"server_version,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	HelpURL       string `json:"help_url,omitempty"`
}

// SchemaReader extracts schema metadata from a target database. All methods
// are read-only catalog queries; errors propagate to the caller unmodified
// and no retries are performed here.
// Each implementation owns its connection and must be closed when done.
type SchemaReader interface {
	// ListTables returns all user tables with their schema names.
	ListTables(ctx context.Context) ([]models.TableScan, error)

	// ListColumns returns column definitions for one table, ordered by
	// ordinal position. The per-column field order is fixed (name, type,
	// max length, precision, scale, nullable, PK, FK, ordinal).
	ListColumns(ctx context.Context, schemaName, tableName string) ([]models.ColumnScan, error)

	// ListForeignKeys returns declared foreign keys among the given tables.
	ListForeignKeys(ctx context.Context, tables []models.TableScan) ([]models.ForeignKeyScan, error)

	// ListStoredProcedures returns stored procedure definitions.
	ListStoredProcedures(ctx context.Context) ([]models.StoredProcedureScan, error)

	// ServerIdentity returns the server instance identity string used by
	// same-server detection. An empty string means the identity could not
	// be determined.
	ServerIdentity(ctx context.Context) (string, error)

	// Close releases the database connection.
	Close() error
}

// Adapter is one database engine's implementation of connectivity testing
// and schema reading.
type Adapter interface {
	// TestConnection makes a single connection attempt and classifies the
	// outcome. It never returns an error; failures are encoded in the result.
	TestConnection(ctx context.Context, info ConnectionInfo) ConnectionResult

	// NewSchemaReader opens a connection for schema extraction.
	NewSchemaReader(ctx context.Context, info ConnectionInfo) (SchemaReader, error)
}
