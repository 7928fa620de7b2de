package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/logging"
)

type classification struct {
	code    string
	message string
}

// sqlStates maps PostgreSQL SQLSTATE codes to the shared failure taxonomy.
var sqlStates = map[string]classification{
	"28P01": {datasource.CodeAuthFailed, "Password authentication failed. Check the username and password."},
	"28000": {datasource.CodeAuthFailed, "Authentication rejected for this user and host."},
	"3D000": {datasource.CodeDatabaseNotFound, "Database does not exist. Check the database name."},
	"42501": {datasource.CodeAccessDenied, "Permission denied on a required object."},
	"08001": {datasource.CodeNetworkUnreachable, "Could not establish a connection to the server."},
	"08006": {datasource.CodeNetworkUnreachable, "The connection to the server was lost."},
	"08P01": {datasource.CodeNetworkUnreachable, "Protocol violation while connecting to the server."},
}

// classify maps a connection error to a stable code and a safe message.
func classify(err error) (code, message, helpURL string) {
	if err == nil {
		return "", "", ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if c, ok := sqlStates[pgErr.Code]; ok {
			return c.code, c.message, ""
		}
		return datasource.CodeUnknown, logging.SanitizeError(err), ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return datasource.CodeServerNotFound, "Server not found. Check the host name.", ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return datasource.CodeNetworkUnreachable, "Connection timed out. Check the host, port and firewall rules.", ""
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return datasource.CodeNetworkUnreachable, "Could not reach the server. Check the host, port and firewall rules.", ""
	}

	return datasource.CodeUnknown, logging.SanitizeError(err), ""
}
