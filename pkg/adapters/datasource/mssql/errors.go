package mssql

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/logging"
)

const tlsHelpURL = "https://learn.microsoft.com/sql/database-engine/configure-windows/enable-encrypted-connections-to-the-database-engine"

type classification struct {
	code    string
	message string
	helpURL string
}

// serverErrors maps SQL Server error numbers to the shared failure taxonomy.
// Adding a mapping is a table edit, not new control flow.
var serverErrors = map[int32]classification{
	18456: {datasource.CodeAuthFailed, "Login failed. Check the username and password.", ""},
	18452: {datasource.CodeAuthFailed, "Login failed. The login is from an untrusted domain.", ""},
	4060:  {datasource.CodeDatabaseNotFound, "Cannot open the requested database. Check the database name.", ""},
	911:   {datasource.CodeDatabaseNotFound, "Database does not exist.", ""},
	916:   {datasource.CodeAccessDenied, "The login cannot access the requested database.", ""},
	229:   {datasource.CodeAccessDenied, "Permission denied on a required object.", ""},
	230:   {datasource.CodeAccessDenied, "Permission denied on a required column.", ""},
	40615: {datasource.CodeNetworkUnreachable, "The server firewall rejected the connection.", ""},
}

// classify maps a connection error to a stable code, a safe human-readable
// message, and an optional remediation link. The returned message never
// contains credential material.
func classify(err error) (code, message, helpURL string) {
	if err == nil {
		return "", "", ""
	}

	var srvErr mssqldb.Error
	if errors.As(err, &srvErr) {
		if c, ok := serverErrors[srvErr.Number]; ok {
			return c.code, c.message, c.helpURL
		}
		return datasource.CodeUnknown, logging.SanitizeError(err), ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return datasource.CodeServerNotFound, "Server not found. Check the host name.", ""
	}

	var certErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &recErr) {
		return datasource.CodeTLSFailed, "TLS handshake failed. The server certificate could not be validated.", tlsHelpURL
	}
	// The driver wraps handshake failures in a plain error.
	if strings.Contains(err.Error(), "TLS Handshake failed") {
		return datasource.CodeTLSFailed, "TLS handshake failed. The server certificate could not be validated.", tlsHelpURL
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
