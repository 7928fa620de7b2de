package datasource

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/actoengine/actoengine/pkg/models"
)

// ParseConnectionString parses a caller-supplied raw connection string into a
// descriptor plus separately-carried credentials. The raw string is used only
// for the duration of a sync and never persisted; only the database name is
// retained on the project entity.
//
// Supported forms:
//   - ADO-style semicolon pairs (SQL Server):
//     "Server=host,1433;Database=Sales;User Id=u;Password=p;Encrypt=true"
//   - URL form: "sqlserver://host:1433?database=Sales" or
//     "postgres://host:5432/sales" (credentials in userinfo).
func ParseConnectionString(raw string) (ConnectionInfo, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ConnectionInfo{}, fmt.Errorf("connection string is empty")
	}

	if strings.Contains(trimmed, "://") {
		return parseURLForm(trimmed)
	}
	return parseADOForm(trimmed)
}

func parseURLForm(raw string) (ConnectionInfo, error) {
	u, err := url.Parse(raw)
	if err != nil {
		// url.Error quotes the full URL, credentials included; keep only
		// the underlying reason.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return ConnectionInfo{}, fmt.Errorf("parse connection url: %w", err)
	}

	info := ConnectionInfo{
		Host: u.Hostname(),
	}

	switch u.Scheme {
	case "sqlserver", "mssql":
		info.Engine = models.EngineSQLServer
		info.Port = 1433
		info.Database = u.Query().Get("database")
	case "postgres", "postgresql":
		info.Engine = models.EnginePostgres
		info.Port = 5432
		info.Database = strings.TrimPrefix(u.Path, "/")
	default:
		return ConnectionInfo{}, fmt.Errorf("unsupported connection scheme %q", u.Scheme)
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return ConnectionInfo{}, fmt.Errorf("invalid port %q", p)
		}
		info.Port = port
	}

	if u.User != nil {
		info.Credentials.Username = u.User.Username()
		info.Credentials.Password, _ = u.User.Password()
	}

	if info.Database == "" {
		return ConnectionInfo{}, fmt.Errorf("connection string has no database name")
	}
	return info, nil
}

func parseADOForm(raw string) (ConnectionInfo, error) {
	info := ConnectionInfo{
		Engine: models.EngineSQLServer,
		Port:   1433,
	}

	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return ConnectionInfo{}, fmt.Errorf("malformed connection string segment %q", key)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "server", "data source", "address", "addr":
			host, port, hasPort := strings.Cut(value, ",")
			info.Host = strings.TrimSpace(host)
			if hasPort {
				p, err := strconv.Atoi(strings.TrimSpace(port))
				if err != nil {
					return ConnectionInfo{}, fmt.Errorf("invalid port in %q", value)
				}
				info.Port = p
			}
		case "database", "initial catalog":
			info.Database = value
		case "user id", "uid", "user":
			info.Credentials.Username = value
		case "password", "pwd":
			info.Credentials.Password = value
		case "encrypt":
			info.Encrypt = strings.EqualFold(value, "true") || strings.EqualFold(value, "yes") || strings.EqualFold(value, "strict")
		case "trustservercertificate", "trust server certificate":
			info.TrustServerCertificate = strings.EqualFold(value, "true") || strings.EqualFold(value, "yes")
		case "connection timeout", "connect timeout", "timeout":
			t, err := strconv.Atoi(value)
			if err != nil {
				return ConnectionInfo{}, fmt.Errorf("invalid timeout %q", value)
			}
			info.TimeoutSeconds = t
		case "application name", "app name":
			info.AppName = value
		}
	}

	if info.Host == "" {
		return ConnectionInfo{}, fmt.Errorf("connection string has no server")
	}
	if info.Database == "" {
		return ConnectionInfo{}, fmt.Errorf("connection string has no database name")
	}
	return info, nil
}
