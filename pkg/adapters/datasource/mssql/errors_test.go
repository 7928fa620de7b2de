package mssql

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	mssqldb "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
)

func TestClassifyServerErrors(t *testing.T) {
	tests := []struct {
		name     string
		number   int32
		expected string
	}{
		{"login failed", 18456, datasource.CodeAuthFailed},
		{"untrusted domain", 18452, datasource.CodeAuthFailed},
		{"cannot open database", 4060, datasource.CodeDatabaseNotFound},
		{"database missing", 911, datasource.CodeDatabaseNotFound},
		{"no database access", 916, datasource.CodeAccessDenied},
		{"object permission", 229, datasource.CodeAccessDenied},
		{"firewall rejection", 40615, datasource.CodeNetworkUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message, _ := classify(mssqldb.Error{Number: tt.number})
			assert.Equal(t, tt.expected, code)
			assert.NotEmpty(t, message)
		})
	}
}

func TestClassifyUnknownServerError(t *testing.T) {
	code, _, _ := classify(mssqldb.Error{Number: 99999})
	assert.Equal(t, datasource.CodeUnknown, code)
}

func TestClassifyNetworkErrors(t *testing.T) {
	t.Run("dns failure", func(t *testing.T) {
		code, _, _ := classify(&net.DNSError{Name: "nosuchhost", IsNotFound: true})
		assert.Equal(t, datasource.CodeServerNotFound, code)
	})

	t.Run("timeout", func(t *testing.T) {
		code, _, _ := classify(fmt.Errorf("ping: %w", context.DeadlineExceeded))
		assert.Equal(t, datasource.CodeNetworkUnreachable, code)
	})

	t.Run("connection refused", func(t *testing.T) {
		code, _, _ := classify(&net.OpError{Op: "dial", Err: errors.New("connection refused")})
		assert.Equal(t, datasource.CodeNetworkUnreachable, code)
	})
}

func TestClassifyTLSHandshake(t *testing.T) {
	code, _, helpURL := classify(errors.New("TLS Handshake failed: x509: certificate signed by unknown authority"))
	assert.Equal(t, datasource.CodeTLSFailed, code)
	assert.NotEmpty(t, helpURL)
}

// A driver error echoing credential material must come back redacted.
func TestClassifyRedactsUnknownErrors(t *testing.T) {
	_, message, _ := classify(errors.New("open failed: Server=db1;User Id=admin;Password=hunter2"))
	assert.NotContains(t, message, "hunter2")
	assert.NotContains(t, message, "admin")
}
