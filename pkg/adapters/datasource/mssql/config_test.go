package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
)

func TestBuildDSNContainsNoCredentials(t *testing.T) {
	info := datasource.ConnectionInfo{
		Host:     "db1",
		Port:     1433,
		Database: "Sales",
		Encrypt:  true,
		Credentials: datasource.Credentials{
			Username: "admin",
			Password: "hunter2",
		},
	}

	dsn := BuildDSN(info)
	assert.NotContains(t, dsn, "admin")
	assert.NotContains(t, dsn, "hunter2")
	assert.Contains(t, dsn, "db1:1433")
	assert.Contains(t, dsn, "database=Sales")
	assert.Contains(t, dsn, "encrypt=true")
}

func TestApplyDefaultsDevelopment(t *testing.T) {
	a := NewAdapter("ActoEngine", false, nil)

	info := a.applyDefaults(datasource.ConnectionInfo{Host: "db1", Database: "Sales"})
	assert.Equal(t, 1433, info.Port)
	assert.Equal(t, 30, info.TimeoutSeconds)
	assert.Equal(t, "ActoEngine", info.AppName)
	assert.True(t, info.Encrypt)
	assert.True(t, info.TrustServerCertificate)
}

func TestApplyDefaultsProduction(t *testing.T) {
	a := NewAdapter("ActoEngine", true, nil)

	info := a.applyDefaults(datasource.ConnectionInfo{Host: "db1", Database: "Sales"})
	assert.True(t, info.Encrypt)
	assert.False(t, info.TrustServerCertificate)
}

func TestValidate(t *testing.T) {
	assert.Error(t, validate(datasource.ConnectionInfo{Database: "Sales", Port: 1433}))
	assert.Error(t, validate(datasource.ConnectionInfo{Host: "db1", Port: 1433}))
	assert.Error(t, validate(datasource.ConnectionInfo{Host: "db1", Database: "Sales", Port: 0}))
	assert.NoError(t, validate(datasource.ConnectionInfo{Host: "db1", Database: "Sales", Port: 1433}))
}
