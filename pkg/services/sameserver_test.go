package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSameServer(t *testing.T) {
	tests := []struct {
		name     string
		store    string
		target   string
		expected bool
	}{
		{"identical", "SQLPROD01", "SQLPROD01", true},
		{"case differs", "sqlprod01", "SQLPROD01", true},
		{"surrounding whitespace", " SQLPROD01 ", "SQLPROD01", true},
		{"different instances", "SQLPROD01", "SQLPROD02", false},
		{"empty store identity", "", "SQLPROD01", false},
		{"empty target identity", "SQLPROD01", "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSameServer(tt.store, tt.target))
		})
	}
}
