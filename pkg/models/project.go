// Package models contains domain types for actoengine.
package models

import "time"

// Database engine tags for registered projects.
const (
	EngineSQLServer = "SqlServer"
	EnginePostgres  = "Postgres"
)

// Project represents a user-registered external database plus its
// synchronized metadata snapshot.
type Project struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DatabaseName string    `json:"database_name"`
	Engine       string    `json:"engine"`
	IsActive     bool      `json:"is_active"`
	// IsLinked flips to true only as the last step of a successful sync and
	// is never reset automatically by a failed re-sync.
	IsLinked     bool      `json:"is_linked"`
	CreatedBy    int64     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedBy    int64     `json:"updated_by"`
	UpdatedAt    time.Time `json:"updated_at"`
}
