package models

import "time"

// DefaultClientName is the grouping client auto-created when a project's
// stored procedures are synced before any client exists.
const DefaultClientName = "Default"

// Client is the organizational owner tag attached to synced stored
// procedures.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
