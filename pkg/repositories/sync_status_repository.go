package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/actoengine/actoengine/pkg/models"
)

// SyncStatusRepository manages the single progress record each project has.
type SyncStatusRepository interface {
	// Get returns the project's sync status, or nil if the project has
	// never been synced.
	Get(ctx context.Context, projectID int64) (*models.SyncStatus, error)

	// Set upserts the progress record. Every sync overwrites the previous
	// record; no history is kept.
	Set(ctx context.Context, projectID int64, status string, progress int) error
}

type syncStatusRepository struct {
	db *sql.DB
}

var _ SyncStatusRepository = (*syncStatusRepository)(nil)

// NewSyncStatusRepository creates a SyncStatusRepository backed by the
// metadata store.
func NewSyncStatusRepository(db *sql.DB) SyncStatusRepository {
	return &syncStatusRepository{db: db}
}

func (r *syncStatusRepository) Get(ctx context.Context, projectID int64) (*models.SyncStatus, error) {
	query := `
		SELECT ProjectID, Status, Progress, LastAttemptAt
		FROM SyncStatus
		WHERE ProjectID = @pid`

	var s models.SyncStatus
	err := r.db.QueryRowContext(ctx, query, sql.Named("pid", projectID)).Scan(
		&s.ProjectID, &s.Status, &s.Progress, &s.LastAttemptAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync status for project %d: %w", projectID, err)
	}
	return &s, nil
}

func (r *syncStatusRepository) Set(ctx context.Context, projectID int64, status string, progress int) error {
	query := `
		MERGE SyncStatus AS target
		USING (SELECT @pid AS ProjectID) AS source
		ON target.ProjectID = source.ProjectID
		WHEN MATCHED THEN
			UPDATE SET Status = @status, Progress = @progress, LastAttemptAt = SYSUTCDATETIME()
		WHEN NOT MATCHED THEN
			INSERT (ProjectID, Status, Progress, LastAttemptAt)
			VALUES (@pid, @status, @progress, SYSUTCDATETIME());`

	_, err := r.db.ExecContext(ctx, query,
		sql.Named("pid", projectID),
		sql.Named("status", status),
		sql.Named("progress", progress))
	if err != nil {
		return fmt.Errorf("set sync status for project %d: %w", projectID, err)
	}
	return nil
}
