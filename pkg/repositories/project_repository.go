// Package repositories contains the data access layer for the metadata
// store. Repositories expose interfaces consumed by services; all SQL lives
// here.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/actoengine/actoengine/pkg/apperrors"
	"github.com/actoengine/actoengine/pkg/models"
)

// ProjectRepository manages project records in the metadata store.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	SoftDelete(ctx context.Context, id int64, actorID int64) error

	// SetDatabaseName updates the stored database name for a project. Only
	// the database name from a connection string is ever persisted.
	SetDatabaseName(ctx context.Context, id int64, databaseName string, actorID int64) error

	// SetLinked flips the linked flag. It is set only after a sync reaches
	// the completed state.
	SetLinked(ctx context.Context, id int64, linked bool) error
}

type projectRepository struct {
	db *sql.DB
}

var _ ProjectRepository = (*projectRepository)(nil)

// NewProjectRepository creates a ProjectRepository backed by the metadata store.
func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	query := `
		INSERT INTO Projects (ProjectName, DatabaseName, Engine, IsActive, IsLinked, CreatedBy, CreatedAt, UpdatedBy, UpdatedAt)
		OUTPUT INSERTED.ProjectID, INSERTED.CreatedAt, INSERTED.UpdatedAt
		VALUES (@name, @db, @engine, 1, 0, @actor, SYSUTCDATETIME(), @actor, SYSUTCDATETIME())`

	err := r.db.QueryRowContext(ctx, query,
		sql.Named("name", project.Name),
		sql.Named("db", project.DatabaseName),
		sql.Named("engine", project.Engine),
		sql.Named("actor", project.CreatedBy),
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	project.IsActive = true
	project.IsLinked = false
	project.UpdatedBy = project.CreatedBy
	return project, nil
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	query := `
		SELECT ProjectID, ProjectName, DatabaseName, Engine, IsActive, IsLinked, CreatedBy, CreatedAt, UpdatedBy, UpdatedAt
		FROM Projects
		WHERE ProjectID = @id AND IsActive = 1`

	var p models.Project
	err := r.db.QueryRowContext(ctx, query, sql.Named("id", id)).Scan(
		&p.ID, &p.Name, &p.DatabaseName, &p.Engine, &p.IsActive, &p.IsLinked,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedBy, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &p, nil
}

func (r *projectRepository) List(ctx context.Context) ([]models.Project, error) {
	query := `
		SELECT ProjectID, ProjectName, DatabaseName, Engine, IsActive, IsLinked, CreatedBy, CreatedAt, UpdatedBy, UpdatedAt
		FROM Projects
		WHERE IsActive = 1
		ORDER BY ProjectName`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID, &p.Name, &p.DatabaseName, &p.Engine, &p.IsActive, &p.IsLinked,
			&p.CreatedBy, &p.CreatedAt, &p.UpdatedBy, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE Projects
		SET ProjectName = @name, Engine = @engine, UpdatedBy = @actor, UpdatedAt = SYSUTCDATETIME()
		WHERE ProjectID = @id AND IsActive = 1`

	result, err := r.db.ExecContext(ctx, query,
		sql.Named("name", project.Name),
		sql.Named("engine", project.Engine),
		sql.Named("actor", project.UpdatedBy),
		sql.Named("id", project.ID))
	if err != nil {
		return fmt.Errorf("update project %d: %w", project.ID, err)
	}
	return checkAffected(result)
}

func (r *projectRepository) SoftDelete(ctx context.Context, id int64, actorID int64) error {
	query := `
		UPDATE Projects
		SET IsActive = 0, UpdatedBy = @actor, UpdatedAt = SYSUTCDATETIME()
		WHERE ProjectID = @id AND IsActive = 1`

	result, err := r.db.ExecContext(ctx, query,
		sql.Named("actor", actorID),
		sql.Named("id", id))
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return checkAffected(result)
}

func (r *projectRepository) SetDatabaseName(ctx context.Context, id int64, databaseName string, actorID int64) error {
	query := `
		UPDATE Projects
		SET DatabaseName = @db, UpdatedBy = @actor, UpdatedAt = SYSUTCDATETIME()
		WHERE ProjectID = @id AND IsActive = 1`

	result, err := r.db.ExecContext(ctx, query,
		sql.Named("db", databaseName),
		sql.Named("actor", actorID),
		sql.Named("id", id))
	if err != nil {
		return fmt.Errorf("set database name for project %d: %w", id, err)
	}
	return checkAffected(result)
}

func (r *projectRepository) SetLinked(ctx context.Context, id int64, linked bool) error {
	query := `
		UPDATE Projects
		SET IsLinked = @linked, UpdatedAt = SYSUTCDATETIME()
		WHERE ProjectID = @id AND IsActive = 1`

	result, err := r.db.ExecContext(ctx, query,
		sql.Named("linked", linked),
		sql.Named("id", id))
	if err != nil {
		return fmt.Errorf("set linked for project %d: %w", id, err)
	}
	return checkAffected(result)
}

// checkAffected translates a zero-row update into ErrNotFound.
func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
