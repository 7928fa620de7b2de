package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/actoengine/actoengine/pkg/apperrors"
	"github.com/actoengine/actoengine/pkg/models"
)

// ClientRepository manages client records. Stored procedures synced without
// an explicit client are attributed to the default client, which is created
// on demand by the sync orchestrator.
type ClientRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	GetByName(ctx context.Context, name string) (*models.Client, error)
	Create(ctx context.Context, name string) (*models.Client, error)

	// IsLinked reports whether the client is already associated with the
	// project.
	IsLinked(ctx context.Context, projectID, clientID int64) (bool, error)

	// Link associates the client with the project. Linking an already linked
	// pair is a no-op.
	Link(ctx context.Context, projectID, clientID, actorID int64) error
}

type clientRepository struct {
	db *sql.DB
}

var _ ClientRepository = (*clientRepository)(nil)

// NewClientRepository creates a ClientRepository backed by the metadata store.
func NewClientRepository(db *sql.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `
		SELECT ClientID, ClientName, IsActive, CreatedAt
		FROM Clients
		WHERE ClientID = @id AND IsActive = 1`

	var c models.Client
	err := r.db.QueryRowContext(ctx, query, sql.Named("id", id)).Scan(
		&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	return &c, nil
}

func (r *clientRepository) GetByName(ctx context.Context, name string) (*models.Client, error) {
	query := `
		SELECT ClientID, ClientName, IsActive, CreatedAt
		FROM Clients
		WHERE ClientName = @name AND IsActive = 1`

	var c models.Client
	err := r.db.QueryRowContext(ctx, query, sql.Named("name", name)).Scan(
		&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client %q: %w", name, err)
	}
	return &c, nil
}

func (r *clientRepository) Create(ctx context.Context, name string) (*models.Client, error) {
	query := `
		INSERT INTO Clients (ClientName, IsActive, CreatedAt)
		OUTPUT INSERTED.ClientID, INSERTED.CreatedAt
		VALUES (@name, 1, SYSUTCDATETIME())`

	c := models.Client{Name: name, IsActive: true}
	err := r.db.QueryRowContext(ctx, query, sql.Named("name", name)).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create client %q: %w", name, err)
	}
	return &c, nil
}

func (r *clientRepository) IsLinked(ctx context.Context, projectID, clientID int64) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM ProjectClients
		WHERE ProjectID = @pid AND ClientID = @cid`

	var count int
	err := r.db.QueryRowContext(ctx, query,
		sql.Named("pid", projectID),
		sql.Named("cid", clientID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check client link: %w", err)
	}
	return count > 0, nil
}

func (r *clientRepository) Link(ctx context.Context, projectID, clientID, actorID int64) error {
	query := `
		IF NOT EXISTS (SELECT 1 FROM ProjectClients WHERE ProjectID = @pid AND ClientID = @cid)
			INSERT INTO ProjectClients (ProjectID, ClientID, CreatedBy)
			VALUES (@pid, @cid, @actor)`

	_, err := r.db.ExecContext(ctx, query,
		sql.Named("pid", projectID),
		sql.Named("cid", clientID),
		sql.Named("actor", actorID))
	if err != nil {
		return fmt.Errorf("link client %d to project %d: %w", clientID, projectID, err)
	}
	return nil
}
