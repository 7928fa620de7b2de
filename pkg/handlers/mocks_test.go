package handlers

import (
	"context"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/models"
	"github.com/actoengine/actoengine/pkg/services"
)

type fakeSyncService struct {
	linkAck   string
	linkErr   error
	createdID int64
	status    *models.SyncStatus
	statusErr error
	lastRaw   string
	lastID    int64
	lastActor int64
}

var _ services.SyncService = (*fakeSyncService)(nil)

func (s *fakeSyncService) LinkProject(ctx context.Context, projectID int64, raw string, actorID int64) (int64, string, error) {
	s.lastID, s.lastRaw, s.lastActor = projectID, raw, actorID
	if projectID == 0 {
		return s.createdID, s.linkAck, s.linkErr
	}
	return projectID, s.linkAck, s.linkErr
}

func (s *fakeSyncService) ReSyncProject(ctx context.Context, projectID int64, raw string, actorID int64) (int64, string, error) {
	s.lastID, s.lastRaw, s.lastActor = projectID, raw, actorID
	return projectID, s.linkAck, s.linkErr
}

func (s *fakeSyncService) GetSyncStatus(ctx context.Context, projectID int64) (*models.SyncStatus, error) {
	return s.status, s.statusErr
}

type fakeConnectionService struct {
	result datasource.ConnectionResult
	err    error
}

var _ services.ConnectionService = (*fakeConnectionService)(nil)

func (s *fakeConnectionService) Verify(ctx context.Context, raw string) (datasource.ConnectionResult, error) {
	return s.result, s.err
}

type fakeProjectService struct {
	project *models.Project
	list    []models.Project
	schema  *services.ProjectSchema
	err     error
}

var _ services.ProjectService = (*fakeProjectService)(nil)

func (s *fakeProjectService) CreateProject(ctx context.Context, name string, actorID int64) (*models.Project, error) {
	return s.project, s.err
}

func (s *fakeProjectService) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	return s.project, s.err
}

func (s *fakeProjectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.list, s.err
}

func (s *fakeProjectService) UpdateProject(ctx context.Context, id int64, name string, actorID int64) (*models.Project, error) {
	return s.project, s.err
}

func (s *fakeProjectService) DeleteProject(ctx context.Context, id int64, actorID int64) error {
	return s.err
}

func (s *fakeProjectService) GetProjectSchema(ctx context.Context, id int64) (*services.ProjectSchema, error) {
	return s.schema, s.err
}
