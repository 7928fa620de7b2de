package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/apperrors"
	"github.com/actoengine/actoengine/pkg/models"
)

const testConnString = "Server=db1;Database=Sales;User Id=admin;Password=hunter2"

func newTestSyncService(t *testing.T, projectRepo *fakeProjectRepo, statusRepo *fakeStatusRepo, openErr error) SyncService {
	t.Helper()

	datasource.Register(models.EngineSQLServer, &failingAdapter{openErr: openErr})

	clientRepo := newFakeClientRepo()
	orchestrator := NewSyncOrchestrator(nil, projectRepo, nil, statusRepo, clientRepo, nil, nil, nil)
	return NewSyncService(projectRepo, statusRepo, orchestrator, NewKeyLock(time.Minute), time.Minute, nil)
}

func TestLinkProjectNotFound(t *testing.T) {
	svc := newTestSyncService(t, newFakeProjectRepo(), newFakeStatusRepo(), errors.New("unused"))

	_, _, err := svc.LinkProject(context.Background(), 99, testConnString, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReSyncProjectNotFoundWritesNoStatus(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	svc := newTestSyncService(t, newFakeProjectRepo(), statusRepo, errors.New("unused"))

	_, _, err := svc.ReSyncProject(context.Background(), 99, testConnString, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, ok := statusRepo.last(99)
	assert.False(t, ok, "no status record may exist for a rejected re-sync")
}

func TestLinkProjectInvalidConnectionString(t *testing.T) {
	project := &models.Project{ID: 7, Name: "Sales"}
	svc := newTestSyncService(t, newFakeProjectRepo(project), newFakeStatusRepo(), errors.New("unused"))

	_, _, err := svc.LinkProject(context.Background(), 7, "not a connection string", 1)
	assert.Error(t, err)
}

func TestLinkProjectImplicitCreate(t *testing.T) {
	projectRepo := newFakeProjectRepo()
	svc := newTestSyncService(t, projectRepo, newFakeStatusRepo(), errors.New("refused"))

	id, ack, err := svc.LinkProject(context.Background(), 0, testConnString, 7)
	require.NoError(t, err)
	assert.Equal(t, LinkAcknowledgement, ack)
	require.NotZero(t, id)

	created, err := projectRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Sales", created.Name, "implicit projects are named after the database")
	assert.Equal(t, "Sales", created.DatabaseName)
	assert.Equal(t, int64(7), created.CreatedBy)
}

func TestLinkProjectAcknowledgesAndRecordsFailure(t *testing.T) {
	project := &models.Project{ID: 7, Name: "Sales"}
	projectRepo := newFakeProjectRepo(project)
	statusRepo := newFakeStatusRepo()
	svc := newTestSyncService(t, projectRepo, statusRepo,
		errors.New("login failed for Password=hunter2"))

	id, ack, err := svc.LinkProject(context.Background(), 7, testConnString, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, LinkAcknowledgement, ack)

	// Only the database name is persisted on the project.
	stored, err := projectRepo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Sales", stored.DatabaseName)

	// The background run fails at connect; the failure lands on the status
	// record, redacted.
	require.Eventually(t, func() bool {
		record, ok := statusRepo.last(7)
		return ok && record.Progress == models.ProgressFailed
	}, 2*time.Second, 10*time.Millisecond)

	record, _ := statusRepo.last(7)
	assert.True(t, strings.HasPrefix(record.Status, models.SyncStatusFailedPrefix))
	assert.NotContains(t, record.Status, "hunter2")
	assert.False(t, projectRepo.isLinked(7), "a failed sync must not mark the project linked")
}

func TestLinkProjectSingleFlight(t *testing.T) {
	project := &models.Project{ID: 7, Name: "Sales"}
	projectRepo := newFakeProjectRepo(project)
	statusRepo := newFakeStatusRepo()

	datasource.Register(models.EngineSQLServer, &failingAdapter{openErr: errors.New("refused")})
	clientRepo := newFakeClientRepo()
	orchestrator := NewSyncOrchestrator(nil, projectRepo, nil, statusRepo, clientRepo, nil, nil, nil)
	locks := NewKeyLock(time.Minute)
	svc := NewSyncService(projectRepo, statusRepo, orchestrator, locks, time.Minute, nil)

	// Hold the project's lock as if a sync were running.
	require.True(t, locks.TryAcquire(7))

	_, _, err := svc.LinkProject(context.Background(), 7, testConnString, 1)
	assert.ErrorIs(t, err, apperrors.ErrSyncInProgress)

	// Other projects are unaffected.
	other := &models.Project{ID: 8, Name: "HR"}
	projectRepo.mu.Lock()
	projectRepo.projects[8] = other
	projectRepo.mu.Unlock()

	_, _, err = svc.LinkProject(context.Background(), 8, testConnString, 1)
	assert.NoError(t, err)
}

func TestGetSyncStatusNeverSynced(t *testing.T) {
	project := &models.Project{ID: 7, Name: "Sales"}
	svc := newTestSyncService(t, newFakeProjectRepo(project), newFakeStatusRepo(), errors.New("unused"))

	status, err := svc.GetSyncStatus(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, status, "never-synced projects have no status record")
}

func TestGetSyncStatusProjectMissing(t *testing.T) {
	svc := newTestSyncService(t, newFakeProjectRepo(), newFakeStatusRepo(), errors.New("unused"))

	_, err := svc.GetSyncStatus(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
