package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/apperrors"
	"github.com/actoengine/actoengine/pkg/models"
	"github.com/actoengine/actoengine/pkg/repositories"
)

// LinkAcknowledgement is returned to callers of link and re-sync. The
// wording is part of the API contract: it tells the caller explicitly that
// the secret they just sent is transient.
const LinkAcknowledgement = "Connection string will not be stored"

// SyncService is the entry point for link and re-sync requests. It validates
// the request synchronously, then hands the actual sync to a background
// goroutine and returns immediately.
type SyncService interface {
	// LinkProject starts a sync for projectID. A zero projectID creates a
	// project named after the target database first. The returned id is the
	// project the sync was dispatched for.
	LinkProject(ctx context.Context, projectID int64, rawConnectionString string, actorID int64) (int64, string, error)
	ReSyncProject(ctx context.Context, projectID int64, rawConnectionString string, actorID int64) (int64, string, error)
	GetSyncStatus(ctx context.Context, projectID int64) (*models.SyncStatus, error)
}

var _ SyncService = (*syncService)(nil)

type syncService struct {
	projectRepo  repositories.ProjectRepository
	statusRepo   repositories.SyncStatusRepository
	orchestrator *SyncOrchestrator
	locks        *KeyLock
	syncTimeout  time.Duration
	logger       *zap.Logger
}

// NewSyncService creates a SyncService. syncTimeout bounds each background
// run; locks enforces one running sync per project.
func NewSyncService(
	projectRepo repositories.ProjectRepository,
	statusRepo repositories.SyncStatusRepository,
	orchestrator *SyncOrchestrator,
	locks *KeyLock,
	syncTimeout time.Duration,
	logger *zap.Logger,
) SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &syncService{
		projectRepo:  projectRepo,
		statusRepo:   statusRepo,
		orchestrator: orchestrator,
		locks:        locks,
		syncTimeout:  syncTimeout,
		logger:       logger,
	}
}

// LinkProject associates a project with a target database and starts a sync.
// With a zero projectID a new project named after the target database is
// created first. Only the database name from the connection string is
// persisted; the credentials live in memory for the duration of the
// background run.
func (s *syncService) LinkProject(ctx context.Context, projectID int64, rawConnectionString string, actorID int64) (int64, string, error) {
	info, err := datasource.ParseConnectionString(rawConnectionString)
	if err != nil {
		return 0, "", fmt.Errorf("invalid connection string: %w", err)
	}
	if _, err := datasource.ForEngine(info.Engine); err != nil {
		return 0, "", apperrors.ErrUnsupportedEngine
	}

	var project *models.Project
	if projectID == 0 {
		project, err = s.projectRepo.Create(ctx, &models.Project{
			Name:         info.Database,
			DatabaseName: info.Database,
			Engine:       info.Engine,
			CreatedBy:    actorID,
		})
		if err != nil {
			return 0, "", err
		}
		s.logger.Info("project created by link",
			zap.Int64("project_id", project.ID), zap.String("name", project.Name))
	} else {
		project, err = s.projectRepo.GetByID(ctx, projectID)
		if err != nil {
			return 0, "", err
		}
		if err := s.projectRepo.SetDatabaseName(ctx, projectID, info.Database, actorID); err != nil {
			return 0, "", err
		}
		project.DatabaseName = info.Database
		project.Engine = info.Engine
	}

	if err := s.dispatch(project, info, actorID); err != nil {
		return 0, "", err
	}
	return project.ID, LinkAcknowledgement, nil
}

// ReSyncProject re-runs the sync for an already linked project. The project
// must exist before anything else happens; callers get ErrNotFound without a
// status record ever being written.
func (s *syncService) ReSyncProject(ctx context.Context, projectID int64, rawConnectionString string, actorID int64) (int64, string, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return 0, "", err
	}

	info, err := datasource.ParseConnectionString(rawConnectionString)
	if err != nil {
		return 0, "", fmt.Errorf("invalid connection string: %w", err)
	}
	if _, err := datasource.ForEngine(info.Engine); err != nil {
		return 0, "", apperrors.ErrUnsupportedEngine
	}

	if err := s.dispatch(project, info, actorID); err != nil {
		return 0, "", err
	}
	return project.ID, LinkAcknowledgement, nil
}

// GetSyncStatus returns the project's progress record, or nil if it has
// never been synced. The project itself must exist.
func (s *syncService) GetSyncStatus(ctx context.Context, projectID int64) (*models.SyncStatus, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.statusRepo.Get(ctx, projectID)
}

// dispatch starts the background sync. The goroutine gets its own context;
// the caller's request context ends when the HTTP response is written and
// must not cancel the run.
func (s *syncService) dispatch(project *models.Project, info datasource.ConnectionInfo, actorID int64) error {
	if !s.locks.TryAcquire(project.ID) {
		return apperrors.ErrSyncInProgress
	}

	go func() {
		defer s.locks.Release(project.ID)

		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()

		if err := s.orchestrator.RunSync(ctx, project, info, actorID); err != nil {
			// Already recorded on the status record; nothing to return to.
			s.logger.Debug("background sync ended with error", zap.Int64("project_id", project.ID))
		}
	}()
	return nil
}
