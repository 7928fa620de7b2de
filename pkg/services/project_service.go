package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/models"
	"github.com/actoengine/actoengine/pkg/repositories"
)

// ProjectService handles project lifecycle and synced-schema retrieval.
type ProjectService interface {
	CreateProject(ctx context.Context, name string, actorID int64) (*models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpdateProject(ctx context.Context, id int64, name string, actorID int64) (*models.Project, error)
	DeleteProject(ctx context.Context, id int64, actorID int64) error
	GetProjectSchema(ctx context.Context, id int64) (*ProjectSchema, error)
}

type projectService struct {
	projectRepo  repositories.ProjectRepository
	schemaRepo   repositories.SchemaRepository
	analysisRepo repositories.AnalysisRepository
	logger       *zap.Logger
}

var _ ProjectService = (*projectService)(nil)

// NewProjectService creates a ProjectService.
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	schemaRepo repositories.SchemaRepository,
	analysisRepo repositories.AnalysisRepository,
	logger *zap.Logger,
) ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &projectService{
		projectRepo:  projectRepo,
		schemaRepo:   schemaRepo,
		analysisRepo: analysisRepo,
		logger:       logger,
	}
}

// CreateProject registers a project. Projects start unlinked; linking
// happens through the sync flow.
func (s *projectService) CreateProject(ctx context.Context, name string, actorID int64) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	project := &models.Project{
		Name:      name,
		Engine:    models.EngineSQLServer,
		CreatedBy: actorID,
	}
	created, err := s.projectRepo.Create(ctx, project)
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", zap.Int64("project_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// GetProject returns one active project.
func (s *projectService) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id)
}

// ListProjects returns all active projects.
func (s *projectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.projectRepo.List(ctx)
}

// UpdateProject renames a project.
func (s *projectService) UpdateProject(ctx context.Context, id int64, name string, actorID int64) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Name = name
	project.UpdatedBy = actorID
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject soft-deletes a project. Synced metadata is kept; it becomes
// unreachable through the project listing.
func (s *projectService) DeleteProject(ctx context.Context, id int64, actorID int64) error {
	return s.projectRepo.SoftDelete(ctx, id, actorID)
}

// ProjectSchema is the synced schema of one project as served to clients.
type ProjectSchema struct {
	Project      *models.Project                  `json:"project"`
	Tables       []models.TableMetadata           `json:"tables"`
	Columns      []models.ColumnMetadata          `json:"columns"`
	ForeignKeys  []models.ForeignKeyMetadata      `json:"foreign_keys"`
	Procedures   []models.StoredProcedureMetadata `json:"procedures"`
	LogicalFks   []models.LogicalFkCandidate      `json:"logical_fks,omitempty"`
	Dependencies *models.DependencyAnalysis       `json:"dependencies,omitempty"`
}

// GetProjectSchema assembles the full synced schema for one project.
func (s *projectService) GetProjectSchema(ctx context.Context, id int64) (*ProjectSchema, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tables, err := s.schemaRepo.ListTables(ctx, id)
	if err != nil {
		return nil, err
	}
	columns, err := s.schemaRepo.ListColumnsForProject(ctx, id)
	if err != nil {
		return nil, err
	}
	fks, err := s.schemaRepo.ListForeignKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	procs, err := s.schemaRepo.ListStoredProcedures(ctx, id)
	if err != nil {
		return nil, err
	}
	logicalFks, err := s.analysisRepo.ListLogicalFkCandidates(ctx, id)
	if err != nil {
		return nil, err
	}
	deps, err := s.analysisRepo.GetDependencyAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ProjectSchema{
		Project:      project,
		Tables:       tables,
		Columns:      columns,
		ForeignKeys:  fks,
		Procedures:   procs,
		LogicalFks:   logicalFks,
		Dependencies: deps,
	}, nil
}
