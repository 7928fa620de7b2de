package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/apperrors"
	"github.com/actoengine/actoengine/pkg/logging"
	"github.com/actoengine/actoengine/pkg/models"
	"github.com/actoengine/actoengine/pkg/repositories"
)

// syncStore is the metadata-store surface the orchestrator draws on: the
// transactional unit of work, direct execution for the same-server procedure
// call, and the store's own instance identity.
type syncStore interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	ServerIdentity(ctx context.Context) (string, error)
}

type schemaAnalyzer interface {
	Analyze(ctx context.Context, projectID int64) (*models.DependencyAnalysis, error)
}

type fkDetector interface {
	Detect(ctx context.Context, projectID int64) ([]models.LogicalFkCandidate, error)
}

var (
	_ schemaAnalyzer = (*DependencyAnalyzer)(nil)
	_ fkDetector     = (*LogicalFkDetector)(nil)
)

// SyncOrchestrator executes one schema sync run: strategy selection, the
// four metadata phases in a single transaction, progress reporting and the
// best-effort post-commit analyses.
//
// Failure reasons written to the status record pass through the log
// sanitizer first, so a driver error embedding the connection string can
// never leak credentials into the store.
type SyncOrchestrator struct {
	store       syncStore
	projectRepo repositories.ProjectRepository
	schemaRepo  repositories.SchemaRepository
	statusRepo  repositories.SyncStatusRepository
	clientRepo  repositories.ClientRepository
	analyzer    schemaAnalyzer
	detector    fkDetector
	logger      *zap.Logger
}

// NewSyncOrchestrator wires a SyncOrchestrator. store is the metadata store
// connection; the same pool backs the repositories.
func NewSyncOrchestrator(
	store syncStore,
	projectRepo repositories.ProjectRepository,
	schemaRepo repositories.SchemaRepository,
	statusRepo repositories.SyncStatusRepository,
	clientRepo repositories.ClientRepository,
	analyzer schemaAnalyzer,
	detector fkDetector,
	logger *zap.Logger,
) *SyncOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncOrchestrator{
		store:       store,
		projectRepo: projectRepo,
		schemaRepo:  schemaRepo,
		statusRepo:  statusRepo,
		clientRepo:  clientRepo,
		analyzer:    analyzer,
		detector:    detector,
		logger:      logger,
	}
}

// RunSync performs a full sync of one project. The connection descriptor and
// its credentials live only for the duration of this call.
func (o *SyncOrchestrator) RunSync(ctx context.Context, project *models.Project, info datasource.ConnectionInfo, actorID int64) error {
	syncID := uuid.New().String()
	log := o.logger.With(
		zap.String("sync_id", syncID),
		zap.Int64("project_id", project.ID),
		zap.String("database", info.Database))

	log.Info("sync started", zap.String("engine", info.Engine))
	o.setStatus(ctx, project.ID, models.SyncStatusStarted, models.ProgressStarted, log)

	client, err := o.ensureDefaultClient(ctx)
	if err != nil {
		return o.fail(ctx, project.ID, fmt.Errorf("resolve default client: %w", err), log)
	}
	if err := o.ensureClientLink(ctx, project.ID, client.ID, actorID); err != nil {
		return o.fail(ctx, project.ID, fmt.Errorf("link default client: %w", err), log)
	}

	adapter, err := datasource.ForEngine(info.Engine)
	if err != nil {
		return o.fail(ctx, project.ID, err, log)
	}

	reader, err := adapter.NewSchemaReader(ctx, info)
	if err != nil {
		return o.fail(ctx, project.ID, fmt.Errorf("connect to target: %w", err), log)
	}
	defer reader.Close()

	sameServer := o.isSameServer(ctx, info, reader, log)
	log.Info("sync strategy selected", zap.Bool("same_server", sameServer))

	if sameServer {
		err = o.runSameServer(ctx, project, client, info, actorID, log)
	} else {
		err = o.runCrossServer(ctx, project, client, reader, log)
	}
	if err != nil {
		return o.fail(ctx, project.ID, err, log)
	}

	o.runAnalyses(ctx, project.ID, log)

	if err := o.projectRepo.SetLinked(ctx, project.ID, true); err != nil {
		return o.fail(ctx, project.ID, fmt.Errorf("mark project linked: %w", err), log)
	}
	o.setStatus(ctx, project.ID, models.SyncStatusCompleted, models.ProgressCompleted, log)
	log.Info("sync completed")
	return nil
}

// ensureDefaultClient returns the default client, creating it if this is the
// first sync. A create that loses a race to a concurrent first sync falls
// back to reading the winner's row; if that also fails the sync is fatal,
// since stored procedures cannot be attributed to any client.
func (o *SyncOrchestrator) ensureDefaultClient(ctx context.Context) (*models.Client, error) {
	client, err := o.clientRepo.GetByName(ctx, models.DefaultClientName)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	client, createErr := o.clientRepo.Create(ctx, models.DefaultClientName)
	if createErr == nil {
		return client, nil
	}
	client, err = o.clientRepo.GetByName(ctx, models.DefaultClientName)
	if err != nil {
		return nil, fmt.Errorf("create default client: %w", createErr)
	}
	return client, nil
}

// ensureClientLink associates the client with the project so its synced
// stored procedures are reachable through the project-client relation.
func (o *SyncOrchestrator) ensureClientLink(ctx context.Context, projectID, clientID, actorID int64) error {
	linked, err := o.clientRepo.IsLinked(ctx, projectID, clientID)
	if err != nil {
		return err
	}
	if linked {
		return nil
	}
	return o.clientRepo.Link(ctx, projectID, clientID, actorID)
}

// isSameServer determines the sync strategy. Only SQL Server targets can
// share an instance with the metadata store; any identity lookup failure
// falls back to the cross-server path, which is always correct.
func (o *SyncOrchestrator) isSameServer(ctx context.Context, info datasource.ConnectionInfo, reader datasource.SchemaReader, log *zap.Logger) bool {
	if info.Engine != models.EngineSQLServer {
		return false
	}

	storeIdentity, err := o.store.ServerIdentity(ctx)
	if err != nil {
		log.Warn("store identity lookup failed, using cross-server path", zap.Error(err))
		return false
	}
	targetIdentity, err := reader.ServerIdentity(ctx)
	if err != nil {
		log.Warn("target identity lookup failed, using cross-server path", zap.Error(err))
		return false
	}
	return IsSameServer(storeIdentity, targetIdentity)
}

// runSameServer delegates the four phases to a stored procedure on the
// shared instance, which reads the target catalog with three-part names and
// writes the metadata tables in one server-side transaction. The procedure
// updates the progress record itself as each phase completes, so the
// waypoints match the cross-server path.
func (o *SyncOrchestrator) runSameServer(ctx context.Context, project *models.Project, client *models.Client, info datasource.ConnectionInfo, actorID int64, log *zap.Logger) error {
	o.setStatus(ctx, project.ID, models.SyncStatusSyncingTables, models.ProgressSyncingTables, log)

	_, err := o.store.ExecContext(ctx,
		"EXEC dbo.usp_SyncProjectSchema @ProjectID = @pid, @DatabaseName = @db, @ClientID = @cid, @ActorID = @actor",
		sql.Named("pid", project.ID),
		sql.Named("db", info.Database),
		sql.Named("cid", client.ID),
		sql.Named("actor", actorID))
	if err != nil {
		return fmt.Errorf("same-server sync procedure: %w", err)
	}

	o.setStatus(ctx, project.ID, models.SyncStatusProcsSynced, models.ProgressProcsSynced, log)
	return nil
}

// runCrossServer pulls schema metadata over the target connection and writes
// it through a single metadata-store transaction: tables, then columns, then
// foreign keys, then stored procedures. A failure in any phase rolls back
// all of them.
func (o *SyncOrchestrator) runCrossServer(ctx context.Context, project *models.Project, client *models.Client, reader datasource.SchemaReader, log *zap.Logger) error {
	o.setStatus(ctx, project.ID, models.SyncStatusSyncingTables, models.ProgressSyncingTables, log)

	tables, err := reader.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	tx, err := o.store.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	tableIDs, tableCount, err := o.schemaRepo.UpsertTables(ctx, tx, project.ID, tables)
	if err != nil {
		return err
	}
	o.setStatus(ctx, project.ID, models.SyncStatusTablesSynced, models.ProgressTablesSynced, log)
	log.Info("tables synced", zap.Int("count", tableCount))

	o.setStatus(ctx, project.ID, models.SyncStatusSyncingColumns, models.ProgressSyncingCols, log)
	columnIDs := make(map[string]int64)
	columnCount := 0
	for _, t := range tables {
		columns, err := reader.ListColumns(ctx, t.SchemaName, t.TableName)
		if err != nil {
			return fmt.Errorf("list columns for %s.%s: %w", t.SchemaName, t.TableName, err)
		}
		ids, n, err := o.schemaRepo.UpsertColumns(ctx, tx, tableIDs[t.SchemaName+"."+t.TableName], columns)
		if err != nil {
			return err
		}
		for name, id := range ids {
			columnIDs[t.SchemaName+"."+t.TableName+"."+name] = id
		}
		columnCount += n
	}
	o.setStatus(ctx, project.ID, models.SyncStatusColumnsSynced, models.ProgressColumnsSynced, log)
	log.Info("columns synced", zap.Int("count", columnCount))

	o.setStatus(ctx, project.ID, models.SyncStatusSyncingFks, models.ProgressSyncingFks, log)
	fkScans, err := reader.ListForeignKeys(ctx, tables)
	if err != nil {
		return fmt.Errorf("list foreign keys: %w", err)
	}
	fks := resolveForeignKeys(project.ID, fkScans, tableIDs, columnIDs)
	fkCount, err := o.schemaRepo.ReplaceForeignKeys(ctx, tx, project.ID, fks)
	if err != nil {
		return err
	}
	o.setStatus(ctx, project.ID, models.SyncStatusFksSynced, models.ProgressFksSynced, log)
	log.Info("foreign keys synced", zap.Int("count", fkCount), zap.Int("skipped", len(fkScans)-fkCount))

	o.setStatus(ctx, project.ID, models.SyncStatusSyncingProcs, models.ProgressSyncingProcs, log)
	procs, err := reader.ListStoredProcedures(ctx)
	if err != nil {
		return fmt.Errorf("list stored procedures: %w", err)
	}
	procCount, err := o.schemaRepo.UpsertStoredProcedures(ctx, tx, project.ID, client.ID, procs)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync transaction: %w", err)
	}
	o.setStatus(ctx, project.ID, models.SyncStatusProcsSynced, models.ProgressProcsSynced, log)
	log.Info("stored procedures synced", zap.Int("count", procCount))
	return nil
}

// resolveForeignKeys maps scanned foreign keys to metadata-store ids. Keys
// whose endpoints cannot be resolved are dropped rather than failing the
// sync; the reader already filtered to the synced table set, so misses here
// mean the target schema changed mid-sync.
func resolveForeignKeys(projectID int64, scans []models.ForeignKeyScan, tableIDs, columnIDs map[string]int64) []models.ForeignKeyMetadata {
	var fks []models.ForeignKeyMetadata
	for _, s := range scans {
		srcTable := s.SourceSchema + "." + s.SourceTable
		refTable := s.ReferencedSchema + "." + s.ReferencedTable

		srcTableID, ok1 := tableIDs[srcTable]
		refTableID, ok2 := tableIDs[refTable]
		srcColID, ok3 := columnIDs[srcTable+"."+s.SourceColumn]
		refColID, ok4 := columnIDs[refTable+"."+s.ReferencedColumn]
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		fks = append(fks, models.ForeignKeyMetadata{
			ProjectID:          projectID,
			ConstraintName:     s.ConstraintName,
			SourceTableID:      srcTableID,
			SourceColumnID:     srcColID,
			ReferencedTableID:  refTableID,
			ReferencedColumnID: refColID,
			OnDelete:           s.OnDelete,
			OnUpdate:           s.OnUpdate,
		})
	}
	return fks
}

// runAnalyses executes the post-commit passes. Both are best-effort; a
// failure is logged and the sync still completes.
func (o *SyncOrchestrator) runAnalyses(ctx context.Context, projectID int64, log *zap.Logger) {
	o.setStatus(ctx, projectID, models.SyncStatusAnalyzingDeps, models.ProgressAnalyzing, log)
	if _, err := o.analyzer.Analyze(ctx, projectID); err != nil {
		log.Warn("dependency analysis failed", zap.Error(err))
	}

	o.setStatus(ctx, projectID, models.SyncStatusDetectingFks, models.ProgressDetectingFks, log)
	if _, err := o.detector.Detect(ctx, projectID); err != nil {
		log.Warn("logical fk detection failed", zap.Error(err))
	}
}

// fail records the terminal failure state. The reason is sanitized before it
// is persisted.
func (o *SyncOrchestrator) fail(ctx context.Context, projectID int64, cause error, log *zap.Logger) error {
	log.Error("sync failed", zap.Error(cause))
	reason := models.SyncStatusFailedPrefix + logging.TruncateString(logging.SanitizeError(cause), 500)
	o.setStatus(ctx, projectID, reason, models.ProgressFailed, log)
	return cause
}

// setStatus writes a progress waypoint. Status writes ride the pool, not the
// sync transaction, so progress is visible while a sync is running.
func (o *SyncOrchestrator) setStatus(ctx context.Context, projectID int64, status string, progress int, log *zap.Logger) {
	if err := o.statusRepo.Set(ctx, projectID, status, progress); err != nil {
		log.Warn("status update failed", zap.String("status", status), zap.Error(err))
	}
}
