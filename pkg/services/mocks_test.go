package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/apperrors"
	"github.com/actoengine/actoengine/pkg/models"
	"github.com/actoengine/actoengine/pkg/repositories"
)

// Hand-rolled fakes for the repository interfaces. State is guarded because
// the sync service exercises them from background goroutines.

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[int64]*models.Project
	linked   map[int64]bool
	getErr   error
}

var _ repositories.ProjectRepository = (*fakeProjectRepo)(nil)

func newFakeProjectRepo(projects ...*models.Project) *fakeProjectRepo {
	r := &fakeProjectRepo{
		projects: make(map[int64]*models.Project),
		linked:   make(map[int64]bool),
	}
	for _, p := range projects {
		r.projects[p.ID] = p
	}
	return r
}

func (r *fakeProjectRepo) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project.ID = int64(len(r.projects) + 1)
	r.projects[project.ID] = project
	return project, nil
}

func (r *fakeProjectRepo) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	p, ok := r.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProjectRepo) List(ctx context.Context) ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Project
	for _, p := range r.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProjectRepo) Update(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[project.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.projects[project.ID] = project
	return nil
}

func (r *fakeProjectRepo) SoftDelete(ctx context.Context, id int64, actorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *fakeProjectRepo) SetDatabaseName(ctx context.Context, id int64, databaseName string, actorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.DatabaseName = databaseName
	return nil
}

func (r *fakeProjectRepo) SetLinked(ctx context.Context, id int64, linked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	r.linked[id] = linked
	return nil
}

func (r *fakeProjectRepo) isLinked(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.linked[id]
}

type statusRecord struct {
	Status   string
	Progress int
}

type fakeStatusRepo struct {
	mu      sync.Mutex
	history map[int64][]statusRecord
}

var _ repositories.SyncStatusRepository = (*fakeStatusRepo)(nil)

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{history: make(map[int64][]statusRecord)}
}

func (r *fakeStatusRepo) Get(ctx context.Context, projectID int64) (*models.SyncStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.history[projectID]
	if len(records) == 0 {
		return nil, nil
	}
	last := records[len(records)-1]
	return &models.SyncStatus{ProjectID: projectID, Status: last.Status, Progress: last.Progress}, nil
}

func (r *fakeStatusRepo) Set(ctx context.Context, projectID int64, status string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[projectID] = append(r.history[projectID], statusRecord{Status: status, Progress: progress})
	return nil
}

func (r *fakeStatusRepo) last(projectID int64) (statusRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.history[projectID]
	if len(records) == 0 {
		return statusRecord{}, false
	}
	return records[len(records)-1], true
}

func (r *fakeStatusRepo) progressHistory(projectID int64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, rec := range r.history[projectID] {
		out = append(out, rec.Progress)
	}
	return out
}

type clientLink struct {
	projectID int64
	clientID  int64
}

type fakeClientRepo struct {
	mu        sync.Mutex
	clients   map[string]*models.Client
	links     map[clientLink]bool
	createErr error
	nextID    int64
}

var _ repositories.ClientRepository = (*fakeClientRepo)(nil)

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{
		clients: make(map[string]*models.Client),
		links:   make(map[clientLink]bool),
	}
}

func (r *fakeClientRepo) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeClientRepo) GetByName(ctx context.Context, name string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return c, nil
}

func (r *fakeClientRepo) Create(ctx context.Context, name string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	c := &models.Client{ID: r.nextID, Name: name, IsActive: true}
	r.clients[name] = c
	return c, nil
}

func (r *fakeClientRepo) IsLinked(ctx context.Context, projectID, clientID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.links[clientLink{projectID, clientID}], nil
}

func (r *fakeClientRepo) Link(ctx context.Context, projectID, clientID, actorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[clientLink{projectID, clientID}] = true
	return nil
}

// fakeSchemaRepo keeps synced metadata in memory. Upserts reuse the id of an
// existing row with the same key, like the real MERGE-based writer.
type fakeSchemaRepo struct {
	repositories.SchemaRepository

	mu      sync.Mutex
	tables  []models.TableMetadata
	columns []models.ColumnMetadata
	fks     []models.ForeignKeyMetadata
	procs   []models.StoredProcedureScan
	nextID  int64

	upsertTableCalls int
	replaceFkErr     error
}

func (r *fakeSchemaRepo) UpsertTables(ctx context.Context, tx *sql.Tx, projectID int64, tables []models.TableScan) (map[string]int64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertTableCalls++

	ids := make(map[string]int64, len(tables))
	for _, t := range tables {
		key := t.SchemaName + "." + t.TableName
		var id int64
		for _, existing := range r.tables {
			if existing.ProjectID == projectID && existing.SchemaName == t.SchemaName && existing.TableName == t.TableName {
				id = existing.ID
				break
			}
		}
		if id == 0 {
			r.nextID++
			id = r.nextID
			r.tables = append(r.tables, models.TableMetadata{
				ID:         id,
				ProjectID:  projectID,
				TableName:  t.TableName,
				SchemaName: t.SchemaName,
			})
		}
		ids[key] = id
	}
	return ids, len(tables), nil
}

func (r *fakeSchemaRepo) UpsertColumns(ctx context.Context, tx *sql.Tx, tableID int64, columns []models.ColumnScan) (map[string]int64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make(map[string]int64, len(columns))
	for _, c := range columns {
		var id int64
		for _, existing := range r.columns {
			if existing.TableID == tableID && existing.ColumnName == c.ColumnName {
				id = existing.ID
				break
			}
		}
		if id == 0 {
			r.nextID++
			id = r.nextID
			r.columns = append(r.columns, models.ColumnMetadata{
				ID:           id,
				TableID:      tableID,
				ColumnName:   c.ColumnName,
				DataType:     c.DataType,
				IsPrimaryKey: c.IsPrimaryKey,
			})
		}
		ids[c.ColumnName] = id
	}
	return ids, len(columns), nil
}

func (r *fakeSchemaRepo) ReplaceForeignKeys(ctx context.Context, tx *sql.Tx, projectID int64, fks []models.ForeignKeyMetadata) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceFkErr != nil {
		return 0, r.replaceFkErr
	}
	r.fks = fks
	return len(fks), nil
}

func (r *fakeSchemaRepo) UpsertStoredProcedures(ctx context.Context, tx *sql.Tx, projectID, clientID int64, procs []models.StoredProcedureScan) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs = procs
	return len(procs), nil
}

func (r *fakeSchemaRepo) ListTables(ctx context.Context, projectID int64) ([]models.TableMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables, nil
}

func (r *fakeSchemaRepo) ListColumnsForProject(ctx context.Context, projectID int64) ([]models.ColumnMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.columns, nil
}

func (r *fakeSchemaRepo) ListForeignKeys(ctx context.Context, projectID int64) ([]models.ForeignKeyMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fks, nil
}

type fakeAnalysisRepo struct {
	mu         sync.Mutex
	analysis   *models.DependencyAnalysis
	candidates []models.LogicalFkCandidate
}

var _ repositories.AnalysisRepository = (*fakeAnalysisRepo)(nil)

func (r *fakeAnalysisRepo) SaveDependencyAnalysis(ctx context.Context, analysis *models.DependencyAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analysis = analysis
	return nil
}

func (r *fakeAnalysisRepo) GetDependencyAnalysis(ctx context.Context, projectID int64) (*models.DependencyAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.analysis, nil
}

func (r *fakeAnalysisRepo) ReplaceLogicalFkCandidates(ctx context.Context, projectID int64, candidates []models.LogicalFkCandidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = candidates
	return nil
}

func (r *fakeAnalysisRepo) ListLogicalFkCandidates(ctx context.Context, projectID int64) ([]models.LogicalFkCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidates, nil
}

// txRecorder observes transaction outcomes on the stub store connection.
type txRecorder struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (r *txRecorder) counts() (commits, rollbacks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits, r.rollbacks
}

// stubConnector backs a real *sql.DB with a driver that supports only
// transactions. Statements never reach it; the repositories that would run
// them are faked.
type stubConnector struct {
	rec *txRecorder
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return &stubConn{rec: c.rec}, nil
}

func (c stubConnector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open by DSN is not supported")
}

type stubConn struct {
	rec *txRecorder
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements are not supported")
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	return &stubTx{rec: c.rec}, nil
}

type stubTx struct {
	rec *txRecorder
}

func (t *stubTx) Commit() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.commits++
	return nil
}

func (t *stubTx) Rollback() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.rollbacks++
	return nil
}

// fakeSyncStore satisfies the orchestrator's store seam. BeginTx hands out
// real transactions over the stub driver so commit and rollback outcomes
// are observable; ExecContext records statements run on the pool.
type fakeSyncStore struct {
	pool     *sql.DB
	rec      *txRecorder
	identity string

	mu      sync.Mutex
	execs   []string
	execErr error
}

func newFakeSyncStore(identity string) *fakeSyncStore {
	rec := &txRecorder{}
	return &fakeSyncStore{
		pool:     sql.OpenDB(stubConnector{rec: rec}),
		rec:      rec,
		identity: identity,
	}
}

func (s *fakeSyncStore) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return s.pool.BeginTx(ctx, opts)
}

func (s *fakeSyncStore) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs = append(s.execs, query)
	if s.execErr != nil {
		return nil, s.execErr
	}
	return driver.RowsAffected(1), nil
}

func (s *fakeSyncStore) ServerIdentity(ctx context.Context) (string, error) {
	return s.identity, nil
}

func (s *fakeSyncStore) executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.execs...)
}

// fakeSchemaReader serves a canned target schema.
type fakeSchemaReader struct {
	identity string
	tables   []models.TableScan
	columns  map[string][]models.ColumnScan
	fks      []models.ForeignKeyScan
	procs    []models.StoredProcedureScan
	fksErr   error
}

var _ datasource.SchemaReader = (*fakeSchemaReader)(nil)

func (r *fakeSchemaReader) ListTables(ctx context.Context) ([]models.TableScan, error) {
	return r.tables, nil
}

func (r *fakeSchemaReader) ListColumns(ctx context.Context, schemaName, tableName string) ([]models.ColumnScan, error) {
	return r.columns[schemaName+"."+tableName], nil
}

func (r *fakeSchemaReader) ListForeignKeys(ctx context.Context, tables []models.TableScan) ([]models.ForeignKeyScan, error) {
	return r.fks, r.fksErr
}

func (r *fakeSchemaReader) ListStoredProcedures(ctx context.Context) ([]models.StoredProcedureScan, error) {
	return r.procs, nil
}

func (r *fakeSchemaReader) ServerIdentity(ctx context.Context) (string, error) {
	return r.identity, nil
}

func (r *fakeSchemaReader) Close() error { return nil }

// stubAdapter hands the orchestrator a canned schema reader.
type stubAdapter struct {
	reader datasource.SchemaReader
}

var _ datasource.Adapter = (*stubAdapter)(nil)

func (a *stubAdapter) TestConnection(ctx context.Context, info datasource.ConnectionInfo) datasource.ConnectionResult {
	return datasource.ConnectionResult{Valid: true}
}

func (a *stubAdapter) NewSchemaReader(ctx context.Context, info datasource.ConnectionInfo) (datasource.SchemaReader, error) {
	return a.reader, nil
}

type fakeAnalyzer struct {
	err   error
	calls int
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, projectID int64) (*models.DependencyAnalysis, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &models.DependencyAnalysis{ProjectID: projectID}, nil
}

type fakeDetector struct {
	err   error
	calls int
}

func (d *fakeDetector) Detect(ctx context.Context, projectID int64) ([]models.LogicalFkCandidate, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return nil, nil
}

// failingAdapter satisfies datasource.Adapter and refuses every connection.
// Registered under the SQL Server engine tag by tests that exercise the
// background failure path.
type failingAdapter struct {
	openErr error
}

var _ datasource.Adapter = (*failingAdapter)(nil)

func (a *failingAdapter) TestConnection(ctx context.Context, info datasource.ConnectionInfo) datasource.ConnectionResult {
	return datasource.ConnectionResult{Valid: false, Code: datasource.CodeUnknown}
}

func (a *failingAdapter) NewSchemaReader(ctx context.Context, info datasource.ConnectionInfo) (datasource.SchemaReader, error) {
	return nil, a.openErr
}
