package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/actoengine/actoengine/pkg/models"
)

// AnalysisRepository persists the outputs of the best-effort post-sync
// passes. These run outside the sync transaction; each sync replaces the
// previous results wholesale.
type AnalysisRepository interface {
	SaveDependencyAnalysis(ctx context.Context, analysis *models.DependencyAnalysis) error
	GetDependencyAnalysis(ctx context.Context, projectID int64) (*models.DependencyAnalysis, error)

	ReplaceLogicalFkCandidates(ctx context.Context, projectID int64, candidates []models.LogicalFkCandidate) error
	ListLogicalFkCandidates(ctx context.Context, projectID int64) ([]models.LogicalFkCandidate, error)
}

type analysisRepository struct {
	db *sql.DB
}

var _ AnalysisRepository = (*analysisRepository)(nil)

// NewAnalysisRepository creates an AnalysisRepository backed by the metadata
// store.
func NewAnalysisRepository(db *sql.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) SaveDependencyAnalysis(ctx context.Context, analysis *models.DependencyAnalysis) error {
	tableOrder, err := json.Marshal(analysis.TableOrder)
	if err != nil {
		return fmt.Errorf("marshal table order: %w", err)
	}
	cyclicTables, err := json.Marshal(analysis.CyclicTables)
	if err != nil {
		return fmt.Errorf("marshal cyclic tables: %w", err)
	}

	query := `
		MERGE DependencyAnalysis AS target
		USING (SELECT @pid AS ProjectID) AS source
		ON target.ProjectID = source.ProjectID
		WHEN MATCHED THEN
			UPDATE SET TableOrder = @tableOrder, CyclicTables = @cyclicTables, EdgeCount = @edgeCount, HasCycles = @hasCycles, AnalyzedAt = SYSUTCDATETIME()
		WHEN NOT MATCHED THEN
			INSERT (ProjectID, TableOrder, CyclicTables, EdgeCount, HasCycles, AnalyzedAt)
			VALUES (@pid, @tableOrder, @cyclicTables, @edgeCount, @hasCycles, SYSUTCDATETIME());`

	_, err = r.db.ExecContext(ctx, query,
		sql.Named("pid", analysis.ProjectID),
		sql.Named("tableOrder", string(tableOrder)),
		sql.Named("cyclicTables", string(cyclicTables)),
		sql.Named("edgeCount", analysis.EdgeCount),
		sql.Named("hasCycles", analysis.HasCycles))
	if err != nil {
		return fmt.Errorf("save dependency analysis for project %d: %w", analysis.ProjectID, err)
	}
	return nil
}

func (r *analysisRepository) GetDependencyAnalysis(ctx context.Context, projectID int64) (*models.DependencyAnalysis, error) {
	query := `
		SELECT ProjectID, TableOrder, CyclicTables, EdgeCount, HasCycles
		FROM DependencyAnalysis
		WHERE ProjectID = @pid`

	var a models.DependencyAnalysis
	var tableOrder, cyclicTables string
	err := r.db.QueryRowContext(ctx, query, sql.Named("pid", projectID)).Scan(
		&a.ProjectID, &tableOrder, &cyclicTables, &a.EdgeCount, &a.HasCycles)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dependency analysis for project %d: %w", projectID, err)
	}

	if err := json.Unmarshal([]byte(tableOrder), &a.TableOrder); err != nil {
		return nil, fmt.Errorf("unmarshal table order: %w", err)
	}
	if err := json.Unmarshal([]byte(cyclicTables), &a.CyclicTables); err != nil {
		return nil, fmt.Errorf("unmarshal cyclic tables: %w", err)
	}
	return &a, nil
}

func (r *analysisRepository) ReplaceLogicalFkCandidates(ctx context.Context, projectID int64, candidates []models.LogicalFkCandidate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin logical fk replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM LogicalFkCandidates WHERE ProjectID = @pid`,
		sql.Named("pid", projectID)); err != nil {
		return fmt.Errorf("clear logical fk candidates: %w", err)
	}

	query := `
		INSERT INTO LogicalFkCandidates (ProjectID, SourceTableID, SourceColumnID, ReferencedTableID, ReferencedColumnID, Confidence, Method)
		VALUES (@pid, @srcTable, @srcCol, @refTable, @refCol, @confidence, @method)`

	for _, c := range candidates {
		_, err := tx.ExecContext(ctx, query,
			sql.Named("pid", projectID),
			sql.Named("srcTable", c.SourceTableID),
			sql.Named("srcCol", c.SourceColumnID),
			sql.Named("refTable", c.ReferencedTableID),
			sql.Named("refCol", c.ReferencedColumnID),
			sql.Named("confidence", c.Confidence),
			sql.Named("method", c.Method))
		if err != nil {
			return fmt.Errorf("insert logical fk candidate: %w", err)
		}
	}
	return tx.Commit()
}

func (r *analysisRepository) ListLogicalFkCandidates(ctx context.Context, projectID int64) ([]models.LogicalFkCandidate, error) {
	query := `
		SELECT LogicalFkID, ProjectID, SourceTableID, SourceColumnID, ReferencedTableID, ReferencedColumnID, Confidence, Method
		FROM LogicalFkCandidates
		WHERE ProjectID = @pid
		ORDER BY Confidence DESC`

	rows, err := r.db.QueryContext(ctx, query, sql.Named("pid", projectID))
	if err != nil {
		return nil, fmt.Errorf("list logical fk candidates for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var candidates []models.LogicalFkCandidate
	for rows.Next() {
		var c models.LogicalFkCandidate
		if err := rows.Scan(
			&c.ID, &c.ProjectID, &c.SourceTableID, &c.SourceColumnID,
			&c.ReferencedTableID, &c.ReferencedColumnID, &c.Confidence, &c.Method); err != nil {
			return nil, fmt.Errorf("scan logical fk candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
