package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/actoengine/actoengine/pkg/models"
	"github.com/actoengine/actoengine/pkg/repositories"
)

const logicalFkMethodNameInference = "name_inference"

// LogicalFkDetector infers undeclared foreign key relationships by naming
// convention: a column like OrderID or order_id pointing at the primary key
// of Orders. Like dependency analysis it runs post-commit and is
// best-effort.
type LogicalFkDetector struct {
	schemaRepo   repositories.SchemaRepository
	analysisRepo repositories.AnalysisRepository
	logger       *zap.Logger
}

// NewLogicalFkDetector creates a LogicalFkDetector.
func NewLogicalFkDetector(schemaRepo repositories.SchemaRepository, analysisRepo repositories.AnalysisRepository, logger *zap.Logger) *LogicalFkDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogicalFkDetector{
		schemaRepo:   schemaRepo,
		analysisRepo: analysisRepo,
		logger:       logger,
	}
}

type pkTarget struct {
	tableID  int64
	columnID int64
	dataType string
}

// Detect scans the synced schema for columns whose names point at another
// table's primary key and records them as candidates. Declared foreign keys
// are skipped; the column being one is already known.
func (d *LogicalFkDetector) Detect(ctx context.Context, projectID int64) ([]models.LogicalFkCandidate, error) {
	tables, err := d.schemaRepo.ListTables(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	columns, err := d.schemaRepo.ListColumnsForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}

	columnsByTable := make(map[int64][]models.ColumnMetadata)
	for _, c := range columns {
		columnsByTable[c.TableID] = append(columnsByTable[c.TableID], c)
	}

	// Index single-column primary keys by the normalized names a referencing
	// column would use: "order" for a table named Orders with PK OrderID.
	targets := make(map[string]pkTarget)
	for _, t := range tables {
		var pk *models.ColumnMetadata
		pkCount := 0
		for i := range columnsByTable[t.ID] {
			c := &columnsByTable[t.ID][i]
			if c.IsPrimaryKey {
				pk = c
				pkCount++
			}
		}
		if pkCount != 1 || pk == nil {
			continue
		}
		target := pkTarget{tableID: t.ID, columnID: pk.ID, dataType: pk.DataType}
		targets[normalizeName(inflection.Singular(t.TableName))] = target
		targets[normalizeName(t.TableName)] = target
	}

	var candidates []models.LogicalFkCandidate
	for _, c := range columns {
		if c.IsForeignKey || c.IsPrimaryKey {
			continue
		}
		base, ok := trimIDSuffix(c.ColumnName)
		if !ok {
			continue
		}
		target, ok := targets[normalizeName(base)]
		if !ok || target.tableID == c.TableID {
			continue
		}
		if !strings.EqualFold(target.dataType, c.DataType) {
			continue
		}

		confidence := 0.7
		if strings.EqualFold(inflection.Singular(base), base) {
			confidence = 0.9
		}
		candidates = append(candidates, models.LogicalFkCandidate{
			ProjectID:          projectID,
			SourceTableID:      c.TableID,
			SourceColumnID:     c.ID,
			ReferencedTableID:  target.tableID,
			ReferencedColumnID: target.columnID,
			Confidence:         confidence,
			Method:             logicalFkMethodNameInference,
		})
	}

	if err := d.analysisRepo.ReplaceLogicalFkCandidates(ctx, projectID, candidates); err != nil {
		return nil, fmt.Errorf("save candidates: %w", err)
	}

	d.logger.Info("logical fk detection complete",
		zap.Int64("project_id", projectID),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// trimIDSuffix strips a trailing ID marker (OrderID, order_id, OrderKey) and
// returns the remaining base name.
func trimIDSuffix(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, suffix := range []string{"_id", "id", "_key", "key"} {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			return name[:len(name)-len(suffix)], true
		}
	}
	return "", false
}

// normalizeName lowercases and drops underscores so OrderItem, order_item
// and ORDERITEM compare equal.
func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}
