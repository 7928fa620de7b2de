package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actoengine/actoengine/pkg/models"
)

func TestAnalyzeAcyclicSchema(t *testing.T) {
	schemaRepo := &fakeSchemaRepo{
		tables: []models.TableMetadata{
			{ID: 1, SchemaName: "dbo", TableName: "Customers"},
			{ID: 2, SchemaName: "dbo", TableName: "Orders"},
			{ID: 3, SchemaName: "dbo", TableName: "OrderItems"},
		},
		fks: []models.ForeignKeyMetadata{
			{SourceTableID: 2, ReferencedTableID: 1},
			{SourceTableID: 3, ReferencedTableID: 2},
		},
	}
	analysisRepo := &fakeAnalysisRepo{}
	a := NewDependencyAnalyzer(schemaRepo, analysisRepo, nil)

	analysis, err := a.Analyze(context.Background(), 10)
	require.NoError(t, err)

	assert.False(t, analysis.HasCycles)
	assert.Equal(t, 2, analysis.EdgeCount)
	require.Len(t, analysis.TableOrder, 3)

	// Referenced tables come before referencing tables.
	pos := make(map[string]int)
	for i, name := range analysis.TableOrder {
		pos[name] = i
	}
	assert.Less(t, pos["dbo.Customers"], pos["dbo.Orders"])
	assert.Less(t, pos["dbo.Orders"], pos["dbo.OrderItems"])

	assert.NotNil(t, analysisRepo.analysis, "analysis must be persisted")
}

func TestAnalyzeCyclicSchema(t *testing.T) {
	schemaRepo := &fakeSchemaRepo{
		tables: []models.TableMetadata{
			{ID: 1, SchemaName: "dbo", TableName: "Employees"},
			{ID: 2, SchemaName: "dbo", TableName: "Departments"},
			{ID: 3, SchemaName: "dbo", TableName: "Audit"},
		},
		fks: []models.ForeignKeyMetadata{
			{SourceTableID: 1, ReferencedTableID: 2},
			{SourceTableID: 2, ReferencedTableID: 1},
		},
	}
	analysisRepo := &fakeAnalysisRepo{}
	a := NewDependencyAnalyzer(schemaRepo, analysisRepo, nil)

	analysis, err := a.Analyze(context.Background(), 10)
	require.NoError(t, err)

	assert.True(t, analysis.HasCycles)
	assert.ElementsMatch(t, []string{"dbo.Employees", "dbo.Departments"}, analysis.CyclicTables)
}

func TestAnalyzeIgnoresSelfReferences(t *testing.T) {
	schemaRepo := &fakeSchemaRepo{
		tables: []models.TableMetadata{
			{ID: 1, SchemaName: "dbo", TableName: "Employees"},
		},
		fks: []models.ForeignKeyMetadata{
			// ManagerID -> EmployeeID on the same table.
			{SourceTableID: 1, ReferencedTableID: 1},
		},
	}
	analysisRepo := &fakeAnalysisRepo{}
	a := NewDependencyAnalyzer(schemaRepo, analysisRepo, nil)

	analysis, err := a.Analyze(context.Background(), 10)
	require.NoError(t, err)

	assert.False(t, analysis.HasCycles)
	assert.Equal(t, 0, analysis.EdgeCount)
}
