package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actoengine/actoengine/pkg/models"
)

func TestDetectInfersFkByName(t *testing.T) {
	schemaRepo := &fakeSchemaRepo{
		tables: []models.TableMetadata{
			{ID: 1, SchemaName: "dbo", TableName: "Customers"},
			{ID: 2, SchemaName: "dbo", TableName: "Orders"},
		},
		columns: []models.ColumnMetadata{
			{ID: 10, TableID: 1, ColumnName: "CustomerID", DataType: "bigint", IsPrimaryKey: true},
			{ID: 20, TableID: 2, ColumnName: "OrderID", DataType: "bigint", IsPrimaryKey: true},
			{ID: 21, TableID: 2, ColumnName: "CustomerID", DataType: "bigint"},
		},
	}
	analysisRepo := &fakeAnalysisRepo{}
	d := NewLogicalFkDetector(schemaRepo, analysisRepo, nil)

	candidates, err := d.Detect(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, int64(2), c.SourceTableID)
	assert.Equal(t, int64(21), c.SourceColumnID)
	assert.Equal(t, int64(1), c.ReferencedTableID)
	assert.Equal(t, int64(10), c.ReferencedColumnID)
	assert.Equal(t, "name_inference", c.Method)
	assert.Greater(t, c.Confidence, 0.5)
}

func TestDetectSnakeCaseColumn(t *testing.T) {
	schemaRepo := &fakeSchemaRepo{
		tables: []models.TableMetadata{
			{ID: 1, SchemaName: "public", TableName: "customers"},
			{ID: 2, SchemaName: "public", TableName: "orders"},
		},
		columns: []models.ColumnMetadata{
			{ID: 10, TableID: 1, ColumnName: "id", DataType: "int8", IsPrimaryKey: true},
			{ID: 20, TableID: 2, ColumnName: "id", DataType: "int8", IsPrimaryKey: true},
			{ID: 21, TableID: 2, ColumnName: "customer_id", DataType: "int8"},
		},
	}
	analysisRepo := &fakeAnalysisRepo{}
	d := NewLogicalFkDetector(schemaRepo, analysisRepo, nil)

	candidates, err := d.Detect(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(1), candidates[0].ReferencedTableID)
}

func TestDetectSkipsDeclaredForeignKeys(t *testing.T) {
	schemaRepo := &fakeSchemaRepo{
		tables: []models.TableMetadata{
			{ID: 1, SchemaName: "dbo", TableName: "Customers"},
			{ID: 2, SchemaName: "dbo", TableName: "Orders"},
		},
		columns: []models.ColumnMetadata{
			{ID: 10, TableID: 1, ColumnName: "CustomerID", DataType: "bigint", IsPrimaryKey: true},
			{ID: 21, TableID: 2, ColumnName: "CustomerID", DataType: "bigint", IsForeignKey: true},
		},
	}
	analysisRepo := &fakeAnalysisRepo{}
	d := NewLogicalFkDetector(schemaRepo, analysisRepo, nil)

	candidates, err := d.Detect(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestDetectSkipsTypeMismatch(t *testing.T) {
	schemaRepo := &fakeSchemaRepo{
		tables: []models.TableMetadata{
			{ID: 1, SchemaName: "dbo", TableName: "Customers"},
			{ID: 2, SchemaName: "dbo", TableName: "Orders"},
		},
		columns: []models.ColumnMetadata{
			{ID: 10, TableID: 1, ColumnName: "CustomerID", DataType: "bigint", IsPrimaryKey: true},
			{ID: 21, TableID: 2, ColumnName: "CustomerID", DataType: "nvarchar"},
		},
	}
	analysisRepo := &fakeAnalysisRepo{}
	d := NewLogicalFkDetector(schemaRepo, analysisRepo, nil)

	candidates, err := d.Detect(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestTrimIDSuffix(t *testing.T) {
	tests := []struct {
		input    string
		base     string
		expected bool
	}{
		{"CustomerID", "Customer", true},
		{"customer_id", "customer", true},
		{"OrderKey", "Order", true},
		{"ID", "", false},
		{"Name", "", false},
	}
	for _, tt := range tests {
		base, ok := trimIDSuffix(tt.input)
		assert.Equal(t, tt.expected, ok, tt.input)
		if ok {
			assert.Equal(t, tt.base, base, tt.input)
		}
	}
}
