package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/models"
)

// schemaReader extracts schema metadata from the SQL Server system catalog.
type schemaReader struct {
	db *sql.DB
}

var _ datasource.SchemaReader = (*schemaReader)(nil)

func (r *schemaReader) Close() error {
	return r.db.Close()
}

// ServerIdentity returns the instance name reported by the server itself.
// SERVERPROPERTY is NULL-safe but typed sql_variant, hence the cast.
func (r *schemaReader) ServerIdentity(ctx context.Context) (string, error) {
	var name sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT CAST(SERVERPROPERTY('ServerName') AS NVARCHAR(256))").Scan(&name)
	if err != nil {
		return "", fmt.Errorf("query server identity: %w", err)
	}
	return name.String, nil
}

func (r *schemaReader) ListTables(ctx context.Context) ([]models.TableScan, error) {
	query := `
		SELECT t.name, s.name
		FROM sys.tables t
		INNER JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE t.is_ms_shipped = 0
		ORDER BY s.name, t.name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []models.TableScan
	for rows.Next() {
		var t models.TableScan
		if err := rows.Scan(&t.TableName, &t.SchemaName); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// ListColumns reads one table's columns ordered by ordinal position. The scan
// order is fixed: name, type, max length, precision, scale, nullable, primary
// key, foreign key, ordinal.
func (r *schemaReader) ListColumns(ctx context.Context, schemaName, tableName string) ([]models.ColumnScan, error) {
	query := `
		SELECT
			c.name,
			tp.name,
			c.max_length,
			c.precision,
			c.scale,
			c.is_nullable,
			CAST(CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS BIT),
			CAST(CASE WHEN fk.parent_column_id IS NOT NULL THEN 1 ELSE 0 END AS BIT),
			c.column_id
		FROM sys.columns c
		INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
		LEFT JOIN (
			SELECT ic.object_id, ic.column_id
			FROM sys.index_columns ic
			INNER JOIN sys.indexes i
				ON ic.object_id = i.object_id AND ic.index_id = i.index_id
			WHERE i.is_primary_key = 1
		) pk ON pk.object_id = c.object_id AND pk.column_id = c.column_id
		LEFT JOIN (
			SELECT DISTINCT parent_object_id, parent_column_id
			FROM sys.foreign_key_columns
		) fk ON fk.parent_object_id = c.object_id AND fk.parent_column_id = c.column_id
		WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + '.' + QUOTENAME(@table))
		ORDER BY c.column_id`

	rows, err := r.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName))
	if err != nil {
		return nil, fmt.Errorf("list columns for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var columns []models.ColumnScan
	for rows.Next() {
		var c models.ColumnScan
		if err := rows.Scan(
			&c.ColumnName,
			&c.DataType,
			&c.MaxLength,
			&c.Precision,
			&c.Scale,
			&c.IsNullable,
			&c.IsPrimaryKey,
			&c.IsForeignKey,
			&c.OrdinalPosition,
		); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// ListForeignKeys returns declared foreign keys whose endpoints are both in
// the given table set. Keys referencing tables outside the set are dropped so
// endpoint resolution downstream never dangles.
func (r *schemaReader) ListForeignKeys(ctx context.Context, tables []models.TableScan) ([]models.ForeignKeyScan, error) {
	query := `
		SELECT
			fk.name,
			ps.name,
			pt.name,
			pc.name,
			rs.name,
			rt.name,
			rc.name,
			fk.delete_referential_action_desc,
			fk.update_referential_action_desc
		FROM sys.foreign_keys fk
		INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		INNER JOIN sys.tables pt ON fkc.parent_object_id = pt.object_id
		INNER JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		INNER JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id AND fkc.parent_column_id = pc.column_id
		INNER JOIN sys.tables rt ON fkc.referenced_object_id = rt.object_id
		INNER JOIN sys.schemas rs ON rt.schema_id = rs.schema_id
		INNER JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
		ORDER BY fk.name, fkc.constraint_column_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t.SchemaName+"."+t.TableName] = true
	}

	var fks []models.ForeignKeyScan
	for rows.Next() {
		var fk models.ForeignKeyScan
		if err := rows.Scan(
			&fk.ConstraintName,
			&fk.SourceSchema,
			&fk.SourceTable,
			&fk.SourceColumn,
			&fk.ReferencedSchema,
			&fk.ReferencedTable,
			&fk.ReferencedColumn,
			&fk.OnDelete,
			&fk.OnUpdate,
		); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		if !known[fk.SourceSchema+"."+fk.SourceTable] || !known[fk.ReferencedSchema+"."+fk.ReferencedTable] {
			continue
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (r *schemaReader) ListStoredProcedures(ctx context.Context) ([]models.StoredProcedureScan, error) {
	query := `
		SELECT s.name, p.name, ISNULL(m.definition, '')
		FROM sys.procedures p
		INNER JOIN sys.schemas s ON p.schema_id = s.schema_id
		LEFT JOIN sys.sql_modules m ON p.object_id = m.object_id
		WHERE p.is_ms_shipped = 0
		ORDER BY s.name, p.name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stored procedures: %w", err)
	}
	defer rows.Close()

	var procs []models.StoredProcedureScan
	for rows.Next() {
		var p models.StoredProcedureScan
		if err := rows.Scan(&p.SchemaName, &p.SpName, &p.Definition); err != nil {
			return nil, fmt.Errorf("scan stored procedure row: %w", err)
		}
		procs = append(procs, p)
	}
	return procs, rows.Err()
}
