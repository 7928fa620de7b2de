package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/actoengine/actoengine/pkg/adapters/datasource"
	"github.com/actoengine/actoengine/pkg/models"
)

// schemaReader extracts schema metadata from the PostgreSQL catalogs.
type schemaReader struct {
	db *sql.DB
}

var _ datasource.SchemaReader = (*schemaReader)(nil)

func (r *schemaReader) Close() error {
	return r.db.Close()
}

// ServerIdentity returns the host-port pair of the backend. PostgreSQL has no
// instance-name equivalent of SQL Server, and the metadata store is never
// PostgreSQL, so this value only needs to be stable, not comparable to the
// store's identity.
func (r *schemaReader) ServerIdentity(ctx context.Context) (string, error) {
	var host, port sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(inet_server_addr()::text, 'local'), inet_server_port()::text").
		Scan(&host, &port)
	if err != nil {
		return "", fmt.Errorf("query server identity: %w", err)
	}
	return host.String + ":" + port.String, nil
}

func (r *schemaReader) ListTables(ctx context.Context) ([]models.TableScan, error) {
	query := `
		SELECT c.relname, n.nspname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r'
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY n.nspname, c.relname`

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

// ListColumns reads one table's columns ordered by ordinal position, with the
// same fixed scan order as the SQL Server reader.
func (r *schemaReader) ListColumns(ctx context.Context, schemaName, tableName string) ([]models.ColumnScan, error) {
	query := `
		SELECT
			col.column_name,
			col.udt_name,
			COALESCE(col.character_maximum_length, 0),
			COALESCE(col.numeric_precision, 0),
			COALESCE(col.numeric_scale, 0),
			col.is_nullable = 'YES',
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON kcu.constraint_name = tc.constraint_name
					AND kcu.table_schema = tc.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = col.table_schema
					AND tc.table_name = col.table_name
					AND kcu.column_name = col.column_name
			),
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON kcu.constraint_name = tc.constraint_name
					AND kcu.table_schema = tc.table_schema
				WHERE tc.constraint_type = 'FOREIGN KEY'
					AND tc.table_schema = col.table_schema
					AND tc.table_name = col.table_name
					AND kcu.column_name = col.column_name
			),
			col.ordinal_position
		FROM information_schema.columns col
		WHERE col.table_schema = $1 AND col.table_name = $2
		ORDER BY col.ordinal_position`

	rows, err := r.db.QueryContext(ctx, query, schemaName, tableName)
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
// the given table set.
func (r *schemaReader) ListForeignKeys(ctx context.Context, tables []models.TableScan) ([]models.ForeignKeyScan, error) {
	query := `
		SELECT
			con.conname,
			src_ns.nspname,
			src.relname,
			src_col.attname,
			ref_ns.nspname,
			ref.relname,
			ref_col.attname,
			CASE con.confdeltype
				WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET_NULL'
				WHEN 'd' THEN 'SET_DEFAULT'
				WHEN 'r' THEN 'NO_ACTION'
				ELSE 'NO_ACTION'
			END,
			CASE con.confupdtype
				WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET_NULL'
				WHEN 'd' THEN 'SET_DEFAULT'
				WHEN 'r' THEN 'NO_ACTION'
				ELSE 'NO_ACTION'
			END
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class src ON src.oid = con.conrelid
		JOIN pg_catalog.pg_namespace src_ns ON src_ns.oid = src.relnamespace
		JOIN pg_catalog.pg_class ref ON ref.oid = con.confrelid
		JOIN pg_catalog.pg_namespace ref_ns ON ref_ns.oid = ref.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) AS cols(src_attnum, ref_attnum)
		JOIN pg_catalog.pg_attribute src_col
			ON src_col.attrelid = con.conrelid AND src_col.attnum = cols.src_attnum
		JOIN pg_catalog.pg_attribute ref_col
			ON ref_col.attrelid = con.confrelid AND ref_col.attnum = cols.ref_attnum
		WHERE con.contype = 'f'
		ORDER BY con.conname`

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

// ListStoredProcedures returns user-defined functions and procedures with
// their source text.
func (r *schemaReader) ListStoredProcedures(ctx context.Context) ([]models.StoredProcedureScan, error) {
	query := `
		SELECT n.nspname, p.proname, COALESCE(pg_get_functiondef(p.oid), '')
		FROM pg_catalog.pg_proc p
		JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
		  AND p.prokind IN ('f', 'p')
		ORDER BY n.nspname, p.proname`

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
