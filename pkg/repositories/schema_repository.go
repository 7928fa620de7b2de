package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/actoengine/actoengine/pkg/models"
)

// SchemaRepository persists synced schema metadata. The write methods run
// inside the sync transaction supplied by the orchestrator and reconcile the
// stored rows with a fresh scan: rows that still exist in the target keep
// their ids and descriptions, new rows are inserted, and rows absent from
// the scan are removed. Re-running a sync against an unchanged target leaves
// the stored row content unchanged. The read methods serve the schema
// endpoints and the post-commit analysis passes.
type SchemaRepository interface {
	// UpsertTables reconciles the project's table set and returns ids keyed
	// by "schema.table" along with the scanned count. Tables absent from the
	// scan are deleted together with their columns and foreign keys.
	UpsertTables(ctx context.Context, tx *sql.Tx, projectID int64, tables []models.TableScan) (map[string]int64, int, error)

	// UpsertColumns reconciles one table's columns by name, updating
	// structural attributes in place, and returns ids keyed by column name
	// along with the scanned count.
	UpsertColumns(ctx context.Context, tx *sql.Tx, tableID int64, columns []models.ColumnScan) (map[string]int64, int, error)

	// ReplaceForeignKeys upserts declared foreign keys by constraint name
	// with both endpoints already resolved to metadata-store ids, and
	// removes constraints absent from the scan.
	ReplaceForeignKeys(ctx context.Context, tx *sql.Tx, projectID int64, fks []models.ForeignKeyMetadata) (int, error)

	// UpsertStoredProcedures reconciles stored procedure definitions by
	// schema-qualified name.
	UpsertStoredProcedures(ctx context.Context, tx *sql.Tx, projectID, clientID int64, procs []models.StoredProcedureScan) (int, error)

	ListTables(ctx context.Context, projectID int64) ([]models.TableMetadata, error)
	ListColumns(ctx context.Context, tableID int64) ([]models.ColumnMetadata, error)
	ListColumnsForProject(ctx context.Context, projectID int64) ([]models.ColumnMetadata, error)
	ListForeignKeys(ctx context.Context, projectID int64) ([]models.ForeignKeyMetadata, error)
	ListStoredProcedures(ctx context.Context, projectID int64) ([]models.StoredProcedureMetadata, error)
}

type schemaRepository struct {
	db *sql.DB
}

var _ SchemaRepository = (*schemaRepository)(nil)

// NewSchemaRepository creates a SchemaRepository backed by the metadata store.
func NewSchemaRepository(db *sql.DB) SchemaRepository {
	return &schemaRepository{db: db}
}

func (r *schemaRepository) UpsertTables(ctx context.Context, tx *sql.Tx, projectID int64, tables []models.TableScan) (map[string]int64, int, error) {
	// The no-op MATCHED update makes MERGE emit an OUTPUT row for existing
	// tables too, so the id map covers both cases. Description is not in the
	// update list and survives every re-sync.
	query := `
		MERGE TablesMetadata WITH (HOLDLOCK) AS target
		USING (SELECT @pid AS ProjectID, @schema AS SchemaName, @name AS TableName) AS src
			ON target.ProjectID = src.ProjectID AND target.SchemaName = src.SchemaName AND target.TableName = src.TableName
		WHEN MATCHED THEN UPDATE SET TableName = src.TableName
		WHEN NOT MATCHED THEN INSERT (ProjectID, TableName, SchemaName) VALUES (src.ProjectID, src.TableName, src.SchemaName)
		OUTPUT INSERTED.TableID;`

	ids := make(map[string]int64, len(tables))
	keep := make([]int64, 0, len(tables))
	for _, t := range tables {
		var id int64
		err := tx.QueryRowContext(ctx, query,
			sql.Named("pid", projectID),
			sql.Named("name", t.TableName),
			sql.Named("schema", t.SchemaName),
		).Scan(&id)
		if err != nil {
			return nil, 0, fmt.Errorf("upsert table %s.%s: %w", t.SchemaName, t.TableName, err)
		}
		ids[t.SchemaName+"."+t.TableName] = id
		keep = append(keep, id)
	}

	if err := r.deleteAbsentTables(ctx, tx, projectID, keep); err != nil {
		return nil, 0, err
	}
	return ids, len(tables), nil
}

// deleteAbsentTables removes tables no longer present in the target,
// children before parents: foreign keys touching a removed table, then its
// columns, then the table row itself.
func (r *schemaRepository) deleteAbsentTables(ctx context.Context, tx *sql.Tx, projectID int64, keep []int64) error {
	list, args := namedIDList("t", keep)
	args = append(args, sql.Named("pid", projectID))

	var statements []string
	if len(keep) == 0 {
		statements = []string{
			`DELETE FROM ForeignKeysMetadata WHERE ProjectID = @pid`,
			`DELETE FROM ColumnsMetadata WHERE TableID IN (SELECT TableID FROM TablesMetadata WHERE ProjectID = @pid)`,
			`DELETE FROM TablesMetadata WHERE ProjectID = @pid`,
		}
	} else {
		statements = []string{
			`DELETE FROM ForeignKeysMetadata WHERE ProjectID = @pid AND (SourceTableID NOT IN (` + list + `) OR ReferencedTableID NOT IN (` + list + `))`,
			`DELETE FROM ColumnsMetadata WHERE TableID IN (SELECT TableID FROM TablesMetadata WHERE ProjectID = @pid AND TableID NOT IN (` + list + `))`,
			`DELETE FROM TablesMetadata WHERE ProjectID = @pid AND TableID NOT IN (` + list + `)`,
		}
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("delete absent tables: %w", err)
		}
	}
	return nil
}

func (r *schemaRepository) UpsertColumns(ctx context.Context, tx *sql.Tx, tableID int64, columns []models.ColumnScan) (map[string]int64, int, error) {
	query := `
		MERGE ColumnsMetadata WITH (HOLDLOCK) AS target
		USING (SELECT @tid AS TableID, @name AS ColumnName) AS src
			ON target.TableID = src.TableID AND target.ColumnName = src.ColumnName
		WHEN MATCHED THEN UPDATE SET
			DataType = @type, MaxLength = @maxlen, Precision = @precision, Scale = @scale,
			IsNullable = @nullable, IsPrimaryKey = @pk, IsForeignKey = @fk, OrdinalPosition = @ordinal
		WHEN NOT MATCHED THEN INSERT (TableID, ColumnName, DataType, MaxLength, Precision, Scale, IsNullable, IsPrimaryKey, IsForeignKey, OrdinalPosition)
			VALUES (src.TableID, src.ColumnName, @type, @maxlen, @precision, @scale, @nullable, @pk, @fk, @ordinal)
		OUTPUT INSERTED.ColumnID;`

	ids := make(map[string]int64, len(columns))
	keep := make([]int64, 0, len(columns))
	for _, c := range columns {
		var id int64
		err := tx.QueryRowContext(ctx, query,
			sql.Named("tid", tableID),
			sql.Named("name", c.ColumnName),
			sql.Named("type", c.DataType),
			sql.Named("maxlen", c.MaxLength),
			sql.Named("precision", c.Precision),
			sql.Named("scale", c.Scale),
			sql.Named("nullable", c.IsNullable),
			sql.Named("pk", c.IsPrimaryKey),
			sql.Named("fk", c.IsForeignKey),
			sql.Named("ordinal", c.OrdinalPosition),
		).Scan(&id)
		if err != nil {
			return nil, 0, fmt.Errorf("upsert column %s: %w", c.ColumnName, err)
		}
		ids[c.ColumnName] = id
		keep = append(keep, id)
	}

	if err := r.deleteAbsentColumns(ctx, tx, tableID, keep); err != nil {
		return nil, 0, err
	}
	return ids, len(columns), nil
}

func (r *schemaRepository) deleteAbsentColumns(ctx context.Context, tx *sql.Tx, tableID int64, keep []int64) error {
	list, args := namedIDList("c", keep)
	args = append(args, sql.Named("tid", tableID))

	filter := ""
	if len(keep) > 0 {
		filter = ` AND ColumnID NOT IN (` + list + `)`
	}
	absent := `SELECT ColumnID FROM ColumnsMetadata WHERE TableID = @tid` + filter
	statements := []string{
		`DELETE FROM ForeignKeysMetadata WHERE SourceColumnID IN (` + absent + `) OR ReferencedColumnID IN (` + absent + `)`,
		`DELETE FROM ColumnsMetadata WHERE TableID = @tid` + filter,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("delete absent columns: %w", err)
		}
	}
	return nil
}

func (r *schemaRepository) ReplaceForeignKeys(ctx context.Context, tx *sql.Tx, projectID int64, fks []models.ForeignKeyMetadata) (int, error) {
	query := `
		MERGE ForeignKeysMetadata WITH (HOLDLOCK) AS target
		USING (SELECT @pid AS ProjectID, @name AS ConstraintName) AS src
			ON target.ProjectID = src.ProjectID AND target.ConstraintName = src.ConstraintName
		WHEN MATCHED THEN UPDATE SET
			SourceTableID = @srcTable, SourceColumnID = @srcCol,
			ReferencedTableID = @refTable, ReferencedColumnID = @refCol,
			OnDelete = @onDelete, OnUpdate = @onUpdate
		WHEN NOT MATCHED THEN INSERT (ProjectID, ConstraintName, SourceTableID, SourceColumnID, ReferencedTableID, ReferencedColumnID, OnDelete, OnUpdate)
			VALUES (src.ProjectID, src.ConstraintName, @srcTable, @srcCol, @refTable, @refCol, @onDelete, @onUpdate)
		OUTPUT INSERTED.FkID;`

	keep := make([]int64, 0, len(fks))
	for _, fk := range fks {
		var id int64
		err := tx.QueryRowContext(ctx, query,
			sql.Named("pid", fk.ProjectID),
			sql.Named("name", fk.ConstraintName),
			sql.Named("srcTable", fk.SourceTableID),
			sql.Named("srcCol", fk.SourceColumnID),
			sql.Named("refTable", fk.ReferencedTableID),
			sql.Named("refCol", fk.ReferencedColumnID),
			sql.Named("onDelete", fk.OnDelete),
			sql.Named("onUpdate", fk.OnUpdate),
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("upsert foreign key %s: %w", fk.ConstraintName, err)
		}
		keep = append(keep, id)
	}

	list, args := namedIDList("f", keep)
	args = append(args, sql.Named("pid", projectID))
	stmt := `DELETE FROM ForeignKeysMetadata WHERE ProjectID = @pid`
	if len(keep) > 0 {
		stmt += ` AND FkID NOT IN (` + list + `)`
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return 0, fmt.Errorf("delete absent foreign keys: %w", err)
	}
	return len(fks), nil
}

func (r *schemaRepository) UpsertStoredProcedures(ctx context.Context, tx *sql.Tx, projectID, clientID int64, procs []models.StoredProcedureScan) (int, error) {
	query := `
		MERGE SpMetadata WITH (HOLDLOCK) AS target
		USING (SELECT @pid AS ProjectID, @schema AS SchemaName, @name AS SpName) AS src
			ON target.ProjectID = src.ProjectID AND target.SchemaName = src.SchemaName AND target.SpName = src.SpName
		WHEN MATCHED THEN UPDATE SET ClientID = @cid, Definition = @definition
		WHEN NOT MATCHED THEN INSERT (ProjectID, ClientID, SchemaName, SpName, Definition)
			VALUES (src.ProjectID, @cid, src.SchemaName, src.SpName, @definition)
		OUTPUT INSERTED.SpID;`

	keep := make([]int64, 0, len(procs))
	for _, p := range procs {
		var id int64
		err := tx.QueryRowContext(ctx, query,
			sql.Named("pid", projectID),
			sql.Named("cid", clientID),
			sql.Named("schema", p.SchemaName),
			sql.Named("name", p.SpName),
			sql.Named("definition", p.Definition),
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("upsert stored procedure %s.%s: %w", p.SchemaName, p.SpName, err)
		}
		keep = append(keep, id)
	}

	list, args := namedIDList("s", keep)
	args = append(args, sql.Named("pid", projectID))
	stmt := `DELETE FROM SpMetadata WHERE ProjectID = @pid`
	if len(keep) > 0 {
		stmt += ` AND SpID NOT IN (` + list + `)`
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return 0, fmt.Errorf("delete absent stored procedures: %w", err)
	}
	return len(procs), nil
}

// namedIDList renders ids as a comma-separated named-parameter list for an
// IN clause, returning the placeholder string and the matching arguments.
func namedIDList(prefix string, ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		name := fmt.Sprintf("%s%d", prefix, i)
		placeholders[i] = "@" + name
		args = append(args, sql.Named(name, id))
	}
	return strings.Join(placeholders, ", "), args
}

func (r *schemaRepository) ListTables(ctx context.Context, projectID int64) ([]models.TableMetadata, error) {
	query := `
		SELECT TableID, ProjectID, TableName, SchemaName, ISNULL(Description, '')
		FROM TablesMetadata
		WHERE ProjectID = @pid
		ORDER BY SchemaName, TableName`

	rows, err := r.db.QueryContext(ctx, query, sql.Named("pid", projectID))
	if err != nil {
		return nil, fmt.Errorf("list tables for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var tables []models.TableMetadata
	for rows.Next() {
		var t models.TableMetadata
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.TableName, &t.SchemaName, &t.Description); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (r *schemaRepository) ListColumns(ctx context.Context, tableID int64) ([]models.ColumnMetadata, error) {
	query := `
		SELECT ColumnID, TableID, ColumnName, DataType, MaxLength, Precision, Scale, IsNullable, IsPrimaryKey, IsForeignKey, OrdinalPosition, ISNULL(Description, '')
		FROM ColumnsMetadata
		WHERE TableID = @tid
		ORDER BY OrdinalPosition`

	rows, err := r.db.QueryContext(ctx, query, sql.Named("tid", tableID))
	if err != nil {
		return nil, fmt.Errorf("list columns for table %d: %w", tableID, err)
	}
	defer rows.Close()

	return scanColumns(rows)
}

func (r *schemaRepository) ListColumnsForProject(ctx context.Context, projectID int64) ([]models.ColumnMetadata, error) {
	query := `
		SELECT c.ColumnID, c.TableID, c.ColumnName, c.DataType, c.MaxLength, c.Precision, c.Scale, c.IsNullable, c.IsPrimaryKey, c.IsForeignKey, c.OrdinalPosition, ISNULL(c.Description, '')
		FROM ColumnsMetadata c
		INNER JOIN TablesMetadata t ON c.TableID = t.TableID
		WHERE t.ProjectID = @pid
		ORDER BY c.TableID, c.OrdinalPosition`

	rows, err := r.db.QueryContext(ctx, query, sql.Named("pid", projectID))
	if err != nil {
		return nil, fmt.Errorf("list columns for project %d: %w", projectID, err)
	}
	defer rows.Close()

	return scanColumns(rows)
}

func scanColumns(rows *sql.Rows) ([]models.ColumnMetadata, error) {
	var columns []models.ColumnMetadata
	for rows.Next() {
		var c models.ColumnMetadata
		if err := rows.Scan(
			&c.ID, &c.TableID, &c.ColumnName, &c.DataType, &c.MaxLength, &c.Precision,
			&c.Scale, &c.IsNullable, &c.IsPrimaryKey, &c.IsForeignKey, &c.OrdinalPosition,
			&c.Description); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (r *schemaRepository) ListForeignKeys(ctx context.Context, projectID int64) ([]models.ForeignKeyMetadata, error) {
	query := `
		SELECT FkID, ProjectID, ConstraintName, SourceTableID, SourceColumnID, ReferencedTableID, ReferencedColumnID, OnDelete, OnUpdate
		FROM ForeignKeysMetadata
		WHERE ProjectID = @pid
		ORDER BY ConstraintName`

	rows, err := r.db.QueryContext(ctx, query, sql.Named("pid", projectID))
	if err != nil {
		return nil, fmt.Errorf("list foreign keys for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var fks []models.ForeignKeyMetadata
	for rows.Next() {
		var fk models.ForeignKeyMetadata
		if err := rows.Scan(
			&fk.ID, &fk.ProjectID, &fk.ConstraintName, &fk.SourceTableID, &fk.SourceColumnID,
			&fk.ReferencedTableID, &fk.ReferencedColumnID, &fk.OnDelete, &fk.OnUpdate); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (r *schemaRepository) ListStoredProcedures(ctx context.Context, projectID int64) ([]models.StoredProcedureMetadata, error) {
	query := `
		SELECT SpID, ProjectID, ClientID, SchemaName, SpName, Definition
		FROM SpMetadata
		WHERE ProjectID = @pid
		ORDER BY SchemaName, SpName`

	rows, err := r.db.QueryContext(ctx, query, sql.Named("pid", projectID))
	if err != nil {
		return nil, fmt.Errorf("list stored procedures for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var procs []models.StoredProcedureMetadata
	for rows.Next() {
		var p models.StoredProcedureMetadata
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.ClientID, &p.SchemaName, &p.SpName, &p.Definition); err != nil {
			return nil, fmt.Errorf("scan stored procedure row: %w", err)
		}
		procs = append(procs, p)
	}
	return procs, rows.Err()
}
