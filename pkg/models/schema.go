package models

// TableMetadata is a synced table definition from a target database.
type TableMetadata struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	TableName   string `json:"table_name"`
	SchemaName  string `json:"schema_name"`
	Description string `json:"description,omitempty"`
}

// ColumnMetadata is a synced column definition. Field order matches the
// fixed read order of the schema readers (name, type, max length, precision,
// scale, nullable, PK, FK, ordinal); downstream consumers index positionally.
type ColumnMetadata struct {
	ID              int64  `json:"id"`
	TableID         int64  `json:"table_id"`
	ColumnName      string `json:"column_name"`
	DataType        string `json:"data_type"`
	MaxLength       int    `json:"max_length"`
	Precision       int    `json:"precision"`
	Scale           int    `json:"scale"`
	IsNullable      bool   `json:"is_nullable"`
	IsPrimaryKey    bool   `json:"is_primary_key"`
	IsForeignKey    bool   `json:"is_foreign_key"`
	OrdinalPosition int    `json:"ordinal_position"`
	Description     string `json:"description,omitempty"`
}

// ForeignKeyMetadata is a synced declared foreign key, with both endpoints
// resolved to metadata-store ids within the same project.
type ForeignKeyMetadata struct {
	ID                 int64  `json:"id"`
	ProjectID          int64  `json:"project_id"`
	ConstraintName     string `json:"constraint_name"`
	SourceTableID      int64  `json:"source_table_id"`
	SourceColumnID     int64  `json:"source_column_id"`
	ReferencedTableID  int64  `json:"referenced_table_id"`
	ReferencedColumnID int64  `json:"referenced_column_id"`
	OnDelete           string `json:"on_delete"`
	OnUpdate           string `json:"on_update"`
}

// ForeignKeyScan is a foreign key as read from the target database, before
// its endpoints are resolved to metadata-store ids.
type ForeignKeyScan struct {
	ConstraintName   string
	SourceSchema     string
	SourceTable      string
	SourceColumn     string
	ReferencedSchema string
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         string
	OnUpdate         string
}

// StoredProcedureMetadata is a synced stored procedure definition.
type StoredProcedureMetadata struct {
	ID         int64  `json:"id"`
	ProjectID  int64  `json:"project_id"`
	ClientID   int64  `json:"client_id"`
	SchemaName string `json:"schema_name"`
	SpName     string `json:"sp_name"`
	Definition string `json:"definition"`
}

// StoredProcedureScan is a stored procedure as read from a target database.
type StoredProcedureScan struct {
	SchemaName string
	SpName     string
	Definition string
}

// TableScan is a (table, schema) pair as listed from a target database.
type TableScan struct {
	TableName  string
	SchemaName string
}

// ColumnScan is a column definition as read from a target database, prior to
// table-id resolution.
type ColumnScan struct {
	ColumnName      string
	DataType        string
	MaxLength       int
	Precision       int
	Scale           int
	IsNullable      bool
	IsPrimaryKey    bool
	IsForeignKey    bool
	OrdinalPosition int
}

// LogicalFkCandidate is a heuristically inferred (not declared) foreign key
// relationship, produced by the best-effort detection pass.
type LogicalFkCandidate struct {
	ID                 int64   `json:"id"`
	ProjectID          int64   `json:"project_id"`
	SourceTableID      int64   `json:"source_table_id"`
	SourceColumnID     int64   `json:"source_column_id"`
	ReferencedTableID  int64   `json:"referenced_table_id"`
	ReferencedColumnID int64   `json:"referenced_column_id"`
	Confidence         float64 `json:"confidence"`
	Method             string  `json:"method"`
}

// DependencyAnalysis is the persisted summary of the best-effort table
// dependency graph pass.
type DependencyAnalysis struct {
	ProjectID    int64    `json:"project_id"`
	TableOrder   []string `json:"table_order"`
	CyclicTables []string `json:"cyclic_tables"`
	EdgeCount    int      `json:"edge_count"`
	HasCycles    bool     `json:"has_cycles"`
}
