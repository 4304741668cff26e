package pg

// SelectArgs contains parameters for execute_select.
type SelectArgs struct {
	Query        string `json:"query" jsonschema:"required" jsonschema_description:"The SELECT SQL query to execute"`
	Params       []any  `json:"params,omitempty" jsonschema_description:"Optional parameterized query values (use $1, $2, ... in query)"`
	DatabaseName string `json:"database_name,omitempty" jsonschema_description:"Optional database to query; defaults to the database from DATABASE_URL"`
}

// RowsResult carries rows returned by a query.
type RowsResult struct {
	RowCount int              `json:"row_count"`
	Data     []map[string]any `json:"data"`
	Database string           `json:"database,omitempty"`
}

// Rows reports the number of rows in the result.
func (r RowsResult) Rows() int { return r.RowCount }

// ExecArgs contains parameters for execute_insert/update/delete.
type ExecArgs struct {
	Query  string `json:"query" jsonschema:"required" jsonschema_description:"The SQL statement to execute"`
	Params []any  `json:"params,omitempty" jsonschema_description:"Optional parameterized query values"`
}

// ExecResult carries the outcome of a DML statement. When the statement has
// a RETURNING clause, Data holds the returned rows and RowCount their count;
// otherwise RowCount is the affected-row count and Data is empty.
type ExecResult struct {
	RowCount int              `json:"row_count"`
	Data     []map[string]any `json:"data,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Rows reports the affected or returned row count.
func (r ExecResult) Rows() int { return r.RowCount }

// RawSQLArgs contains parameters for execute_raw_sql.
type RawSQLArgs struct {
	Query  string `json:"query" jsonschema:"required" jsonschema_description:"The SQL statement to execute"`
	Params []any  `json:"params,omitempty" jsonschema_description:"Optional parameterized query values"`
}

// RawSQLResult carries the outcome of a raw SQL statement: rows for
// row-returning statements, a command status otherwise.
type RawSQLResult struct {
	RowCount int              `json:"row_count,omitempty"`
	Data     []map[string]any `json:"data,omitempty"`
	Status   string           `json:"status,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// CreateTableArgs contains parameters for execute_create_table.
type CreateTableArgs struct {
	Query        string `json:"query" jsonschema:"required" jsonschema_description:"The CREATE TABLE SQL statement"`
	DatabaseName string `json:"database_name,omitempty" jsonschema_description:"Optional database where the table should be created"`
}

// StatementArgs contains a single DDL statement (ALTER TABLE, CREATE INDEX).
type StatementArgs struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"The SQL statement to execute"`
}

// StatementResult carries the outcome of a DDL statement.
type StatementResult struct {
	Message  string `json:"message"`
	Database string `json:"database,omitempty"`
}

// DropTableArgs contains parameters for execute_drop_table.
type DropTableArgs struct {
	TableName string `json:"table_name" jsonschema:"required" jsonschema_description:"The name of the table to drop"`
	Cascade   bool   `json:"cascade,omitempty" jsonschema_description:"Automatically drop objects that depend on the table"`
	IfExists  *bool  `json:"if_exists,omitempty" jsonschema_description:"Do not error if the table doesn't exist (default true)"`
}

// DropIndexArgs contains parameters for execute_drop_index.
type DropIndexArgs struct {
	IndexName string `json:"index_name" jsonschema:"required" jsonschema_description:"The name of the index to drop"`
	IfExists  *bool  `json:"if_exists,omitempty" jsonschema_description:"Do not error if the index doesn't exist (default true)"`
}

// Statement is one entry of a transaction batch.
type Statement struct {
	Query  string `json:"query" jsonschema:"required" jsonschema_description:"SQL statement"`
	Params []any  `json:"params,omitempty" jsonschema_description:"Optional parameterized query values"`
}

// TransactionArgs contains parameters for execute_transaction.
type TransactionArgs struct {
	Statements     []Statement `json:"statements" jsonschema:"required" jsonschema_description:"Ordered SQL statements to execute atomically"`
	IsolationLevel string      `json:"isolation_level,omitempty" jsonschema_description:"Transaction isolation level: read_uncommitted, read_committed (default), repeatable_read, serializable"`
}

// StatementOutcome is the per-statement result inside a transaction.
type StatementOutcome struct {
	Index    int              `json:"index"`
	Query    string           `json:"query"`
	RowCount int              `json:"row_count,omitempty"`
	Data     []map[string]any `json:"data,omitempty"`
	Status   string           `json:"status,omitempty"`
}

// TransactionResult carries per-statement outcomes of a committed batch.
type TransactionResult struct {
	Message string             `json:"message"`
	Results []StatementOutcome `json:"results"`
}

// SchemaInfoArgs contains parameters for get_schema_info.
type SchemaInfoArgs struct {
	SchemaName           string `json:"schema_name,omitempty" jsonschema_description:"The schema to inspect (default public)"`
	IncludeSystemSchemas bool   `json:"include_system_schemas,omitempty" jsonschema_description:"Include system schemas like pg_catalog"`
}

// ColumnInfo describes one table column.
type ColumnInfo struct {
	Name      string  `json:"column_name"`
	DataType  string  `json:"data_type"`
	MaxLength *int    `json:"character_maximum_length,omitempty"`
	Nullable  bool    `json:"is_nullable"`
	Default   *string `json:"column_default,omitempty"`
}

// ConstraintInfo describes one table constraint.
type ConstraintInfo struct {
	Name string `json:"constraint_name"`
	Type string `json:"constraint_type"`
}

// IndexInfo describes one index.
type IndexInfo struct {
	Name       string `json:"indexname"`
	Definition string `json:"indexdef"`
}

// TableSchema groups schema details for one table.
type TableSchema struct {
	Table       string           `json:"table"`
	Columns     []ColumnInfo     `json:"columns"`
	Constraints []ConstraintInfo `json:"constraints"`
}

// SchemaInfoResult carries schema metadata for all tables in a schema.
type SchemaInfoResult struct {
	Schema string        `json:"schema"`
	Tables []TableSchema `json:"tables"`
}

// TableInfoArgs contains parameters for get_table_info.
type TableInfoArgs struct {
	TableName  string `json:"table_name" jsonschema:"required" jsonschema_description:"The table to inspect"`
	SchemaName string `json:"schema_name,omitempty" jsonschema_description:"The schema name (default public)"`
}

// TableInfoResult carries detailed metadata for one table.
type TableInfoResult struct {
	Table       string           `json:"table"`
	Schema      string           `json:"schema"`
	Columns     []ColumnInfo     `json:"columns"`
	Constraints []ConstraintInfo `json:"constraints"`
	Indexes     []IndexInfo      `json:"indexes"`
	RowCount    int64            `json:"row_count"`
}

// ListDatabasesArgs contains parameters for list_databases.
type ListDatabasesArgs struct {
	IncludeSystemDatabases bool `json:"include_system_databases,omitempty" jsonschema_description:"Include template0, template1 and postgres"`
}

// DatabaseInfo describes one database on the server.
type DatabaseInfo struct {
	Name              string `json:"name"`
	Owner             string `json:"owner"`
	Encoding          string `json:"encoding"`
	Collation         string `json:"collation"`
	Ctype             string `json:"ctype"`
	SizeBytes         int64  `json:"size_bytes"`
	Size              string `json:"size"`
	AllowConnections  bool   `json:"allow_connections"`
	ConnectionLimit   int    `json:"connection_limit"`
	ActiveConnections int64  `json:"active_connections"`
}

// ListDatabasesResult carries the databases visible on the server.
type ListDatabasesResult struct {
	Count     int            `json:"database_count"`
	Databases []DatabaseInfo `json:"databases"`
}

// Rows reports the number of databases listed.
func (r ListDatabasesResult) Rows() int { return r.Count }

// CreateDatabaseArgs contains parameters for create_database.
type CreateDatabaseArgs struct {
	DatabaseName string `json:"database_name" jsonschema:"required" jsonschema_description:"The name of the database to create"`
	Owner        string `json:"owner,omitempty" jsonschema_description:"Optional owning role"`
	Encoding     string `json:"encoding,omitempty" jsonschema_description:"Character encoding (default UTF8)"`
	Template     string `json:"template,omitempty" jsonschema_description:"Template database to copy from (default template1)"`
}

// DropDatabaseArgs contains parameters for drop_database.
type DropDatabaseArgs struct {
	DatabaseName string `json:"database_name" jsonschema:"required" jsonschema_description:"The name of the database to drop"`
	Force        bool   `json:"force,omitempty" jsonschema_description:"Terminate active connections to the database first"`
	IfExists     *bool  `json:"if_exists,omitempty" jsonschema_description:"Do not error if the database doesn't exist (default true)"`
}

// AdminResult carries the outcome of a database-level operation.
type AdminResult struct {
	Message  string `json:"message"`
	Database string `json:"database_name,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Template string `json:"template,omitempty"`
	Forced   bool   `json:"forced,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
}
