package tools

// AllTools contains all tool specifications for the PostgreSQL MCP server.
// Tools are organized by category for easier maintenance.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// QUERY TOOLS
	// ==========================================================================
	{
		Name:     "execute_select",
		Method:   "Select",
		Title:    "Execute SELECT",
		Category: "query",
		Description: `Run a SELECT query and return the matching rows.

USE WHEN: User asks "show me the rows where X", "how many orders", "list users", or any read-only question answerable with SQL.

NOT FOR: Modifying data (use execute_insert/update/delete). Not for DDL (use the execute_create_* tools).

PARAMETERS:
- query: SELECT statement, may use $1, $2 placeholders (required)
- params: Values for the placeholders (optional)
- database_name: Query a different database on the same server (optional)

RETURNS: Rows as JSON objects keyed by column name, plus a row count. An empty result is not an error.`,
		ReadOnly:   true,
		Idempotent: true,
	},
	{
		Name:     "execute_insert",
		Method:   "Insert",
		Title:    "Execute INSERT",
		Category: "query",
		Description: `Insert rows into a table.

USE WHEN: User says "add a record", "insert these values", "create a row".

NOT FOR: Creating tables (use execute_create_table). Not for bulk restore (use restore_database).

PARAMETERS:
- query: INSERT statement, may use $1, $2 placeholders (required)
- params: Values for the placeholders (optional)

RETURNS: Affected row count, or the returned rows when the statement has a RETURNING clause.`,
	},
	{
		Name:     "execute_update",
		Method:   "Update",
		Title:    "Execute UPDATE",
		Category: "query",
		Description: `Update existing rows in a table.

USE WHEN: User says "change X to Y", "set the status of", "update the record".

NOT FOR: Schema changes (use execute_alter_table).

PARAMETERS:
- query: UPDATE statement, may use $1, $2 placeholders (required)
- params: Values for the placeholders (optional)

RETURNS: Affected row count, or the returned rows when the statement has a RETURNING clause.`,
	},
	{
		Name:     "execute_delete",
		Method:   "Delete",
		Title:    "Execute DELETE",
		Category: "query",
		Description: `Delete rows from a table.

USE WHEN: User says "remove the records where", "delete that row".

NOT FOR: Dropping whole tables (use execute_drop_table) or databases (use drop_database).

PARAMETERS:
- query: DELETE statement, may use $1, $2 placeholders (required)
- params: Values for the placeholders (optional)

RETURNS: Affected row count, or the returned rows when the statement has a RETURNING clause.`,
		Destructive: true,
	},
	{
		Name:     "execute_raw_sql",
		Method:   "RawSQL",
		Title:    "Execute Raw SQL",
		Category: "query",
		Description: `Run an arbitrary SQL statement when no dedicated tool fits.

USE WHEN: GRANT/REVOKE, VACUUM, ANALYZE, CREATE EXTENSION, or any statement the other tools don't cover.

NOT FOR: Plain SELECT/INSERT/UPDATE/DELETE or standard DDL; prefer the dedicated tools so results are shaped consistently.

PARAMETERS:
- query: SQL statement, may use $1, $2 placeholders (required)
- params: Values for the placeholders (optional)

RETURNS: Rows for row-returning statements, otherwise the command status tag.`,
		Destructive: true,
	},
	{
		Name:     "execute_transaction",
		Method:   "Transaction",
		Title:    "Execute Transaction",
		Category: "query",
		Description: `Run multiple statements atomically in a single transaction.

USE WHEN: User needs several statements to succeed or fail together, e.g. "move money between accounts", "insert the order and its lines".

NOT FOR: A single statement (use the dedicated tool for it).

PARAMETERS:
- statements: Ordered list of {query, params} objects (required)
- isolation_level: read_uncommitted, read_committed (default), repeatable_read or serializable

RETURNS: Per-statement results. Any failure rolls back the whole batch and names the failing statement index.`,
		Destructive: true,
	},

	// ==========================================================================
	// DDL TOOLS
	// ==========================================================================
	{
		Name:     "execute_create_table",
		Method:   "CreateTable",
		Title:    "Create Table",
		Category: "ddl",
		Description: `Execute a CREATE TABLE statement.

USE WHEN: User says "create a table for X", "I need a new table".

NOT FOR: Modifying an existing table (use execute_alter_table).

PARAMETERS:
- query: Full CREATE TABLE statement (required)
- database_name: Create the table in a different database (optional)

RETURNS: Confirmation message.`,
		Idempotent: true,
	},
	{
		Name:     "execute_alter_table",
		Method:   "AlterTable",
		Title:    "Alter Table",
		Category: "ddl",
		Description: `Execute an ALTER TABLE statement.

USE WHEN: User says "add a column", "rename the column", "change the type of".

NOT FOR: Creating tables (use execute_create_table) or dropping them (use execute_drop_table).

PARAMETERS:
- query: Full ALTER TABLE statement (required)

RETURNS: Confirmation message.`,
	},
	{
		Name:     "execute_drop_table",
		Method:   "DropTable",
		Title:    "Drop Table",
		Category: "ddl",
		Description: `Drop a table.

USE WHEN: User says "delete the X table", "drop that table".

NOT FOR: Deleting rows (use execute_delete) or dropping databases (use drop_database).

PARAMETERS:
- table_name: Table to drop, optionally schema-qualified (required)
- cascade: Also drop dependent objects (default false)
- if_exists: Don't error when the table is missing (default true)

RETURNS: Confirmation message.`,
		Destructive: true,
		Idempotent:  true,
	},
	{
		Name:     "execute_create_index",
		Method:   "CreateIndex",
		Title:    "Create Index",
		Category: "ddl",
		Description: `Execute a CREATE INDEX statement.

USE WHEN: User says "index this column", "speed up lookups on X".

PARAMETERS:
- query: Full CREATE INDEX statement (required)

RETURNS: Confirmation message.`,
		Idempotent: true,
	},
	{
		Name:     "execute_drop_index",
		Method:   "DropIndex",
		Title:    "Drop Index",
		Category: "ddl",
		Description: `Drop an index.

USE WHEN: User says "remove the index on X".

PARAMETERS:
- index_name: Index to drop, optionally schema-qualified (required)
- if_exists: Don't error when the index is missing (default true)

RETURNS: Confirmation message.`,
		Destructive: true,
		Idempotent:  true,
	},

	// ==========================================================================
	// INSPECTION TOOLS
	// ==========================================================================
	{
		Name:     "get_schema_info",
		Method:   "SchemaInfo",
		Title:    "Get Schema Info",
		Category: "inspect",
		Description: `List every table in a schema with its columns and constraints.

USE WHEN: User asks "what tables are there", "describe the schema", "what does the database look like".

NOT FOR: One specific table in depth (use get_table_info).

PARAMETERS:
- schema_name: Schema to inspect (default public)
- include_system_schemas: Include pg_catalog and information_schema (default false)

RETURNS: Tables with column types, nullability, defaults and constraints.`,
		ReadOnly:   true,
		Idempotent: true,
	},
	{
		Name:     "get_table_info",
		Method:   "TableInfo",
		Title:    "Get Table Info",
		Category: "inspect",
		Description: `Describe one table in detail: columns, constraints, indexes and row count.

USE WHEN: User asks "describe the users table", "what columns does X have", "how many rows in X".

NOT FOR: An overview of all tables (use get_schema_info).

PARAMETERS:
- table_name: Table to inspect (required)
- schema_name: Schema name (default public)

RETURNS: Column definitions, constraints, index definitions and the current row count.`,
		ReadOnly:   true,
		Idempotent: true,
	},
	{
		Name:     "list_databases",
		Method:   "ListDatabases",
		Title:    "List Databases",
		Category: "inspect",
		Description: `List databases on the server with size and connection details.

USE WHEN: User asks "what databases are there", "how big is each database".

PARAMETERS:
- include_system_databases: Include postgres, template0 and template1 (default false)

RETURNS: Per-database owner, encoding, size and active connection count, sorted by name.`,
		ReadOnly:   true,
		Idempotent: true,
	},

	// ==========================================================================
	// ADMIN TOOLS
	// ==========================================================================
	{
		Name:     "create_database",
		Method:   "CreateDatabase",
		Title:    "Create Database",
		Category: "admin",
		Description: `Create a new database on the server.

USE WHEN: User says "create a database called X", "set up a new database".

NOT FOR: Creating tables (use execute_create_table).

PARAMETERS:
- database_name: Name of the new database (required)
- owner: Owning role (optional)
- encoding: Character encoding (default UTF8)
- template: Template database (default template1)

RETURNS: Confirmation with the applied settings. Fails when the database already exists.`,
	},
	{
		Name:     "drop_database",
		Method:   "DropDatabase",
		Title:    "Drop Database",
		Category: "admin",
		Description: `Drop a database from the server.

USE WHEN: User says "delete the X database", "remove that database entirely".

NOT FOR: Dropping tables (use execute_drop_table). System databases (postgres, template0, template1) are always refused.

PARAMETERS:
- database_name: Database to drop (required)
- force: Terminate active connections first (default false)
- if_exists: Don't error when the database is missing (default true)

RETURNS: Confirmation message, or a skipped notice when the database doesn't exist.`,
		Destructive: true,
		Idempotent:  true,
	},

	// ==========================================================================
	// BACKUP TOOLS
	// ==========================================================================
	{
		Name:     "backup_database",
		Method:   "Backup",
		Title:    "Backup Database",
		Category: "backup",
		Description: `Dump a database to disk using pg_dump, with a built-in SQL fallback.

USE WHEN: User says "back up the database", "export the data", "take a snapshot before I change things".

NOT FOR: Exporting a single query result (use execute_select).

PARAMETERS:
- database_name: Database to back up (required)
- backup_path: Target file or directory; a directory gets a timestamped file name (default: configured backup directory)
- format: custom (default), plain, tar or directory
- compression_level: 0-9 (default 6)
- schema_only / data_only: Restrict what is dumped
- tables / exclude_tables: Restrict which tables are dumped
- use_pg_dump: Force pg_dump (true) or the built-in SQL dump (false)

RETURNS: The backup path, format, size and which method produced it.`,
		ReadOnly:   true,
		Idempotent: true,
	},
	{
		Name:     "restore_database",
		Method:   "Restore",
		Title:    "Restore Database",
		Category: "backup",
		Description: `Load a backup into a database using psql or pg_restore.

USE WHEN: User says "restore the backup", "load the dump into X", "roll back to the snapshot".

NOT FOR: Importing a few rows (use execute_insert).

PARAMETERS:
- backup_path: Backup file or directory (required). .sql/.sql.gz go through psql, .dump/.backup/.tar through pg_restore
- database_name: Target database (required)
- create_database: Create the target first (default false)
- clean: Drop existing objects before recreating them (default false)
- schema_only / data_only: Restrict what is restored

RETURNS: Confirmation, including whether the restore finished with warnings.`,
		Destructive: true,
	},
	{
		Name:     "list_backups",
		Method:   "ListBackups",
		Title:    "List Backups",
		Category: "backup",
		Description: `List backup files on disk, newest first.

USE WHEN: User asks "what backups do we have", "when was the last backup".

PARAMETERS:
- backup_dir: Directory to scan (default: configured backup directory)
- pattern: Glob pattern to filter names, e.g. app_backup_* (optional)

RETURNS: File names, formats, sizes and modification times.`,
		ReadOnly:   true,
		Idempotent: true,
	},
	{
		Name:     "check_backup_tools",
		Method:   "CheckBackupTools",
		Title:    "Check Backup Tools",
		Category: "backup",
		Description: `Report whether pg_dump, pg_restore and psql are installed.

USE WHEN: Before a backup or restore, or when one failed with "not found in PATH".

PARAMETERS: None.

RETURNS: Availability, path and version of each binary.`,
		ReadOnly:   true,
		Idempotent: true,
	},
}
