package pg

import (
	"context"
	"fmt"
)

const columnsQuery = `
	SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position`

const constraintsQuery = `
	SELECT constraint_name, constraint_type
	FROM information_schema.table_constraints
	WHERE table_schema = $1 AND table_name = $2`

// SchemaInfo inspects catalog metadata for every table in a schema.
func (c *Client) SchemaInfo(ctx context.Context, args SchemaInfoArgs) (SchemaInfoResult, error) {
	schema := args.SchemaName
	if schema == "" {
		schema = "public"
	}

	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return SchemaInfoResult{}, err
	}
	defer conn.Release(ctx)

	tablesQuery := `
		SELECT tablename
		FROM pg_catalog.pg_tables
		WHERE schemaname = $1`
	if !args.IncludeSystemSchemas {
		tablesQuery += ` AND schemaname NOT IN ('pg_catalog', 'information_schema')`
	}
	tablesQuery += ` ORDER BY tablename`

	rows, err := conn.Query(ctx, tablesQuery, schema)
	if err != nil {
		return SchemaInfoResult{}, err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return SchemaInfoResult{}, err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return SchemaInfoResult{}, err
	}

	result := SchemaInfoResult{Schema: schema, Tables: make([]TableSchema, 0, len(tables))}
	for _, table := range tables {
		columns, err := c.tableColumns(ctx, conn, schema, table)
		if err != nil {
			return SchemaInfoResult{}, err
		}
		constraints, err := c.tableConstraints(ctx, conn, schema, table)
		if err != nil {
			return SchemaInfoResult{}, err
		}
		result.Tables = append(result.Tables, TableSchema{
			Table:       table,
			Columns:     columns,
			Constraints: constraints,
		})
	}
	return result, nil
}

// TableInfo inspects one table: columns, constraints, indexes and row count.
func (c *Client) TableInfo(ctx context.Context, args TableInfoArgs) (TableInfoResult, error) {
	schema := args.SchemaName
	if schema == "" {
		schema = "public"
	}

	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return TableInfoResult{}, err
	}
	defer conn.Release(ctx)

	columns, err := c.tableColumns(ctx, conn, schema, args.TableName)
	if err != nil {
		return TableInfoResult{}, err
	}
	constraints, err := c.tableConstraints(ctx, conn, schema, args.TableName)
	if err != nil {
		return TableInfoResult{}, err
	}

	indexRows, err := conn.Query(ctx, `
		SELECT indexname, indexdef
		FROM pg_indexes
		WHERE schemaname = $1 AND tablename = $2`, schema, args.TableName)
	if err != nil {
		return TableInfoResult{}, err
	}
	var indexes []IndexInfo
	for indexRows.Next() {
		var idx IndexInfo
		if err := indexRows.Scan(&idx.Name, &idx.Definition); err != nil {
			indexRows.Close()
			return TableInfoResult{}, err
		}
		indexes = append(indexes, idx)
	}
	indexRows.Close()
	if err := indexRows.Err(); err != nil {
		return TableInfoResult{}, err
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteRelation(schema+"."+args.TableName))
	var rowCount int64
	if err := conn.QueryRow(ctx, countQuery).Scan(&rowCount); err != nil {
		return TableInfoResult{}, err
	}

	return TableInfoResult{
		Table:       args.TableName,
		Schema:      schema,
		Columns:     columns,
		Constraints: constraints,
		Indexes:     indexes,
		RowCount:    rowCount,
	}, nil
}

// ListDatabases lists databases on the server with ownership, encoding,
// size and connection details.
func (c *Client) ListDatabases(ctx context.Context, args ListDatabasesArgs) (ListDatabasesResult, error) {
	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return ListDatabasesResult{}, err
	}
	defer conn.Release(ctx)

	query := `
		SELECT
			d.datname,
			pg_catalog.pg_get_userbyid(d.datdba),
			pg_catalog.pg_encoding_to_char(d.encoding),
			d.datcollate,
			d.datctype,
			pg_catalog.pg_database_size(d.datname),
			pg_catalog.pg_size_pretty(pg_catalog.pg_database_size(d.datname)),
			d.datallowconn,
			d.datconnlimit,
			(SELECT count(*) FROM pg_stat_activity WHERE datname = d.datname)
		FROM pg_catalog.pg_database d`
	if !args.IncludeSystemDatabases {
		query += ` WHERE d.datname NOT IN ('template0', 'template1', 'postgres')`
	}
	query += ` ORDER BY d.datname`

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return ListDatabasesResult{}, err
	}
	defer rows.Close()

	var databases []DatabaseInfo
	for rows.Next() {
		var db DatabaseInfo
		if err := rows.Scan(&db.Name, &db.Owner, &db.Encoding, &db.Collation, &db.Ctype,
			&db.SizeBytes, &db.Size, &db.AllowConnections, &db.ConnectionLimit, &db.ActiveConnections); err != nil {
			return ListDatabasesResult{}, err
		}
		databases = append(databases, db)
	}
	if err := rows.Err(); err != nil {
		return ListDatabasesResult{}, err
	}

	return ListDatabasesResult{Count: len(databases), Databases: databases}, nil
}

func (c *Client) tableColumns(ctx context.Context, conn Conn, schema, table string) ([]ColumnInfo, error) {
	rows, err := conn.Query(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			col      ColumnInfo
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.DataType, &col.MaxLength, &nullable, &col.Default); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (c *Client) tableConstraints(ctx context.Context, conn Conn, schema, table string) ([]ConstraintInfo, error) {
	rows, err := conn.Query(ctx, constraintsQuery, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constraints []ConstraintInfo
	for rows.Next() {
		var con ConstraintInfo
		if err := rows.Scan(&con.Name, &con.Type); err != nil {
			return nil, err
		}
		constraints = append(constraints, con)
	}
	return constraints, rows.Err()
}
