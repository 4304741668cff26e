package pg

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// sqlBackup produces a plain SQL dump without pg_dump by walking the catalog
// over a live connection. It only covers tables, columns and row data; use
// pg_dump for anything richer.
func (c *Client) sqlBackup(ctx context.Context, args BackupArgs, path string, compress int) (BackupResult, error) {
	if !strings.HasSuffix(path, ".sql") && !strings.HasSuffix(path, ".sql.gz") {
		path += ".sql"
	}
	if compress > 0 && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}

	conn, err := c.connection(ctx, args.DatabaseName)
	if err != nil {
		return BackupResult{}, err
	}
	defer conn.Release(ctx)

	file, err := os.Create(path)
	if err != nil {
		return BackupResult{}, fmt.Errorf("create backup file: %w", err)
	}
	defer file.Close()

	var w io.Writer = file
	var gz *gzip.Writer
	if compress > 0 {
		gz, err = gzip.NewWriterLevel(file, compress)
		if err != nil {
			return BackupResult{}, err
		}
		w = gz
	}
	buf := bufio.NewWriter(w)

	fmt.Fprintf(buf, "-- SQL dump of database %s\n", args.DatabaseName)
	fmt.Fprintf(buf, "-- Generated at %s\n\n", c.now().UTC().Format(time.RFC3339))

	tables, err := c.dumpTables(ctx, conn, args.Tables, args.ExcludeTables)
	if err != nil {
		return BackupResult{}, err
	}

	for _, table := range tables {
		if !args.DataOnly {
			ddl, err := c.synthesizeCreateTable(ctx, conn, table)
			if err != nil {
				return BackupResult{}, fmt.Errorf("dump schema of %q: %w", table, err)
			}
			buf.WriteString(ddl)
			buf.WriteString("\n")
		}
		if !args.SchemaOnly {
			if err := c.dumpTableData(ctx, conn, table, buf); err != nil {
				return BackupResult{}, fmt.Errorf("dump data of %q: %w", table, err)
			}
		}
	}

	if err := buf.Flush(); err != nil {
		return BackupResult{}, err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return BackupResult{}, err
		}
	}
	if err := file.Close(); err != nil {
		return BackupResult{}, err
	}

	c.logger.Info("Built-in SQL dump complete", "database", args.DatabaseName, "path", path, "tables", len(tables))

	result := BackupResult{
		Message:    fmt.Sprintf("Database %q backed up successfully", args.DatabaseName),
		Database:   args.DatabaseName,
		BackupPath: path,
		Format:     "plain",
		Method:     "sql",
	}
	if info, err := os.Stat(path); err == nil {
		result.SizeBytes = info.Size()
		result.Size = humanize.Bytes(uint64(info.Size()))
	}
	return result, nil
}

// dumpTables lists the public-schema tables to include in the dump.
func (c *Client) dumpTables(ctx context.Context, conn Conn, include, exclude []string) ([]string, error) {
	rows, err := conn.Query(ctx, `
		SELECT tablename
		FROM pg_catalog.pg_tables
		WHERE schemaname = 'public'
		ORDER BY tablename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	included := make(map[string]bool, len(include))
	for _, t := range include {
		included[t] = true
	}
	excluded := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		excluded[t] = true
	}

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if len(included) > 0 && !included[name] {
			continue
		}
		if excluded[name] {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// synthesizeCreateTable rebuilds a CREATE TABLE statement from the
// information schema.
func (c *Client) synthesizeCreateTable(ctx context.Context, conn Conn, table string) (string, error) {
	rows, err := conn.Query(ctx, columnsQuery, "public", table)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var defs []string
	for rows.Next() {
		var (
			name, dataType string
			maxLength      *int
			nullable       string
			columnDefault  *string
		)
		if err := rows.Scan(&name, &dataType, &maxLength, &nullable, &columnDefault); err != nil {
			return "", err
		}

		def := quoteRelation(name) + " " + dataType
		if maxLength != nil {
			def += fmt.Sprintf("(%d)", *maxLength)
		}
		if columnDefault != nil {
			def += " DEFAULT " + *columnDefault
		}
		if nullable == "NO" {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);\n",
		quoteRelation(table), strings.Join(defs, ",\n    ")), nil
}

// dumpTableData streams a table's rows as INSERT statements.
func (c *Client) dumpTableData(ctx context.Context, conn Conn, table string, w io.Writer) error {
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT * FROM %s`, quoteRelation(table)))
	if err != nil {
		return err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = quoteRelation(string(fd.Name))
	}
	columnList := strings.Join(columns, ", ")

	count := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return err
		}
		literals := make([]string, len(values))
		for i, v := range values {
			literals[i] = sqlLiteral(v)
		}
		fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (%s);\n",
			quoteRelation(table), columnList, strings.Join(literals, ", "))
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if count > 0 {
		fmt.Fprintln(w)
	}
	return nil
}

// sqlLiteral renders a value as a SQL literal. Single quotes are doubled;
// byte slices become hex strings.
func sqlLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []byte:
		return `'\x` + hex.EncodeToString(val) + `'`
	case time.Time:
		return "'" + val.Format("2006-01-02 15:04:05.999999-07") + "'"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", val), "'", "''") + "'"
	}
}

// maxRestoreErrors is how many failing statements a lenient SQL restore
// tolerates before giving up.
const maxRestoreErrors = 10

// sqlRestore replays a plain SQL dump statement by statement inside one
// transaction. Unless clean is set, up to maxRestoreErrors failing
// statements are skipped (typically "already exists" noise).
func (c *Client) sqlRestore(ctx context.Context, database, path string, schemaOnly, dataOnly, clean bool) (int, int, error) {
	script, err := readSQLFile(path)
	if err != nil {
		return 0, 0, err
	}

	statements := splitStatements(script)

	conn, err := c.connection(ctx, database)
	if err != nil {
		return 0, 0, err
	}
	defer conn.Release(ctx)

	executed, skipped := 0, 0
	for _, stmt := range statements {
		if schemaOnly && isInsertStatement(stmt) {
			continue
		}
		if dataOnly && !isInsertStatement(stmt) {
			continue
		}

		if _, err := conn.Exec(ctx, stmt); err != nil {
			if clean {
				return executed, skipped, fmt.Errorf("restore statement failed: %w", err)
			}
			skipped++
			c.logger.Warn("Skipping failed restore statement", "error", err)
			if skipped > maxRestoreErrors {
				return executed, skipped, fmt.Errorf("too many failing statements (%d), aborting restore: %w", skipped, err)
			}
			continue
		}
		executed++
	}
	return executed, skipped, nil
}

// readSQLFile reads a plain or gzip-compressed SQL script.
func readSQLFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open backup file: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return "", fmt.Errorf("read compressed backup: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// splitStatements splits a SQL script on semicolons, dropping comment lines
// and blanks. Dumps produced here never embed semicolons in literals in a
// way this misparses only when hand-edited.
func splitStatements(script string) []string {
	var statements []string
	for _, raw := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func isInsertStatement(stmt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "INSERT")
}
