package pg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5"

	"github.com/pgtoolbox/postgres-mcp-server/metrics"
)

// RestoreArgs contains parameters for restore_database.
type RestoreArgs struct {
	BackupPath     string `json:"backup_path" jsonschema:"required" jsonschema_description:"Path to the backup file or directory"`
	DatabaseName   string `json:"database_name" jsonschema:"required" jsonschema_description:"The database to restore into"`
	CreateDatabase bool   `json:"create_database,omitempty" jsonschema_description:"Create the target database before restoring"`
	Clean          bool   `json:"clean,omitempty" jsonschema_description:"Drop existing objects before recreating them; also makes SQL restores fail on the first error"`
	SchemaOnly     bool   `json:"schema_only,omitempty" jsonschema_description:"Restore only the schema"`
	DataOnly       bool   `json:"data_only,omitempty" jsonschema_description:"Restore only the data"`
}

// Validate checks restore_database arguments.
func (a RestoreArgs) Validate() error {
	if a.BackupPath == "" {
		return NewValidationError("backup_path", "backup_path is required")
	}
	if a.DatabaseName == "" {
		return NewValidationError("database_name", "database_name is required")
	}
	if !ValidDatabaseName(a.DatabaseName) {
		return NewValidationError("database_name", "invalid database name; use only letters, digits, underscores and hyphens")
	}
	if a.SchemaOnly && a.DataOnly {
		return NewValidationError("schema_only", "schema_only and data_only are mutually exclusive")
	}
	return nil
}

// RestoreResult carries the outcome of restore_database.
type RestoreResult struct {
	Message             string `json:"message"`
	Database            string `json:"database_name"`
	BackupPath          string `json:"backup_path"`
	Method              string `json:"method"`
	StatementsExecuted  int    `json:"statements_executed,omitempty"`
	StatementsSkipped   int    `json:"statements_skipped,omitempty"`
	CompletedWithIssues bool   `json:"completed_with_issues,omitempty"`
}

// Restore loads a backup into a database. Plain SQL dumps go through psql
// (or the built-in SQL restore when psql is missing); custom, tar and
// directory dumps require pg_restore.
func (c *Client) Restore(ctx context.Context, args RestoreArgs) (RestoreResult, error) {
	if _, err := os.Stat(args.BackupPath); err != nil {
		return RestoreResult{}, fmt.Errorf("backup not found: %w", err)
	}

	if args.CreateDatabase {
		if err := c.ensureDatabase(ctx, args.DatabaseName); err != nil {
			return RestoreResult{}, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, backupTimeout)
	defer cancel()

	if isPlainBackup(args.BackupPath) {
		return c.restorePlain(ctx, args)
	}
	return c.restoreArchive(ctx, args)
}

func isPlainBackup(path string) bool {
	return strings.HasSuffix(path, ".sql") || strings.HasSuffix(path, ".sql.gz")
}

func (c *Client) restorePlain(ctx context.Context, args RestoreArgs) (RestoreResult, error) {
	if strings.HasSuffix(args.BackupPath, ".gz") {
		// psql cannot read gzip directly; replay the script over a
		// connection instead.
		return c.restoreSQLScript(ctx, args)
	}

	if _, err := c.runner.LookPath("psql"); err != nil {
		c.logger.Warn("psql not found, using built-in SQL restore", "database", args.DatabaseName)
		metrics.BackupFallbacks.Inc()
		return c.restoreSQLScript(ctx, args)
	}

	argv := []string{
		"psql",
		"-h", c.desc.Host,
		"-p", strconv.Itoa(c.desc.Port),
		"-U", c.desc.Username,
		"-d", args.DatabaseName,
		"-f", args.BackupPath,
	}
	if !args.CreateDatabase {
		argv = append(argv, "--single-transaction")
	}

	c.logger.Info("Running psql restore", "database", args.DatabaseName, "path", args.BackupPath)

	return c.runRestoreCommand(ctx, "psql", argv, args)
}

func (c *Client) restoreArchive(ctx context.Context, args RestoreArgs) (RestoreResult, error) {
	if _, err := c.runner.LookPath("pg_restore"); err != nil {
		return RestoreResult{}, fmt.Errorf("pg_restore is required for %q backups but was not found in PATH: %w",
			filepath.Ext(args.BackupPath), err)
	}

	argv := []string{
		"pg_restore",
		"-h", c.desc.Host,
		"-p", strconv.Itoa(c.desc.Port),
		"-U", c.desc.Username,
		"-d", args.DatabaseName,
	}
	if args.Clean {
		argv = append(argv, "--clean", "--if-exists")
	}
	if args.SchemaOnly {
		argv = append(argv, "--schema-only")
	}
	if args.DataOnly {
		argv = append(argv, "--data-only")
	}
	argv = append(argv, "--verbose", args.BackupPath)

	c.logger.Info("Running pg_restore", "database", args.DatabaseName, "path", args.BackupPath)

	return c.runRestoreCommand(ctx, "pg_restore", argv, args)
}

// runRestoreCommand executes psql or pg_restore. Exit code 1 without "error"
// in stderr means the restore finished with warnings, which is common when
// restoring over existing objects.
func (c *Client) runRestoreCommand(ctx context.Context, binary string, argv []string, args RestoreArgs) (RestoreResult, error) {
	_, stderr, err := c.runner.Run(ctx, argv, c.commandEnv())
	if err != nil {
		var procErr *ExternalProcessError
		if errors.As(err, &procErr) && procErr.ExitCode == 1 && !strings.Contains(strings.ToLower(stderr), "error") {
			metrics.ExternalCommands.WithLabelValues(binary, "ok").Inc()
			c.logger.Warn("Restore completed with warnings", "binary", binary, "database", args.DatabaseName)
			return RestoreResult{
				Message:             fmt.Sprintf("Database %q restored with warnings", args.DatabaseName),
				Database:            args.DatabaseName,
				BackupPath:          args.BackupPath,
				Method:              binary,
				CompletedWithIssues: true,
			}, nil
		}
		metrics.ExternalCommands.WithLabelValues(binary, "error").Inc()
		return RestoreResult{}, fmt.Errorf("%s failed: %w", binary, err)
	}
	metrics.ExternalCommands.WithLabelValues(binary, "ok").Inc()

	return RestoreResult{
		Message:    fmt.Sprintf("Database %q restored successfully", args.DatabaseName),
		Database:   args.DatabaseName,
		BackupPath: args.BackupPath,
		Method:     binary,
	}, nil
}

func (c *Client) restoreSQLScript(ctx context.Context, args RestoreArgs) (RestoreResult, error) {
	executed, skipped, err := c.sqlRestore(ctx, args.DatabaseName, args.BackupPath,
		args.SchemaOnly, args.DataOnly, args.Clean)
	if err != nil {
		return RestoreResult{}, err
	}
	return RestoreResult{
		Message:             fmt.Sprintf("Database %q restored successfully", args.DatabaseName),
		Database:            args.DatabaseName,
		BackupPath:          args.BackupPath,
		Method:              "sql",
		StatementsExecuted:  executed,
		StatementsSkipped:   skipped,
		CompletedWithIssues: skipped > 0,
	}, nil
}

// ensureDatabase creates the target database when it does not exist yet.
func (c *Client) ensureDatabase(ctx context.Context, name string) error {
	conn, err := c.maintenanceConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Release(ctx)

	var exists int
	err = conn.QueryRow(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, name).Scan(&exists)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return err
	}

	query := fmt.Sprintf(`CREATE DATABASE %s`, pgx.Identifier{name}.Sanitize())
	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create database %q: %w", name, err)
	}
	c.logger.Info("Database created for restore", "database", name)
	return nil
}

// ListBackupsArgs contains parameters for list_backups.
type ListBackupsArgs struct {
	BackupDir string `json:"backup_dir,omitempty" jsonschema_description:"Directory to scan; defaults to the configured backup directory"`
	Pattern   string `json:"pattern,omitempty" jsonschema_description:"Optional glob pattern to match file names, e.g. app_backup_*"`
}

// BackupFile describes one backup on disk.
type BackupFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"size_bytes"`
	Size      string    `json:"size"`
	Modified  time.Time `json:"modified"`
}

// ListBackupsResult carries the backups found on disk, newest first.
type ListBackupsResult struct {
	Directory string       `json:"directory"`
	Count     int          `json:"backup_count"`
	Backups   []BackupFile `json:"backups"`
}

// Rows reports the number of backups found.
func (r ListBackupsResult) Rows() int { return r.Count }

// ListBackups scans a directory for backup files, newest first.
func (c *Client) ListBackups(ctx context.Context, args ListBackupsArgs) (ListBackupsResult, error) {
	dir := args.BackupDir
	if dir == "" {
		dir = c.cfg.BackupDir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ListBackupsResult{Directory: dir, Backups: []BackupFile{}}, nil
		}
		return ListBackupsResult{}, fmt.Errorf("read backup directory: %w", err)
	}

	backups := make([]BackupFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		format := backupFormat(name, entry.IsDir())
		if format == "" {
			continue
		}
		if args.Pattern != "" {
			ok, err := filepath.Match(args.Pattern, name)
			if err != nil {
				return ListBackupsResult{}, NewValidationError("pattern", fmt.Sprintf("invalid glob pattern %q", args.Pattern))
			}
			if !ok {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupFile{
			Name:      name,
			Path:      filepath.Join(dir, name),
			Format:    format,
			SizeBytes: info.Size(),
			Size:      humanize.Bytes(uint64(info.Size())),
			Modified:  info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Modified.After(backups[j].Modified)
	})

	return ListBackupsResult{Directory: dir, Count: len(backups), Backups: backups}, nil
}

// backupFormat guesses the backup format from a file name. Unknown
// extensions return "" and are skipped by ListBackups.
func backupFormat(name string, isDir bool) string {
	switch {
	case isDir:
		return "directory"
	case strings.HasSuffix(name, ".sql"), strings.HasSuffix(name, ".sql.gz"):
		return "plain"
	case strings.HasSuffix(name, ".dump"), strings.HasSuffix(name, ".backup"):
		return "custom"
	case strings.HasSuffix(name, ".tar"):
		return "tar"
	default:
		return ""
	}
}

// CheckBackupToolsArgs contains parameters for check_backup_tools.
type CheckBackupToolsArgs struct{}

// ToolStatus describes one PostgreSQL client binary.
type ToolStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
}

// CheckBackupToolsResult reports availability of the client binaries the
// backup and restore tools depend on.
type CheckBackupToolsResult struct {
	AllAvailable bool         `json:"all_available"`
	Tools        []ToolStatus `json:"tools"`
}

// CheckBackupTools probes for pg_dump, pg_restore and psql and reports
// their versions.
func (c *Client) CheckBackupTools(ctx context.Context, _ CheckBackupToolsArgs) (CheckBackupToolsResult, error) {
	binaries := []string{"pg_dump", "pg_restore", "psql"}

	result := CheckBackupToolsResult{AllAvailable: true}
	for _, binary := range binaries {
		status := ToolStatus{Name: binary}
		path, err := c.runner.LookPath(binary)
		if err == nil {
			status.Available = true
			status.Path = path
			if stdout, _, err := c.runner.Run(ctx, []string{binary, "--version"}, nil); err == nil {
				status.Version = strings.TrimSpace(stdout)
			}
		} else {
			result.AllAvailable = false
		}
		result.Tools = append(result.Tools, status)
	}
	return result, nil
}
