package pg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pgtoolbox/postgres-mcp-server/metrics"
)

// backupTimeout bounds a single pg_dump run. Large databases take a while;
// anything past this is treated as hung.
const backupTimeout = 2 * time.Hour

// backupExtensions maps pg_dump formats to their conventional file
// extensions. The directory format produces a directory, not a file.
var backupExtensions = map[string]string{
	"custom":    ".dump",
	"plain":     ".sql",
	"tar":       ".tar",
	"directory": "",
}

var backupFormatFlags = map[string]string{
	"custom":    "c",
	"plain":     "p",
	"tar":       "t",
	"directory": "d",
}

// BackupArgs contains parameters for backup_database.
type BackupArgs struct {
	DatabaseName  string   `json:"database_name" jsonschema:"required" jsonschema_description:"The database to back up"`
	BackupPath    string   `json:"backup_path,omitempty" jsonschema_description:"Target file or directory; defaults to the configured backup directory with a timestamped file name"`
	Format        string   `json:"format,omitempty" jsonschema_description:"Backup format: custom (default), plain, tar or directory"`
	CompressLevel *int     `json:"compression_level,omitempty" jsonschema_description:"Compression level 0-9 (default 6)"`
	SchemaOnly    bool     `json:"schema_only,omitempty" jsonschema_description:"Dump only the schema, no data"`
	DataOnly      bool     `json:"data_only,omitempty" jsonschema_description:"Dump only the data, no schema"`
	Tables        []string `json:"tables,omitempty" jsonschema_description:"Restrict the dump to these tables"`
	ExcludeTables []string `json:"exclude_tables,omitempty" jsonschema_description:"Exclude these tables from the dump"`
	UsePgDump     *bool    `json:"use_pg_dump,omitempty" jsonschema_description:"Force pg_dump (true) or the built-in SQL dump (false); default picks automatically"`
}

// Validate checks backup_database arguments.
func (a BackupArgs) Validate() error {
	if a.DatabaseName == "" {
		return NewValidationError("database_name", "database_name is required")
	}
	if !ValidDatabaseName(a.DatabaseName) {
		return NewValidationError("database_name", "invalid database name; use only letters, digits, underscores and hyphens")
	}
	if a.Format != "" {
		if _, ok := backupExtensions[a.Format]; !ok {
			return NewValidationError("format", fmt.Sprintf("unknown format %q; use custom, plain, tar or directory", a.Format))
		}
	}
	if a.CompressLevel != nil && (*a.CompressLevel < 0 || *a.CompressLevel > 9) {
		return NewValidationError("compression_level", "compression level must be between 0 and 9")
	}
	if a.SchemaOnly && a.DataOnly {
		return NewValidationError("schema_only", "schema_only and data_only are mutually exclusive")
	}
	if a.UsePgDump != nil && !*a.UsePgDump && a.Format != "" && a.Format != "plain" {
		return NewValidationError("use_pg_dump", "the built-in SQL dump only produces plain format")
	}
	for i, table := range a.Tables {
		if !relationRegex.MatchString(table) {
			return NewValidationError(fmt.Sprintf("tables[%d]", i), fmt.Sprintf("invalid table name %q", table))
		}
	}
	for i, table := range a.ExcludeTables {
		if !relationRegex.MatchString(table) {
			return NewValidationError(fmt.Sprintf("exclude_tables[%d]", i), fmt.Sprintf("invalid table name %q", table))
		}
	}
	return nil
}

// BackupResult carries the outcome of backup_database.
type BackupResult struct {
	Message    string `json:"message"`
	Database   string `json:"database_name"`
	BackupPath string `json:"backup_path"`
	Format     string `json:"format"`
	Method     string `json:"method"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	Size       string `json:"size,omitempty"`
}

// Backup dumps a database to disk, preferring pg_dump and falling back to
// the built-in SQL dump for plain-format backups when pg_dump is missing or
// older than the server.
func (c *Client) Backup(ctx context.Context, args BackupArgs) (BackupResult, error) {
	format := args.Format
	if format == "" {
		format = "custom"
		if args.UsePgDump != nil && !*args.UsePgDump {
			// The built-in dump only writes plain SQL, so the resolved
			// path must get the plain extension.
			format = "plain"
		}
	}
	compress := 6
	if args.CompressLevel != nil {
		compress = *args.CompressLevel
	}

	path, err := c.resolveBackupPath(args.DatabaseName, args.BackupPath, format)
	if err != nil {
		return BackupResult{}, err
	}

	usePgDump, reason, err := c.selectBackupMethod(ctx, args.UsePgDump, format)
	if err != nil {
		return BackupResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, backupTimeout)
	defer cancel()

	if !usePgDump {
		if reason != "" {
			c.logger.Warn("Falling back to built-in SQL dump", "reason", reason, "database", args.DatabaseName)
			metrics.BackupFallbacks.Inc()
		}
		return c.sqlBackup(ctx, args, path, compress)
	}

	argv := []string{
		"pg_dump",
		"-h", c.desc.Host,
		"-p", strconv.Itoa(c.desc.Port),
		"-U", c.desc.Username,
		"-d", args.DatabaseName,
		"-F", backupFormatFlags[format],
	}
	if format != "plain" && format != "tar" {
		argv = append(argv, "-Z", strconv.Itoa(compress))
	}
	if args.SchemaOnly {
		argv = append(argv, "--schema-only")
	}
	if args.DataOnly {
		argv = append(argv, "--data-only")
	}
	for _, table := range args.Tables {
		argv = append(argv, "-t", table)
	}
	for _, table := range args.ExcludeTables {
		argv = append(argv, "-T", table)
	}
	argv = append(argv, "-f", path, "--verbose")

	c.logger.Info("Running pg_dump",
		"database", args.DatabaseName,
		"format", format,
		"path", path)

	if _, _, err := c.runner.Run(ctx, argv, c.commandEnv()); err != nil {
		metrics.ExternalCommands.WithLabelValues("pg_dump", "error").Inc()
		return BackupResult{}, fmt.Errorf("pg_dump failed: %w", err)
	}
	metrics.ExternalCommands.WithLabelValues("pg_dump", "ok").Inc()

	result := BackupResult{
		Message:    fmt.Sprintf("Database %q backed up successfully", args.DatabaseName),
		Database:   args.DatabaseName,
		BackupPath: path,
		Format:     format,
		Method:     "pg_dump",
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		result.SizeBytes = info.Size()
		result.Size = humanize.Bytes(uint64(info.Size()))
	}
	return result, nil
}

// resolveBackupPath turns the requested destination into a concrete path.
// A directory (or empty) destination gets a timestamped file name; the
// parent directory is created if missing.
func (c *Client) resolveBackupPath(database, requested, format string) (string, error) {
	ext := backupExtensions[format]

	path := requested
	if path == "" {
		path = c.cfg.BackupDir
	}

	if isDirectoryTarget(path) {
		stamp := c.now().Format("20060102_150405")
		path = filepath.Join(path, fmt.Sprintf("%s_backup_%s%s", database, stamp, ext))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	return path, nil
}

// isDirectoryTarget reports whether a destination names a directory rather
// than a backup file. Existing directories and extensionless paths count.
func isDirectoryTarget(path string) bool {
	if info, err := os.Stat(path); err == nil {
		return info.IsDir()
	}
	return filepath.Ext(path) == ""
}

// selectBackupMethod decides between pg_dump and the built-in SQL dump.
// The returned reason is non-empty when an automatic fallback happened.
func (c *Client) selectBackupMethod(ctx context.Context, usePgDump *bool, format string) (bool, string, error) {
	if usePgDump != nil {
		if *usePgDump {
			if _, err := c.runner.LookPath("pg_dump"); err != nil {
				return false, "", fmt.Errorf("pg_dump requested but not found in PATH: %w", err)
			}
			return true, "", nil
		}
		return false, "", nil
	}

	if _, err := c.runner.LookPath("pg_dump"); err != nil {
		if format == "plain" {
			return false, "pg_dump not found in PATH", nil
		}
		return false, "", fmt.Errorf("pg_dump not found in PATH and format %q requires it: %w", format, err)
	}

	dumpMajor, err := c.binaryMajorVersion(ctx, "pg_dump")
	if err != nil {
		c.logger.Warn("Could not determine pg_dump version", "error", err)
		return true, "", nil
	}
	serverVersion, err := c.db.ServerVersion(ctx)
	if err != nil {
		c.logger.Warn("Could not determine server version", "error", err)
		return true, "", nil
	}
	serverMajor, ok := majorVersion(serverVersion)
	if !ok {
		return true, "", nil
	}

	// pg_dump refuses to dump servers newer than itself.
	if dumpMajor < serverMajor {
		if format == "plain" {
			return false, fmt.Sprintf("pg_dump %d is older than server %d", dumpMajor, serverMajor), nil
		}
		return false, "", fmt.Errorf("pg_dump %d cannot dump server version %d; upgrade pg_dump or use plain format", dumpMajor, serverMajor)
	}
	return true, "", nil
}

// commandEnv builds the extra environment for the PostgreSQL client
// binaries. The password travels via PGPASSWORD, never argv.
func (c *Client) commandEnv() []string {
	env := []string{}
	if c.desc.Password != "" {
		env = append(env, "PGPASSWORD="+c.desc.Password)
	}
	if c.desc.ForceSSLEnv() {
		mode := c.desc.SSLMode
		if mode == "" || mode == "prefer" {
			mode = "require"
		}
		env = append(env, "PGSSLMODE="+mode)
	}
	return env
}
