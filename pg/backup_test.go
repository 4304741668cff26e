package pg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	}
}

func pgDumpRunner(version string) *fakeRunner {
	return &fakeRunner{
		paths: map[string]string{"pg_dump": "/usr/bin/pg_dump"},
		onRun: func(argv, env []string) (string, string, error) {
			if slices.Contains(argv, "--version") {
				return "pg_dump (PostgreSQL) " + version + "\n", "", nil
			}
			return "", "", nil
		},
	}
}

func TestBackupTimestampedFileName(t *testing.T) {
	dir := t.TempDir()
	runner := pgDumpRunner("16.4")
	client := newTestClient(&fakeDatabase{conn: &fakeConn{}, defaultDB: "app", serverVersion: "16.2"}, runner)
	client.now = fixedClock()

	result, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName: "app",
		BackupPath:   dir,
		Format:       "plain",
	})
	if err != nil {
		t.Fatalf("Backup error: %v", err)
	}

	want := filepath.Join(dir, "app_backup_20250102_030405.sql")
	if result.BackupPath != want {
		t.Errorf("BackupPath = %q, want %q", result.BackupPath, want)
	}
	if result.Method != "pg_dump" {
		t.Errorf("Method = %q, want pg_dump", result.Method)
	}
}

func TestBackupExtensionByFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"custom", ".dump"},
		{"plain", ".sql"},
		{"tar", ".tar"},
		{"directory", ""},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := t.TempDir()
			runner := pgDumpRunner("16.4")
			client := newTestClient(&fakeDatabase{conn: &fakeConn{}, defaultDB: "app", serverVersion: "16.2"}, runner)
			client.now = fixedClock()

			result, err := client.Backup(context.Background(), BackupArgs{
				DatabaseName: "app",
				BackupPath:   dir,
				Format:       tt.format,
			})
			if err != nil {
				t.Fatalf("Backup error: %v", err)
			}
			want := filepath.Join(dir, "app_backup_20250102_030405"+tt.ext)
			if result.BackupPath != want {
				t.Errorf("BackupPath = %q, want %q", result.BackupPath, want)
			}
		})
	}
}

func TestBackupArgv(t *testing.T) {
	dir := t.TempDir()
	runner := pgDumpRunner("16.4")
	client := newTestClient(&fakeDatabase{conn: &fakeConn{}, defaultDB: "app", serverVersion: "16.2"}, runner)
	client.now = fixedClock()

	level := 9
	_, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName:  "app",
		BackupPath:    filepath.Join(dir, "out.dump"),
		CompressLevel: &level,
		SchemaOnly:    true,
		Tables:        []string{"users", "orders"},
		ExcludeTables: []string{"audit_log"},
	})
	if err != nil {
		t.Fatalf("Backup error: %v", err)
	}

	argv := runner.runs[len(runner.runs)-1]
	wantPairs := [][2]string{
		{"-h", "db.example.com"}, {"-p", "5432"}, {"-U", "admin"}, {"-d", "app"},
		{"-F", "c"}, {"-Z", "9"},
		{"-t", "users"}, {"-t", "orders"}, {"-T", "audit_log"},
		{"-f", filepath.Join(dir, "out.dump")},
	}
	for _, pair := range wantPairs {
		found := false
		for i := 0; i < len(argv)-1; i++ {
			if argv[i] == pair[0] && argv[i+1] == pair[1] {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("argv missing %v: %v", pair, argv)
		}
	}
	if !slices.Contains(argv, "--schema-only") || !slices.Contains(argv, "--verbose") {
		t.Errorf("argv missing flags: %v", argv)
	}

	// The password must travel via environment, never argv.
	for _, arg := range argv {
		if strings.Contains(arg, "secret") {
			t.Errorf("password leaked into argv: %v", argv)
		}
	}
	env := runner.envs[len(runner.envs)-1]
	if !slices.Contains(env, "PGPASSWORD=secret") {
		t.Errorf("env missing PGPASSWORD: %v", env)
	}
}

func TestBackupForcesSSLEnvForAzureHosts(t *testing.T) {
	dir := t.TempDir()
	runner := pgDumpRunner("16.4")
	client := newTestClient(&fakeDatabase{conn: &fakeConn{}, defaultDB: "app", serverVersion: "16.2"}, runner)
	client.now = fixedClock()
	client.desc = &ConnectionDescriptor{
		Scheme: "postgresql", Host: "myserver.postgres.database.azure.com", Port: 5432,
		Username: "admin@myserver", Password: "secret", Database: "app", SSLMode: "prefer",
	}

	if _, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName: "app",
		BackupPath:   filepath.Join(dir, "out.dump"),
	}); err != nil {
		t.Fatalf("Backup error: %v", err)
	}

	env := runner.envs[len(runner.envs)-1]
	if !slices.Contains(env, "PGSSLMODE=require") {
		t.Errorf("env missing PGSSLMODE: %v", env)
	}
}

func TestBackupMissingPgDumpErrorsForCustomFormat(t *testing.T) {
	client := newTestClient(&fakeDatabase{conn: &fakeConn{}, defaultDB: "app"}, &fakeRunner{})
	client.now = fixedClock()

	_, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName: "app",
		BackupPath:   filepath.Join(t.TempDir(), "out.dump"),
	})
	if err == nil || !strings.Contains(err.Error(), "pg_dump not found") {
		t.Errorf("error = %v, want pg_dump-not-found failure", err)
	}
}

func TestBackupOldPgDumpErrorsForCustomFormat(t *testing.T) {
	runner := pgDumpRunner("14.2")
	client := newTestClient(&fakeDatabase{conn: &fakeConn{}, defaultDB: "app", serverVersion: "16.2"}, runner)
	client.now = fixedClock()

	_, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName: "app",
		BackupPath:   filepath.Join(t.TempDir(), "out.dump"),
	})
	if err == nil || !strings.Contains(err.Error(), "upgrade pg_dump") {
		t.Errorf("error = %v, want version-mismatch failure", err)
	}
}

func TestBackupFallsBackToSQLDumpForPlainFormat(t *testing.T) {
	dir := t.TempDir()
	conn := sqlDumpConn()
	// pg_dump 14 cannot dump a version 16 server.
	runner := pgDumpRunner("14.2")
	client := newTestClient(&fakeDatabase{conn: conn, defaultDB: "app", serverVersion: "16.2"}, runner)
	client.now = fixedClock()

	zero := 0
	result, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName:  "app",
		BackupPath:    dir,
		Format:        "plain",
		CompressLevel: &zero,
	})
	if err != nil {
		t.Fatalf("Backup error: %v", err)
	}
	if result.Method != "sql" {
		t.Errorf("Method = %q, want sql", result.Method)
	}

	data, err := os.ReadFile(result.BackupPath)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}
	if !strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS") {
		t.Errorf("dump missing schema: %s", data)
	}
}

func TestBackupHonorsUsePgDumpFalse(t *testing.T) {
	dir := t.TempDir()
	conn := sqlDumpConn()
	runner := pgDumpRunner("16.4")
	client := newTestClient(&fakeDatabase{conn: conn, defaultDB: "app", serverVersion: "16.2"}, runner)
	client.now = fixedClock()

	useSQL := false
	zero := 0
	result, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName:  "app",
		BackupPath:    dir,
		Format:        "plain",
		CompressLevel: &zero,
		UsePgDump:     &useSQL,
	})
	if err != nil {
		t.Fatalf("Backup error: %v", err)
	}
	if result.Method != "sql" {
		t.Errorf("Method = %q, want sql", result.Method)
	}
	for _, argv := range runner.runs {
		if argv[0] == "pg_dump" && !slices.Contains(argv, "--version") {
			t.Errorf("pg_dump must not run: %v", runner.runs)
		}
	}
}

func TestBackupUsePgDumpFalseDefaultsToPlain(t *testing.T) {
	dir := t.TempDir()
	conn := sqlDumpConn()
	client := newTestClient(&fakeDatabase{conn: conn, defaultDB: "app", serverVersion: "16.2"}, pgDumpRunner("16.4"))
	client.now = fixedClock()

	useSQL := false
	result, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName: "app",
		BackupPath:   dir,
		UsePgDump:    &useSQL,
	})
	if err != nil {
		t.Fatalf("Backup error: %v", err)
	}
	if result.Format != "plain" {
		t.Errorf("Format = %q, want plain", result.Format)
	}

	// Default compression applies, so the dump is a gzipped plain file,
	// never a .dump path with SQL inside.
	want := filepath.Join(dir, "app_backup_20250102_030405.sql.gz")
	if result.BackupPath != want {
		t.Errorf("BackupPath = %q, want %q", result.BackupPath, want)
	}
}

func TestBackupPgDumpFailure(t *testing.T) {
	runner := &fakeRunner{
		paths: map[string]string{"pg_dump": "/usr/bin/pg_dump"},
		onRun: func(argv, env []string) (string, string, error) {
			if slices.Contains(argv, "--version") {
				return "pg_dump (PostgreSQL) 16.4", "", nil
			}
			return "", "connection refused", &ExternalProcessError{Binary: "pg_dump", ExitCode: 1, Stderr: "connection refused"}
		},
	}
	client := newTestClient(&fakeDatabase{conn: &fakeConn{}, defaultDB: "app", serverVersion: "16.2"}, runner)
	client.now = fixedClock()

	_, err := client.Backup(context.Background(), BackupArgs{
		DatabaseName: "app",
		BackupPath:   filepath.Join(t.TempDir(), "out.dump"),
	})
	if err == nil || !IsExternalProcess(err) {
		t.Errorf("error = %v, want external process failure", err)
	}
}

func TestMajorVersion(t *testing.T) {
	tests := []struct {
		in    string
		major int
		ok    bool
	}{
		{"pg_dump (PostgreSQL) 16.4", 16, true},
		{"15.8 (Debian 15.8-1.pgdg120+1)", 15, true},
		{"17beta1", 17, true},
		{"no digits here", 0, false},
	}
	for _, tt := range tests {
		major, ok := majorVersion(tt.in)
		if major != tt.major || ok != tt.ok {
			t.Errorf("majorVersion(%q) = %d, %v; want %d, %v", tt.in, major, ok, tt.major, tt.ok)
		}
	}
}

// sqlDumpConn answers the catalog and data queries the built-in SQL dump
// issues for a single users table.
func sqlDumpConn() *fakeConn {
	return &fakeConn{
		onQuery: func(sql string, args []any) (pgx.Rows, error) {
			switch {
			case strings.Contains(sql, "pg_tables"):
				return newFakeRows([]string{"tablename"}, [][]any{{"users"}}), nil
			case strings.Contains(sql, "information_schema.columns"):
				return newFakeRows(
					[]string{"column_name", "data_type", "character_maximum_length", "is_nullable", "column_default"},
					[][]any{
						{"id", "integer", nil, "NO", nil},
						{"name", "text", nil, "YES", nil},
					}), nil
			case strings.HasPrefix(strings.TrimSpace(sql), "SELECT * FROM"):
				return newFakeRows([]string{"id", "name"}, [][]any{
					{int64(1), "alice"},
					{int64(2), "o'brien"},
				}), nil
			}
			return nil, errors.New("unexpected query: " + sql)
		},
	}
}
