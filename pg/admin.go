package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Databases that must never be dropped.
var systemDatabases = map[string]bool{
	"postgres":  true,
	"template0": true,
	"template1": true,
}

// maintenanceConnection opens a standalone connection to the maintenance
// database for statements that cannot run against the database they operate
// on (CREATE/DROP DATABASE).
func (c *Client) maintenanceConnection(ctx context.Context) (Conn, error) {
	return c.db.ConnectTo(ctx, c.desc.MaintenanceDescriptor().Database)
}

// CreateDatabase creates a new database. CREATE DATABASE cannot run inside a
// transaction or against the target database, so the statement goes over a
// standalone connection to the maintenance database.
func (c *Client) CreateDatabase(ctx context.Context, args CreateDatabaseArgs) (AdminResult, error) {
	encoding := args.Encoding
	if encoding == "" {
		encoding = "UTF8"
	}
	template := args.Template
	if template == "" {
		template = "template1"
	}

	conn, err := c.maintenanceConnection(ctx)
	if err != nil {
		return AdminResult{}, err
	}
	defer conn.Release(ctx)

	var exists int
	err = conn.QueryRow(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, args.DatabaseName).Scan(&exists)
	if err == nil {
		return AdminResult{}, fmt.Errorf("database %q already exists", args.DatabaseName)
	}
	if err != pgx.ErrNoRows {
		return AdminResult{}, err
	}

	query := fmt.Sprintf(`CREATE DATABASE %s`, pgx.Identifier{args.DatabaseName}.Sanitize())
	if args.Owner != "" {
		query += fmt.Sprintf(` OWNER = %s`, pgx.Identifier{args.Owner}.Sanitize())
	}
	query += fmt.Sprintf(` ENCODING = '%s' TEMPLATE = %s`, encoding, pgx.Identifier{template}.Sanitize())

	if _, err := conn.Exec(ctx, query); err != nil {
		return AdminResult{}, fmt.Errorf("create database %q: %w", args.DatabaseName, err)
	}

	c.logger.Info("Database created", "database", args.DatabaseName, "owner", args.Owner)

	return AdminResult{
		Message:  fmt.Sprintf("Database %q created successfully", args.DatabaseName),
		Database: args.DatabaseName,
		Owner:    args.Owner,
		Encoding: encoding,
		Template: template,
	}, nil
}

// DropDatabase drops a database. System databases are refused outright. With
// force, active backends are terminated before the drop.
func (c *Client) DropDatabase(ctx context.Context, args DropDatabaseArgs) (AdminResult, error) {
	if systemDatabases[args.DatabaseName] {
		return AdminResult{}, fmt.Errorf("refusing to drop system database %q", args.DatabaseName)
	}
	if args.DatabaseName == c.db.DefaultDatabase() {
		return AdminResult{}, fmt.Errorf("refusing to drop the currently connected database %q", args.DatabaseName)
	}

	conn, err := c.maintenanceConnection(ctx)
	if err != nil {
		return AdminResult{}, err
	}
	defer conn.Release(ctx)

	var exists int
	err = conn.QueryRow(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, args.DatabaseName).Scan(&exists)
	if err == pgx.ErrNoRows {
		if args.IfExists == nil || *args.IfExists {
			return AdminResult{
				Message:  fmt.Sprintf("Database %q does not exist, skipping", args.DatabaseName),
				Database: args.DatabaseName,
				Skipped:  true,
			}, nil
		}
		return AdminResult{}, fmt.Errorf("database %q does not exist", args.DatabaseName)
	}
	if err != nil {
		return AdminResult{}, err
	}

	if args.Force {
		_, err := conn.Exec(ctx, `
			SELECT pg_terminate_backend(pid)
			FROM pg_stat_activity
			WHERE datname = $1 AND pid <> pg_backend_pid()`, args.DatabaseName)
		if err != nil {
			return AdminResult{}, fmt.Errorf("terminate connections to %q: %w", args.DatabaseName, err)
		}
	}

	query := fmt.Sprintf(`DROP DATABASE %s`, pgx.Identifier{args.DatabaseName}.Sanitize())
	if _, err := conn.Exec(ctx, query); err != nil {
		return AdminResult{}, fmt.Errorf("drop database %q: %w", args.DatabaseName, err)
	}

	c.logger.Info("Database dropped", "database", args.DatabaseName, "forced", args.Force)

	return AdminResult{
		Message:  fmt.Sprintf("Database %q dropped successfully", args.DatabaseName),
		Database: args.DatabaseName,
		Forced:   args.Force,
	}, nil
}
