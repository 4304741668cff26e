package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// CreateTable executes a CREATE TABLE statement, optionally in another
// database.
func (c *Client) CreateTable(ctx context.Context, args CreateTableArgs) (StatementResult, error) {
	conn, err := c.connection(ctx, args.DatabaseName)
	if err != nil {
		return StatementResult{}, err
	}
	defer conn.Release(ctx)

	if _, err := conn.Exec(ctx, args.Query); err != nil {
		return StatementResult{}, err
	}

	msg := "Table created successfully"
	if args.DatabaseName != "" {
		msg += " in database " + args.DatabaseName
	}
	return StatementResult{Message: msg, Database: args.DatabaseName}, nil
}

// AlterTable executes an ALTER TABLE statement.
func (c *Client) AlterTable(ctx context.Context, args StatementArgs) (StatementResult, error) {
	if err := c.execStatement(ctx, args.Query); err != nil {
		return StatementResult{}, err
	}
	return StatementResult{Message: "Table altered successfully"}, nil
}

// DropTable drops a table, folding if_exists/cascade into the generated SQL
// so callers never supply raw syntax.
func (c *Client) DropTable(ctx context.Context, args DropTableArgs) (StatementResult, error) {
	query := "DROP TABLE "
	if args.IfExists == nil || *args.IfExists {
		query += "IF EXISTS "
	}
	query += quoteRelation(args.TableName)
	if args.Cascade {
		query += " CASCADE"
	}

	if err := c.execStatement(ctx, query); err != nil {
		return StatementResult{}, err
	}
	return StatementResult{Message: fmt.Sprintf("Table %q dropped successfully", args.TableName)}, nil
}

// CreateIndex executes a CREATE INDEX statement.
func (c *Client) CreateIndex(ctx context.Context, args StatementArgs) (StatementResult, error) {
	if err := c.execStatement(ctx, args.Query); err != nil {
		return StatementResult{}, err
	}
	return StatementResult{Message: "Index created successfully"}, nil
}

// DropIndex drops an index, folding if_exists into the generated SQL.
func (c *Client) DropIndex(ctx context.Context, args DropIndexArgs) (StatementResult, error) {
	query := "DROP INDEX "
	if args.IfExists == nil || *args.IfExists {
		query += "IF EXISTS "
	}
	query += quoteRelation(args.IndexName)

	if err := c.execStatement(ctx, query); err != nil {
		return StatementResult{}, err
	}
	return StatementResult{Message: fmt.Sprintf("Index %q dropped successfully", args.IndexName)}, nil
}

func (c *Client) execStatement(ctx context.Context, query string) error {
	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release(ctx)

	_, err = conn.Exec(ctx, query)
	return err
}

// quoteRelation quotes a possibly schema-qualified relation name.
func quoteRelation(name string) string {
	parts := strings.Split(name, ".")
	return pgx.Identifier(parts).Sanitize()
}
