package pg

import (
	"context"
	"fmt"
	"strings"
)

// isRowReturning reports whether a statement produces a result set.
func isRowReturning(query string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(trimmed, "SELECT") || strings.HasPrefix(trimmed, "WITH") || hasReturning(query)
}

// Select executes a SELECT query, optionally against another database.
// An empty result set is not an error.
func (c *Client) Select(ctx context.Context, args SelectArgs) (RowsResult, error) {
	conn, err := c.connection(ctx, args.DatabaseName)
	if err != nil {
		return RowsResult{}, err
	}
	defer conn.Release(ctx)

	rows, err := conn.Query(ctx, args.Query, args.Params...)
	if err != nil {
		return RowsResult{}, err
	}
	data, err := rowsToMaps(rows)
	if err != nil {
		return RowsResult{}, err
	}

	return RowsResult{
		RowCount: len(data),
		Data:     data,
		Database: args.DatabaseName,
	}, nil
}

// Insert executes an INSERT statement. With a RETURNING clause the returned
// rows are reported instead of a bare affected-row count.
func (c *Client) Insert(ctx context.Context, args ExecArgs) (ExecResult, error) {
	return c.exec(ctx, args, "Inserted")
}

// Update executes an UPDATE statement.
func (c *Client) Update(ctx context.Context, args ExecArgs) (ExecResult, error) {
	return c.exec(ctx, args, "Updated")
}

// Delete executes a DELETE statement.
func (c *Client) Delete(ctx context.Context, args ExecArgs) (ExecResult, error) {
	return c.exec(ctx, args, "Deleted")
}

func (c *Client) exec(ctx context.Context, args ExecArgs, verb string) (ExecResult, error) {
	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	defer conn.Release(ctx)

	if hasReturning(args.Query) {
		rows, err := conn.Query(ctx, args.Query, args.Params...)
		if err != nil {
			return ExecResult{}, err
		}
		data, err := rowsToMaps(rows)
		if err != nil {
			return ExecResult{}, err
		}
		return ExecResult{RowCount: len(data), Data: data}, nil
	}

	tag, err := conn.Exec(ctx, args.Query, args.Params...)
	if err != nil {
		return ExecResult{}, err
	}
	affected := int(tag.RowsAffected())
	return ExecResult{
		RowCount: affected,
		Message:  fmt.Sprintf("%s %d row(s)", verb, affected),
	}, nil
}

// RawSQL executes an arbitrary SQL statement. Row-returning statements
// (SELECT or RETURNING) yield rows, everything else a command status.
func (c *Client) RawSQL(ctx context.Context, args RawSQLArgs) (RawSQLResult, error) {
	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return RawSQLResult{}, err
	}
	defer conn.Release(ctx)

	if isRowReturning(args.Query) {
		rows, err := conn.Query(ctx, args.Query, args.Params...)
		if err != nil {
			return RawSQLResult{}, err
		}
		data, err := rowsToMaps(rows)
		if err != nil {
			return RawSQLResult{}, err
		}
		return RawSQLResult{RowCount: len(data), Data: data}, nil
	}

	tag, err := conn.Exec(ctx, args.Query, args.Params...)
	if err != nil {
		return RawSQLResult{}, err
	}
	return RawSQLResult{
		Status:  tag.String(),
		Message: "Query executed successfully",
	}, nil
}
