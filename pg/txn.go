package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func isolationLevel(name string) pgx.TxIsoLevel {
	switch name {
	case "read_uncommitted":
		return pgx.ReadUncommitted
	case "repeatable_read":
		return pgx.RepeatableRead
	case "serializable":
		return pgx.Serializable
	default:
		return pgx.ReadCommitted
	}
}

// Transaction executes an ordered batch of statements atomically. All
// statements commit together; any failure rolls back the whole batch and
// the error names the failing statement index.
func (c *Client) Transaction(ctx context.Context, args TransactionArgs) (TransactionResult, error) {
	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return TransactionResult{}, err
	}
	defer conn.Release(ctx)

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: isolationLevel(args.IsolationLevel)})
	if err != nil {
		return TransactionResult{}, err
	}
	// Rollback is a no-op after commit.
	defer tx.Rollback(ctx)

	results := make([]StatementOutcome, 0, len(args.Statements))
	for i, stmt := range args.Statements {
		outcome := StatementOutcome{Index: i, Query: stmt.Query}

		if isRowReturning(stmt.Query) {
			rows, err := tx.Query(ctx, stmt.Query, stmt.Params...)
			if err != nil {
				return TransactionResult{}, fmt.Errorf("statement %d failed: %w", i, err)
			}
			data, err := rowsToMaps(rows)
			if err != nil {
				return TransactionResult{}, fmt.Errorf("statement %d failed: %w", i, err)
			}
			outcome.Data = data
			outcome.RowCount = len(data)
		} else {
			tag, err := tx.Exec(ctx, stmt.Query, stmt.Params...)
			if err != nil {
				return TransactionResult{}, fmt.Errorf("statement %d failed: %w", i, err)
			}
			outcome.Status = tag.String()
			outcome.RowCount = int(tag.RowsAffected())
		}

		results = append(results, outcome)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, fmt.Errorf("commit failed: %w", err)
	}

	return TransactionResult{
		Message: "Transaction completed successfully",
		Results: results,
	}, nil
}
