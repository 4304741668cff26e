package pg

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
)

// Client implements the SQL and backup/restore operations exposed as tools.
// All methods have the shape (ctx, Args) (Result, error) so the registry can
// bind them generically.
type Client struct {
	db     Database
	desc   *ConnectionDescriptor
	cfg    *Config
	logger *slog.Logger
	runner CommandRunner
	now    func() time.Time
}

// NewClient creates a client bound to the given connection source.
func NewClient(db Database, desc *ConnectionDescriptor, cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		db:     db,
		desc:   desc,
		cfg:    cfg,
		logger: logger,
		runner: newExecRunner(),
		now:    time.Now,
	}
}

// connection returns a pooled connection for the default database and a
// standalone connection when another database is targeted. The returned
// Conn must be released exactly once.
func (c *Client) connection(ctx context.Context, database string) (Conn, error) {
	if database == "" || database == c.db.DefaultDatabase() {
		return c.db.Acquire(ctx)
	}
	return c.db.ConnectTo(ctx, database)
}

var returningRegex = regexp.MustCompile(`(?i)\bRETURNING\b`)

func hasReturning(query string) bool {
	return returningRegex.MatchString(query)
}

// rowsToMaps drains a result set into ordered row maps keyed by column name.
func rowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
