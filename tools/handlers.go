package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pgtoolbox/postgres-mcp-server/metrics"
	"github.com/pgtoolbox/postgres-mcp-server/pg"
	"github.com/pgtoolbox/postgres-mcp-server/tracing"
)

// UnknownToolError is returned by Dispatch for a tool name that is not
// registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Envelope is the uniform dispatch result: either Data on success or Error
// on failure. RowCount is set for results that carry a row count.
type Envelope struct {
	Success  bool   `json:"success"`
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
	RowCount *int   `json:"row_count,omitempty"`
}

// invoker runs one tool from raw JSON arguments, outside the MCP transport.
type invoker func(ctx context.Context, raw json.RawMessage) (any, error)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	client   *pg.Client
	logger   *slog.Logger
	invokers map[string]invoker
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(client *pg.Client, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		client:   client,
		logger:   logger,
		invokers: make(map[string]invoker),
	}
}

// RegisterAll registers all tools with the MCP server. A nil server only
// populates the dispatch table.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	for _, spec := range AllTools {
		h.registerByName(server, spec)
	}
	h.logger.Info("Registered all tools", "count", len(AllTools))
}

// Dispatch runs a tool by name from raw JSON arguments and wraps the
// outcome in an Envelope. Handlers are never invoked for unknown names.
func (h *HandlerRegistry) Dispatch(ctx context.Context, name string, raw json.RawMessage) Envelope {
	invoke, ok := h.invokers[name]
	if !ok {
		return Envelope{Error: (&UnknownToolError{Name: name}).Error()}
	}

	result, err := invoke(ctx, raw)
	if err != nil {
		return Envelope{Error: err.Error()}
	}

	env := Envelope{Success: true, Data: result}
	if counted, ok := result.(interface{ Rows() int }); ok {
		env.RowCount = ptr(counted.Rows())
	}
	return env
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) {
	tool := h.buildTool(spec)

	switch spec.Method {
	// Query tools
	case "Select":
		register(h, server, tool, spec, h.client.Select)
	case "Insert":
		register(h, server, tool, spec, h.client.Insert)
	case "Update":
		register(h, server, tool, spec, h.client.Update)
	case "Delete":
		register(h, server, tool, spec, h.client.Delete)
	case "RawSQL":
		register(h, server, tool, spec, h.client.RawSQL)
	case "Transaction":
		register(h, server, tool, spec, h.client.Transaction)

	// DDL tools
	case "CreateTable":
		register(h, server, tool, spec, h.client.CreateTable)
	case "AlterTable":
		register(h, server, tool, spec, h.client.AlterTable)
	case "DropTable":
		register(h, server, tool, spec, h.client.DropTable)
	case "CreateIndex":
		register(h, server, tool, spec, h.client.CreateIndex)
	case "DropIndex":
		register(h, server, tool, spec, h.client.DropIndex)

	// Inspection tools
	case "SchemaInfo":
		register(h, server, tool, spec, h.client.SchemaInfo)
	case "TableInfo":
		register(h, server, tool, spec, h.client.TableInfo)
	case "ListDatabases":
		register(h, server, tool, spec, h.client.ListDatabases)

	// Admin tools
	case "CreateDatabase":
		register(h, server, tool, spec, h.client.CreateDatabase)
	case "DropDatabase":
		register(h, server, tool, spec, h.client.DropDatabase)

	// Backup tools
	case "Backup":
		register(h, server, tool, spec, h.client.Backup)
	case "Restore":
		register(h, server, tool, spec, h.client.Restore)
	case "ListBackups":
		register(h, server, tool, spec, h.client.ListBackups)
	case "CheckBackupTools":
		register(h, server, tool, spec, h.client.CheckBackupTools)

	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
	}
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a tool with the MCP server
// and the dispatch table. It wraps the client method with validation,
// panic recovery, metrics, tracing, and logging.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	wrapped := func(ctx context.Context, args Args) (result Result, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				metrics.PanicsRecovered.WithLabelValues(spec.Name).Inc()
				h.logger.Error("Panic recovered",
					"tool", spec.Name,
					"panic", rec,
					"stack", string(debug.Stack()))
				err = fmt.Errorf("%s panicked: %v", spec.Name, rec)
			}
		}()

		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		tracing.AddDatabaseAttributes(span, spec.Method, databaseTarget(args))
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()

		if v, ok := any(args).(interface{ Validate() error }); ok {
			if verr := v.Validate(); verr != nil {
				tracing.RecordError(span, verr)
				span.SetStatus(codes.Error, verr.Error())
				metrics.RecordRequest(spec.Name, time.Since(start).Seconds(), false)
				return result, verr
			}
		}

		result, err = method(ctx, args)
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			tracing.RecordError(span, err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(spec.Name, duration, false)
			return result, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, result)
		return result, nil
	}

	if server != nil {
		mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (*mcp.CallToolResult, Result, error) {
			result, err := wrapped(ctx, args)
			if err != nil {
				var zero Result
				return nil, zero, err
			}
			return nil, result, nil
		})
	}

	h.invokers[spec.Name] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args Args
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%s: invalid arguments: %w", spec.Name, err)
			}
		}
		return wrapped(ctx, args)
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name, "category", spec.Category}

	// Add extractable fields from args using type assertions
	switch a := args.(type) {
	case pg.SelectArgs:
		attrs = append(attrs, "query", truncateQuery(a.Query), "database", a.DatabaseName)
	case pg.ExecArgs:
		attrs = append(attrs, "query", truncateQuery(a.Query))
	case pg.RawSQLArgs:
		attrs = append(attrs, "query", truncateQuery(a.Query))
	case pg.CreateTableArgs:
		attrs = append(attrs, "database", a.DatabaseName)
	case pg.DropTableArgs:
		attrs = append(attrs, "table", a.TableName, "cascade", a.Cascade)
	case pg.DropIndexArgs:
		attrs = append(attrs, "index", a.IndexName)
	case pg.TransactionArgs:
		attrs = append(attrs, "statements", len(a.Statements), "isolation_level", a.IsolationLevel)
	case pg.SchemaInfoArgs:
		attrs = append(attrs, "schema", a.SchemaName)
	case pg.TableInfoArgs:
		attrs = append(attrs, "table", a.TableName, "schema", a.SchemaName)
	case pg.CreateDatabaseArgs:
		attrs = append(attrs, "database", a.DatabaseName)
	case pg.DropDatabaseArgs:
		attrs = append(attrs, "database", a.DatabaseName, "force", a.Force)
	case pg.BackupArgs:
		attrs = append(attrs, "database", a.DatabaseName, "format", a.Format)
	case pg.RestoreArgs:
		attrs = append(attrs, "database", a.DatabaseName, "path", a.BackupPath)
	case pg.ListBackupsArgs:
		attrs = append(attrs, "pattern", a.Pattern)
	}

	// Add extractable fields from result
	switch r := result.(type) {
	case pg.RowsResult:
		attrs = append(attrs, "row_count", r.RowCount)
	case pg.ExecResult:
		attrs = append(attrs, "row_count", r.RowCount)
	case pg.RawSQLResult:
		attrs = append(attrs, "row_count", r.RowCount, "status", r.Status)
	case pg.TransactionResult:
		attrs = append(attrs, "results", len(r.Results))
	case pg.SchemaInfoResult:
		attrs = append(attrs, "tables", len(r.Tables))
	case pg.TableInfoResult:
		attrs = append(attrs, "row_count", r.RowCount)
	case pg.ListDatabasesResult:
		attrs = append(attrs, "databases", r.Count)
	case pg.BackupResult:
		attrs = append(attrs, "path", r.BackupPath, "method", r.Method)
	case pg.RestoreResult:
		attrs = append(attrs, "method", r.Method, "with_issues", r.CompletedWithIssues)
	case pg.ListBackupsResult:
		attrs = append(attrs, "backups", r.Count)
	case pg.CheckBackupToolsResult:
		attrs = append(attrs, "all_available", r.AllAvailable)
	}

	h.logger.Info("Tool executed", attrs...)
}

// databaseTarget extracts the database a call operates on, for span
// attributes. Empty means the default database.
func databaseTarget(args any) string {
	switch a := args.(type) {
	case pg.SelectArgs:
		return a.DatabaseName
	case pg.CreateTableArgs:
		return a.DatabaseName
	case pg.CreateDatabaseArgs:
		return a.DatabaseName
	case pg.DropDatabaseArgs:
		return a.DatabaseName
	case pg.BackupArgs:
		return a.DatabaseName
	case pg.RestoreArgs:
		return a.DatabaseName
	}
	return ""
}

// truncateQuery keeps log lines readable for long statements.
func truncateQuery(query string) string {
	const max = 120
	if len(query) <= max {
		return query
	}
	return query[:max] + "..."
}
