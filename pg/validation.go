package pg

import (
	"fmt"
	"regexp"
)

// Database and relation identifiers accepted from tool arguments. Everything
// else goes through parameter binding, never into SQL text.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$-]*$`)

// Relations may be schema-qualified.
var relationRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// Encoding names as PostgreSQL spells them (UTF8, LATIN1, EUC_JP, ...).
var encodingRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidDatabaseName reports whether a name is safe to interpolate as a
// quoted database identifier.
func ValidDatabaseName(name string) bool {
	return name != "" && identifierRegex.MatchString(name)
}

func validateIsolationLevel(level string) error {
	switch level {
	case "", "read_uncommitted", "read_committed", "repeatable_read", "serializable":
		return nil
	}
	return NewValidationError("isolation_level", fmt.Sprintf("unknown isolation level %q", level))
}

// Validate checks execute_select arguments.
func (a SelectArgs) Validate() error {
	if a.Query == "" {
		return NewValidationError("query", "query is required")
	}
	if a.DatabaseName != "" && !ValidDatabaseName(a.DatabaseName) {
		return NewValidationError("database_name", "invalid database name; use only letters, digits, underscores and hyphens")
	}
	return nil
}

// Validate checks DML arguments.
func (a ExecArgs) Validate() error {
	if a.Query == "" {
		return NewValidationError("query", "query is required")
	}
	return nil
}

// Validate checks execute_raw_sql arguments.
func (a RawSQLArgs) Validate() error {
	if a.Query == "" {
		return NewValidationError("query", "query is required")
	}
	return nil
}

// Validate checks execute_create_table arguments.
func (a CreateTableArgs) Validate() error {
	if a.Query == "" {
		return NewValidationError("query", "query is required")
	}
	if a.DatabaseName != "" && !ValidDatabaseName(a.DatabaseName) {
		return NewValidationError("database_name", "invalid database name; use only letters, digits, underscores and hyphens")
	}
	return nil
}

// Validate checks single-statement DDL arguments.
func (a StatementArgs) Validate() error {
	if a.Query == "" {
		return NewValidationError("query", "query is required")
	}
	return nil
}

// Validate checks execute_drop_table arguments.
func (a DropTableArgs) Validate() error {
	if a.TableName == "" {
		return NewValidationError("table_name", "table_name is required")
	}
	if !relationRegex.MatchString(a.TableName) {
		return NewValidationError("table_name", fmt.Sprintf("invalid table name %q", a.TableName))
	}
	return nil
}

// Validate checks execute_drop_index arguments.
func (a DropIndexArgs) Validate() error {
	if a.IndexName == "" {
		return NewValidationError("index_name", "index_name is required")
	}
	if !relationRegex.MatchString(a.IndexName) {
		return NewValidationError("index_name", fmt.Sprintf("invalid index name %q", a.IndexName))
	}
	return nil
}

// Validate checks execute_transaction arguments.
func (a TransactionArgs) Validate() error {
	if len(a.Statements) == 0 {
		return NewValidationError("statements", "at least one statement is required")
	}
	for i, stmt := range a.Statements {
		if stmt.Query == "" {
			return NewValidationError(fmt.Sprintf("statements[%d].query", i), "query is required")
		}
	}
	return validateIsolationLevel(a.IsolationLevel)
}

// Validate checks get_table_info arguments.
func (a TableInfoArgs) Validate() error {
	if a.TableName == "" {
		return NewValidationError("table_name", "table_name is required")
	}
	return nil
}

// Validate checks create_database arguments.
func (a CreateDatabaseArgs) Validate() error {
	if a.DatabaseName == "" {
		return NewValidationError("database_name", "database_name is required")
	}
	if !ValidDatabaseName(a.DatabaseName) {
		return NewValidationError("database_name", "invalid database name; use only letters, digits, underscores and hyphens")
	}
	if a.Owner != "" && !identifierRegex.MatchString(a.Owner) {
		return NewValidationError("owner", fmt.Sprintf("invalid role name %q", a.Owner))
	}
	if a.Encoding != "" && !encodingRegex.MatchString(a.Encoding) {
		return NewValidationError("encoding", fmt.Sprintf("invalid encoding name %q", a.Encoding))
	}
	if a.Template != "" && !identifierRegex.MatchString(a.Template) {
		return NewValidationError("template", fmt.Sprintf("invalid template name %q", a.Template))
	}
	return nil
}

// Validate checks drop_database arguments.
func (a DropDatabaseArgs) Validate() error {
	if a.DatabaseName == "" {
		return NewValidationError("database_name", "database_name is required")
	}
	if !ValidDatabaseName(a.DatabaseName) {
		return NewValidationError("database_name", "invalid database name; use only letters, digits, underscores and hyphens")
	}
	return nil
}
