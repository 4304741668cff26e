package pg

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorPredicates(t *testing.T) {
	validation := NewValidationError("query", "query is required")
	timeout := &PoolTimeoutError{Timeout: time.Minute}
	closed := &PoolClosedError{}
	process := &ExternalProcessError{Binary: "pg_dump", ExitCode: 2, Stderr: "boom"}

	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"validation direct", validation, IsValidation, true},
		{"validation wrapped", fmt.Errorf("context: %w", validation), IsValidation, true},
		{"validation mismatch", timeout, IsValidation, false},
		{"timeout direct", timeout, IsPoolTimeout, true},
		{"timeout wrapped", fmt.Errorf("context: %w", timeout), IsPoolTimeout, true},
		{"closed direct", closed, IsPoolClosed, true},
		{"closed mismatch", validation, IsPoolClosed, false},
		{"process direct", process, IsExternalProcess, true},
		{"process wrapped", fmt.Errorf("pg_dump failed: %w", process), IsExternalProcess, true},
		{"nil", nil, IsValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestConnectFailedErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &ConnectFailedError{Host: "localhost", Database: "app", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("ConnectFailedError should unwrap to the inner error")
	}
	if msg := err.Error(); !strings.Contains(msg, "app") || !strings.Contains(msg, "localhost") {
		t.Errorf("error message missing context: %s", msg)
	}
}

func TestExternalProcessErrorMessage(t *testing.T) {
	err := &ExternalProcessError{Binary: "pg_restore", ExitCode: 1, Stderr: "  pg_restore: warning  \n"}
	if msg := err.Error(); !strings.Contains(msg, "pg_restore: warning") || !strings.Contains(msg, "exit code 1") {
		t.Errorf("unexpected message: %s", msg)
	}

	bare := &ExternalProcessError{Binary: "psql", ExitCode: 127}
	if msg := bare.Error(); !strings.Contains(msg, "psql failed with exit code 127") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("database_name", "invalid database name")
	if msg := err.Error(); !strings.Contains(msg, "database_name") {
		t.Errorf("message should name the field: %s", msg)
	}
}
