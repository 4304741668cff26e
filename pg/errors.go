package pg

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InvalidDescriptorError indicates a connection string that could not be
// parsed into host/port/database components.
type InvalidDescriptorError struct {
	Reason string
}

func (e *InvalidDescriptorError) Error() string {
	return fmt.Sprintf("invalid connection descriptor: %s", e.Reason)
}

// ConnectFailedError indicates the database could not be reached.
type ConnectFailedError struct {
	Host     string
	Database string
	Err      error
}

func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("failed to connect to %q on %s: %v", e.Database, e.Host, e.Err)
}

func (e *ConnectFailedError) Unwrap() error { return e.Err }

// PoolTimeoutError indicates no pooled connection became available within
// the configured acquire timeout.
type PoolTimeoutError struct {
	Timeout time.Duration
}

func (e *PoolTimeoutError) Error() string {
	return fmt.Sprintf("timed out acquiring connection from pool after %s", e.Timeout)
}

// PoolClosedError indicates an acquire after the pool was torn down.
type PoolClosedError struct{}

func (e *PoolClosedError) Error() string {
	return "connection pool is closed"
}

// ValidationError indicates invalid tool arguments. Field names the first
// violated field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError for a named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ExternalProcessError indicates a non-zero exit from pg_dump, pg_restore
// or psql. Stderr carries the process output verbatim.
type ExternalProcessError struct {
	Binary   string
	ExitCode int
	Stderr   string
}

func (e *ExternalProcessError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s failed with exit code %d", e.Binary, e.ExitCode)
	}
	return fmt.Sprintf("%s failed with exit code %d: %s", e.Binary, e.ExitCode, stderr)
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPoolTimeout returns true if the error is a PoolTimeoutError.
func IsPoolTimeout(err error) bool {
	var pe *PoolTimeoutError
	return errors.As(err, &pe)
}

// IsPoolClosed returns true if the error is a PoolClosedError.
func IsPoolClosed(err error) bool {
	var pe *PoolClosedError
	return errors.As(err, &pe)
}

// IsExternalProcess returns true if the error came from an external
// backup/restore binary.
func IsExternalProcess(err error) bool {
	var ee *ExternalProcessError
	return errors.As(err, &ee)
}
