package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes returned by logsift.
const (
	ExitOK       = 0
	ExitInternal = 1
	ExitUsage    = 2
	ExitNotFound = 3
	ExitNetwork  = 5
	ExitConfig   = 7
)

// CLIError is a categorized error carrying the process exit code.
type CLIError struct {
	Code    int    `json:"exit_code"`
	Type    string `json:"error"`
	Message string `json:"message"`
	Recover bool   `json:"recoverable"`

	cause error
}

func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying error so errors.Is still matches package sentinels.
func (e *CLIError) Unwrap() error { return e.cause }

// NewUsageError reports invalid arguments: missing time bounds, malformed
// timestamps, offsets or identifiers.
func NewUsageError(msg string) *CLIError {
	return &CLIError{Code: ExitUsage, Type: "invalid_args", Message: msg}
}

// NewConfigError reports a configuration problem such as an unknown log set.
func NewConfigError(msg string) *CLIError {
	return &CLIError{Code: ExitConfig, Type: "configuration", Message: msg}
}

// NewNotFoundError reports a missing resource, e.g. no persisted index.
func NewNotFoundError(msg string) *CLIError {
	return &CLIError{Code: ExitNotFound, Type: "not_found", Message: msg}
}

// NewNetworkError reports a recoverable object storage failure.
func NewNetworkError(msg string) *CLIError {
	return &CLIError{Code: ExitNetwork, Type: "network", Message: msg, Recover: true}
}

// NewInternalError reports an unexpected failure.
func NewInternalError(msg string) *CLIError {
	return &CLIError{Code: ExitInternal, Type: "internal", Message: msg}
}

// WithCause attaches err as the wrapped cause and returns e.
func (e *CLIError) WithCause(err error) *CLIError {
	e.cause = err
	return e
}

// Usage wraps err as an invalid-arguments error.
func Usage(err error) error {
	if err == nil {
		return nil
	}
	return NewUsageError(err.Error()).WithCause(err)
}

// Config wraps err as a configuration error.
func Config(err error) error {
	if err == nil {
		return nil
	}
	return NewConfigError(err.Error()).WithCause(err)
}

// ExitCode extracts the exit code from an error.
// Returns ExitInternal (1) for non-CLIError errors, ExitOK (0) for nil.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *CLIError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ExitInternal
}

// FormatError writes the error to w, as one JSON object in JSON mode or as
// a single "error: <message>" line otherwise.
func FormatError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}

	if jsonMode {
		var ce *CLIError
		if !errors.As(err, &ce) {
			ce = NewInternalError(err.Error())
		}
		data, _ := json.Marshal(ce)
		_, _ = fmt.Fprintln(w, string(data))
		return
	}

	_, _ = fmt.Fprintf(w, "error: %v\n", err)
}
