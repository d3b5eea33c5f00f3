// Package errors defines the stable error code system for devtask.
package errors

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Code is a stable error code string.
type Code string

// Error codes. Stable public contract.
const (
	EUsage    Code = "E_USAGE"
	EInternal Code = "E_INTERNAL"

	// Project and configuration
	ENoProject     Code = "E_NO_PROJECT"
	EInvalidConfig Code = "E_INVALID_CONFIG"
	EConfigExists  Code = "E_CONFIG_EXISTS"
	EProjectLocked Code = "E_PROJECT_LOCKED"

	// External tools
	EToolNotFound Code = "E_TOOL_NOT_FOUND"
	EToolFailed   Code = "E_TOOL_FAILED"

	// App scaffolding
	EInvalidAppName          Code = "E_INVALID_APP_NAME"
	EAppExists               Code = "E_APP_EXISTS"
	ESettingsNotFound        Code = "E_SETTINGS_NOT_FOUND"
	ESettingsMarkerMissing   Code = "E_SETTINGS_MARKER_MISSING"
	ESettingsMarkerDuplicate Code = "E_SETTINGS_MARKER_DUPLICATE"
	EAppConfigNotFound       Code = "E_APP_CONFIG_NOT_FOUND"
	EAppConfigNameMissing    Code = "E_APP_CONFIG_NAME_MISSING"
	EWriteFailed             Code = "E_WRITE_FAILED"

	// Git hooks
	EHooksDirMissing     Code = "E_HOOKS_DIR_MISSING"
	EHookTemplateInvalid Code = "E_HOOK_TEMPLATE_INVALID"
	ENoRepo              Code = "E_NO_REPO"
)

// TaskError is the standard error type for devtask errors.
type TaskError struct {
	Code    Code
	Msg     string
	Cause   error
	Details map[string]string // optional structured context
}

// Error returns the stable error format: "CODE: message".
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// New creates a new TaskError with the given code and message.
func New(code Code, msg string) error {
	return &TaskError{Code: code, Msg: msg}
}

// NewWithDetails creates a new TaskError with code, message, and details.
// Details map is copied (nil if empty).
func NewWithDetails(code Code, msg string, details map[string]string) error {
	return &TaskError{Code: code, Msg: msg, Details: copyDetails(details)}
}

// Wrap creates a new TaskError wrapping an underlying error.
func Wrap(code Code, msg string, err error) error {
	return &TaskError{Code: code, Msg: msg, Cause: err}
}

// WrapWithDetails creates a new TaskError wrapping an underlying error with details.
// Details map is copied (nil if empty).
func WrapWithDetails(code Code, msg string, err error, details map[string]string) error {
	return &TaskError{Code: code, Msg: msg, Cause: err, Details: copyDetails(details)}
}

// ToolFailed builds the E_TOOL_FAILED error for a subprocess that exited non-zero.
// The exit code is kept in Details so ExitCode can propagate it.
func ToolFailed(command string, exitCode int) error {
	return NewWithDetails(EToolFailed,
		fmt.Sprintf("%s exited with code %d", command, exitCode),
		map[string]string{"command": command, "exit_code": strconv.Itoa(exitCode)})
}

// GetCode extracts the error code from an error, or empty string if not a TaskError.
func GetCode(err error) Code {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// AsTaskError returns (*TaskError, true) if err is or wraps a TaskError.
func AsTaskError(err error) (*TaskError, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func copyDetails(details map[string]string) map[string]string {
	if len(details) == 0 {
		return nil
	}
	cp := make(map[string]string, len(details))
	for k, v := range details {
		cp[k] = v
	}
	return cp
}

// ExitCode returns the process exit code for an error.
// Returns 0 if err is nil, 2 for E_USAGE, the subprocess exit code for
// E_TOOL_FAILED, and 1 for all other errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	te, ok := AsTaskError(err)
	if !ok {
		return 1
	}
	switch te.Code {
	case EUsage:
		return 2
	case EToolFailed:
		if n, convErr := strconv.Atoi(te.Details["exit_code"]); convErr == nil && n > 0 && n < 256 {
			return n
		}
	}
	return 1
}

// Print writes the error to w in the stable stderr format:
//
//	error_code: <CODE>
//	<message>
func Print(w io.Writer, err error) {
	if err == nil {
		return
	}
	var te *TaskError
	if errors.As(err, &te) {
		fmt.Fprintf(w, "error_code: %s\n", te.Code)
		fmt.Fprintln(w, te.Msg)
		if te.Cause != nil {
			fmt.Fprintf(w, "cause: %v\n", te.Cause)
		}
	} else {
		fmt.Fprintln(w, err.Error())
	}
}
