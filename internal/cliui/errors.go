package cliui

import (
	"errors"
	"fmt"
)

// Sentinel errors a cobra command can errors.Is against, generalized from
// cli/helpers/errors.go's ErrTimeout/ErrNetwork/ErrAuth trio to the three
// ways a workflow-front-end command fails (spec §6: "non-zero on
// validation failure or failed workflow run").
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrRunFailed  = errors.New("workflow run failed")
)

// ValidationError wraps a workflow/agent validation failure with the
// path that failed, mirroring TimeoutError's Operation/Duration context
// fields.
type ValidationError struct {
	Path   string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) Unwrap() error        { return e.Reason }

// RunError wraps a workflow run failure with the workflow name.
type RunError struct {
	Name  string
	Cause error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("workflow %q failed: %v", e.Name, e.Cause)
}

func (e *RunError) Is(target error) bool { return target == ErrRunFailed }
func (e *RunError) Unwrap() error        { return e.Cause }

// NewValidationError builds a ValidationError for path failing because of reason.
func NewValidationError(path string, reason error) error {
	return &ValidationError{Path: path, Reason: reason}
}

// NewRunError builds a RunError for the named workflow.
func NewRunError(name string, cause error) error {
	return &RunError{Name: name, Cause: cause}
}

// ExitCode maps an error to the process exit code a cobra command should
// return: 0 for nil, 2 for validation failures, 1 for everything else
// (§6 leaves the concrete non-zero value unspecified beyond "non-zero";
// this splits usage/validation errors from generic run failures).
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation):
		return 2
	default:
		return 1
	}
}
