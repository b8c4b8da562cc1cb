package engine

import (
	"errors"
	"fmt"
)

// ExecutionError reports a release instruction whose callable failed.
//
// The instruction's status is left unchanged and the remaining instructions
// of the batch are not attempted, so the next run retries it.
type ExecutionError struct {
	// Name is the instruction that failed.
	Name string

	// Owner is the owner key, empty when the instruction was not discovered.
	Owner string

	// RunID identifies the run the failure aborted.
	RunID string

	// Err is the error returned by the callable.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("release instruction %s() failed (owner=%s, run=%s): %v", e.Name, e.Owner, e.RunID, e.Err)
	}
	return fmt.Sprintf("release instruction %s() failed (run=%s): %v", e.Name, e.RunID, e.Err)
}

// Unwrap returns the callable's error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError returns true if err is or wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
