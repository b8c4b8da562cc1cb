package ir

import (
	"errors"
	"fmt"
)

// ConflictError reports two definitions registered under the same name.
//
// Instruction names are global callable identifiers, so a second definition
// is never silently accepted or allowed to shadow the first.
type ConflictError struct {
	// Name is the contested instruction name.
	Name string

	// Existing is the definition registered first.
	Existing Instruction

	// Duplicate is the definition that was rejected.
	Duplicate Instruction
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting definitions for %s: %s and %s",
		e.Name, describe(e.Existing), describe(e.Duplicate))
}

func describe(i Instruction) string {
	if i.Unit != "" {
		return fmt.Sprintf("%s (%s)", i.Owner, i.Unit)
	}
	return fmt.Sprintf("%s (registered in code)", i.Owner)
}

// IsConflict returns true if err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
