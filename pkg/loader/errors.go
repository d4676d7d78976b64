package loader

import (
	"fmt"
)

// ErrorClass classifies terminal load failures.
type ErrorClass string

const (
	// ClassFetchFailure represents a network or decoding error reported by
	// the underlying transfer.
	ClassFetchFailure ErrorClass = "fetch_failure"

	// ClassFetchTimeout represents a fetch that did not settle within the
	// configured budget.
	ClassFetchTimeout ErrorClass = "fetch_timeout"

	// ClassLateSettlement represents a transfer that resolved after its
	// timeout already fired. Late settlements are swallowed, never surfaced.
	ClassLateSettlement ErrorClass = "late_settlement"
)

// LoadError carries the failed source and classification of a load failure.
type LoadError struct {
	Source string
	Class  ErrorClass
	Err    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s error for %q: %v", e.Class, e.Source, e.Err)
	}
	return fmt.Sprintf("load %s error for %q", e.Class, e.Source)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *LoadError) Unwrap() error {
	return e.Err
}
