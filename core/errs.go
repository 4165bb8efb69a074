package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFeasibleCandidate reports a completed run in which every
	// evaluation was infeasible.
	ErrNoFeasibleCandidate = errors.New("no feasible candidate found")

	// ErrNotEnumerable reports a parameter space that cannot be walked
	// exhaustively because at least one parameter is a range.
	ErrNotEnumerable = errors.New("space is not enumerable")
)

// ConfigurationError reports a malformed parameter space, engine option or
// output location. It is fatal and always surfaces before any evaluation.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConfigError builds a ConfigurationError for a named field.
func ConfigError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// EvaluationFault reports a single evaluator call that raised or timed out.
// Faults are absorbed into the run history as infeasible records and never
// halt the search.
type EvaluationFault struct {
	Cause string
	Err   error
}

func (e *EvaluationFault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluation fault: %s: %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("evaluation fault: %s", e.Cause)
}

func (e *EvaluationFault) Unwrap() error { return e.Err }

// PersistenceError reports a failed artifact write. The in-memory result is
// still returned to the caller alongside it.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
