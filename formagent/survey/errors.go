package survey

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrConfiguration = errors.New("survey: invalid configuration")
	ErrValidator     = errors.New("survey: answer validation failed")
	ErrInvariant     = errors.New("survey: state invariant violated")
	ErrTurnLimit     = errors.New("survey: turn limit exceeded")
)

// ConfigurationError reports an invalid form or model setting. It is always
// returned before any model call is made.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ValidatorFailure wraps a backend failure or an unusable model response.
// The state it was produced for is left unmodified.
type ValidatorFailure struct {
	QuestionIndex int
	Cause         error
}

func (e *ValidatorFailure) Error() string {
	return fmt.Sprintf("validator failure at question %d: %v", e.QuestionIndex, e.Cause)
}

func (e *ValidatorFailure) Unwrap() error { return e.Cause }

func (e *ValidatorFailure) Is(target error) bool { return target == ErrValidator }

// StateInvariantViolation signals a programming error in the state machine.
type StateInvariantViolation struct {
	Op     string
	Detail string
}

func (e *StateInvariantViolation) Error() string {
	return fmt.Sprintf("state invariant violated in %s: %s", e.Op, e.Detail)
}

func (e *StateInvariantViolation) Is(target error) bool { return target == ErrInvariant }

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func invariantErr(op, format string, args ...any) error {
	return &StateInvariantViolation{Op: op, Detail: fmt.Sprintf(format, args...)}
}
