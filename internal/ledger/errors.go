package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no entry exists for a key.
	ErrNotFound = errors.New("ledger entry not found")

	// ErrUnauthorized is returned by destructive operations without a session.
	ErrUnauthorized = errors.New("operation requires an authorized session")

	// ErrUnidentifiable is returned when a row has no code and no name.
	ErrUnidentifiable = errors.New("row has no code or name to identify it")

	// ErrPersistence matches every *PersistenceError via errors.Is.
	ErrPersistence = errors.New("ledger persistence failed")
)

// ValidationError reports an unacceptable quantity.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid quantity: %s", e.Reason)
	}
	return fmt.Sprintf("invalid quantity %q: %s", e.Input, e.Reason)
}

// IsValidationError returns true if err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError reports a failed read or write of the ledger snapshot.
// The in-memory ledger remains authoritative.
type PersistenceError struct {
	Op  string // "save" or "restore"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersistence) match.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
