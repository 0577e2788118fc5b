package relay

import (
	"errors"
	"fmt"
)

// Validation failures. Callers map these to 4xx responses or an "error"
// push event on the submitting connection.
var (
	ErrEmptyMessage = errors.New("message text is required")
	ErrTooLong      = errors.New("message text exceeds maximum length")
)

// PersistError wraps a store failure during submit. Nothing is broadcast
// when it occurs; callers map it to a 5xx response.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist message: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a caller-input problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrTooLong)
}
