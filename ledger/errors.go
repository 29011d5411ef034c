package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to match an *Error against them.
var (
	ErrAlreadyExists = errors.New("record already exists")
	ErrNotFound      = errors.New("record does not exist")
	ErrCorruptRecord = errors.New("record is corrupt")
	ErrInvalidKey    = errors.New("invalid key")
	ErrClosed        = errors.New("ledger is closed")
)

// Operation names.
const (
	OpExists    = "exists"
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpEnumerate = "enumerate"
	OpMaintain  = "maintain"
)

// Error is a failed precondition of a ledger operation. It names the
// operation, the offending key and the kind of failure.
type Error struct {
	Op   string
	Key  string
	Kind error
	Err  error
}

func newError(op, key string, kind, cause error) *Error {
	return &Error{
		Op:   op,
		Key:  key,
		Kind: kind,
		Err:  cause,
	}
}

func (e *Error) Error() string {
	subject := e.Op
	if e.Key != "" {
		subject += " " + e.Key
	}
	if e.Err != nil {
		return fmt.Sprintf("ledger: %s: %s: %s", subject, e.Kind, e.Err)
	}
	return fmt.Sprintf("ledger: %s: %s", subject, e.Kind)
}

// Is reports whether target is the kind of the error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// storeError adds operation context to a storage failure without hiding it.
func storeError(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("ledger: %s: %w", op, err)
	}
	return fmt.Errorf("ledger: %s %s: %w", op, key, err)
}
