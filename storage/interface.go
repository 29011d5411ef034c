package storage

import (
	"github.com/safing/ledgerbase/iterator"
)

// Interface defines the ordered key-value store API the ledger consumes.
// Every call is expected to be atomic on its own.
type Interface interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Put stores value at key, overwriting any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Scan returns a cursor over all entries with start <= key < end, in
	// ascending key order. An empty end means no upper bound.
	Scan(start, end string) (*iterator.Iterator, error)
	// Shutdown releases the storage.
	Shutdown() error
}

// Condition is a precondition on the current value of a key.
type Condition uint8

// Conditions.
const (
	// IfAbsent holds if the key has no value or a zero-length value.
	IfAbsent Condition = iota + 1
	// IfPresent holds if the key has a non-empty value.
	IfPresent
)

func (c Condition) String() string {
	switch c {
	case IfAbsent:
		return "if-absent"
	case IfPresent:
		return "if-present"
	default:
		return "invalid"
	}
}

// Holds reports whether the condition is met by current, the value
// currently stored (nil if there is none).
func (c Condition) Holds(current []byte) bool {
	switch c {
	case IfAbsent:
		return len(current) == 0
	case IfPresent:
		return len(current) > 0
	default:
		return false
	}
}

// Conditional is implemented by storages that can check a condition and
// write in one atomic step.
type Conditional interface {
	// PutIf stores value at key if cond holds, otherwise it returns ErrConditionFailed.
	PutIf(key string, value []byte, cond Condition) error
	// DeleteIf removes key if cond holds, otherwise it returns ErrConditionFailed.
	DeleteIf(key string, cond Condition) error
}

// Maintainer is implemented by storages that need periodic housekeeping,
// such as compaction or garbage collection.
type Maintainer interface {
	Maintain() error
}

// Wrapper is implemented by storages that wrap another storage.
type Wrapper interface {
	Unwrap() Interface
}

// AsMaintainer returns the first storage in the wrapping chain of s that
// implements Maintainer.
func AsMaintainer(s Interface) (Maintainer, bool) {
	for s != nil {
		if m, ok := s.(Maintainer); ok {
			return m, true
		}
		w, ok := s.(Wrapper)
		if !ok {
			break
		}
		s = w.Unwrap()
	}
	return nil, false
}

// InRange reports whether key lies within [start, end). An empty end means no upper bound.
func InRange(key, start, end string) bool {
	if key < start {
		return false
	}
	return end == "" || key < end
}

// CheckKey returns ErrInvalidKey for keys that cannot be stored.
func CheckKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}

// CheckRange returns ErrInvalidRange if end is set and not after start.
func CheckRange(start, end string) error {
	if end != "" && end <= start {
		return ErrInvalidRange
	}
	return nil
}
