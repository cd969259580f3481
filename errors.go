package strmap

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing is returned by Get and Remove when the key is not present.
	ErrMissing = errors.New("key missing")
	// ErrOutOfMemory is returned when the slot array cannot grow.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrInvalidKey is returned for empty or over-length keys.
	ErrInvalidKey = errors.New("invalid key")
	// ErrDestroyed is returned by any operation on a destroyed table.
	ErrDestroyed = errors.New("table destroyed")
)

// OpError records the operation and key that caused an error.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("strmap: %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("strmap: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Status is the enumerated view of the errors returned by a Table.
type Status int

const (
	OK Status = iota
	Missing
	OutOfMemory
	InvalidKey
	Destroyed
	Unknown
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Missing:
		return "missing"
	case OutOfMemory:
		return "out of memory"
	case InvalidKey:
		return "invalid key"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// StatusOf maps an error returned by a Table method to its Status.
// A nil error is OK; errors not produced by this package are Unknown.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrMissing):
		return Missing
	case errors.Is(err, ErrOutOfMemory):
		return OutOfMemory
	case errors.Is(err, ErrInvalidKey):
		return InvalidKey
	case errors.Is(err, ErrDestroyed):
		return Destroyed
	default:
		return Unknown
	}
}
