package models

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedBank      = errors.New("malformed question bank")
	ErrInvalidCount       = errors.New("invalid question count")
	ErrInvalidConfig      = errors.New("invalid test configuration")
	ErrInvalidState       = errors.New("operation not allowed in current session state")
	ErrInvalidOption      = errors.New("answer is not one of the question's options")
	ErrStorageUnavailable = errors.New("history storage unavailable")
	ErrIndexOutOfRange    = errors.New("history index out of range")
	ErrNotFound           = errors.New("not found")
	ErrNoBankLoaded       = errors.New("no question bank loaded")
)

// MalformedBankError is returned when a bank yields no usable question.
type MalformedBankError struct {
	Reason string
	Errors []string
}

func (e *MalformedBankError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%v: %s", ErrMalformedBank, e.Reason)
	}
	return fmt.Sprintf("%v: %s (%d rows rejected, first: %s)", ErrMalformedBank, e.Reason, len(e.Errors), e.Errors[0])
}

func (e *MalformedBankError) Unwrap() error { return ErrMalformedBank }

// InvalidCountError reports a question count outside [1, Available].
type InvalidCountError struct {
	Requested int
	Available int
}

func (e *InvalidCountError) Error() string {
	return fmt.Sprintf("%v: %d requested, must be between 1 and %d", ErrInvalidCount, e.Requested, e.Available)
}

func (e *InvalidCountError) Unwrap() error { return ErrInvalidCount }

// InvalidStateError reports an operation attempted in the wrong session state.
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %v (state %s)", e.Op, ErrInvalidState, e.State)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// StorageUnavailableError wraps a failed history read or write.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageUnavailable, e.Err)
}

func (e *StorageUnavailableError) Unwrap() []error { return []error{ErrStorageUnavailable, e.Err} }
