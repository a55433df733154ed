package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by EntryStore.Load when no state has been saved.
	ErrNotFound = errors.New("state not found")
	// ErrConflict is returned by VersionedStore.SaveVersioned when the stored
	// version no longer matches the caller's expectation.
	ErrConflict = errors.New("state version conflict")
)

// ValidationError reports rejected input. State is never mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a store read or write failure. It is logged and
// recorded but never aborts an in-memory mutation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

// MalformedStateError reports a persisted blob that could not be decoded.
type MalformedStateError struct {
	Err error
}

func (e MalformedStateError) Error() string {
	return fmt.Sprintf("malformed state: %v", e.Err)
}

func (e MalformedStateError) Unwrap() error { return e.Err }
