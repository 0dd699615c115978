package datastore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no entity exists at the requested key.
	ErrNotFound = errors.New("datastore: entity not found")

	// ErrAlreadyExists is returned when an insert-mode write hits an existing key.
	ErrAlreadyExists = errors.New("datastore: entity already exists")

	// ErrHasDependents is returned when deleting an entity that still has
	// dependent children. The check is caller-enforced, not store-enforced.
	ErrHasDependents = errors.New("datastore: entity has dependent children")
)

// MissingIdentifierError reports a key construction attempt with a missing
// required ancestor identifier. Always the caller's fault, never retried.
type MissingIdentifierError struct {
	// Field names the first missing identifier, checked left to right.
	Field string
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("datastore: missing identifier %q", e.Field)
}

// InvalidIdentifierError reports an identifier that cannot be encoded into a
// key path. Always the caller's fault, never retried.
type InvalidIdentifierError struct {
	Field string
	Value string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("datastore: invalid identifier %q for %s", e.Value, e.Field)
}

// PersistenceError wraps a failed call to the underlying store. The cause is
// carried unmodified; this layer does not retry or swallow it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("datastore: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
