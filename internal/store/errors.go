package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no stored document has the given filename.
	ErrNotFound = errors.New("workflow document not found")

	// ErrConflict indicates a document with the same filename already exists.
	ErrConflict = errors.New("workflow document already exists")

	// ErrMalformed indicates the raw bytes are not a workflow document object.
	ErrMalformed = errors.New("malformed workflow document")
)

// Error wraps a store failure with the operation and the document it concerns.
type Error struct {
	Op       string // List, Get, Create, Save, Delete
	Filename string
	Err      error
}

func (e *Error) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Filename, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, filename string, err error) *Error {
	return &Error{Op: op, Filename: filename, Err: err}
}
