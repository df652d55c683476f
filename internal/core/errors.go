package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCollection is returned when an export is requested while the
// register holds no records. No file is produced.
var ErrEmptyCollection = errors.New("nothing to export: empty collection")

// ErrNotFound is returned by lookups of an unknown record id.
var ErrNotFound = errors.New("record not found")

// ErrConfirmationRequired is returned by destructive requests that did not
// carry an explicit confirmation.
var ErrConfirmationRequired = errors.New("confirmation required")

// ErrFileTooLarge is returned when an import file exceeds the size limit.
var ErrFileTooLarge = errors.New("import file too large")

// ErrNoFile is returned when an import request carries no file.
var ErrNoFile = errors.New("no file provided")

// ErrInvalidRequest is returned for a request body that cannot be decoded.
var ErrInvalidRequest = errors.New("invalid request body")

var errNotObject = errors.New("record is not a json object")

// ParseError reports durable-slot or import content that is not a well-formed
// JSON array of records.
type ParseError struct {
	Source string // "slot" or "import"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error (%s): %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WriteWarning reports that the durable slot could not be written. It is not
// fatal: the in-memory change it accompanies has been applied and the Store
// stays the source of truth for the session.
type WriteWarning struct {
	Key string
	Err error
}

func (w *WriteWarning) Error() string {
	return fmt.Sprintf("write warning: slot %q not saved: %v", w.Key, w.Err)
}

func (w *WriteWarning) Unwrap() error {
	return w.Err
}

// IsWriteWarning reports whether err is (or wraps) a WriteWarning.
func IsWriteWarning(err error) bool {
	var w *WriteWarning
	return errors.As(err, &w)
}

// ValidationError lists required fields that were empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "required field missing: " + strings.Join(e.Fields, ", ")
}
