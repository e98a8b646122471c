package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers test with errors.Is; messages double as
// patterns for MapError.
var (
	// ErrInvalidRequest marks malformed or incomplete import requests.
	ErrInvalidRequest = errors.New("invalid import request")

	// ErrReservedColumn is returned when a mapping targets the identifier column.
	ErrReservedColumn = errors.New("reserved column name")

	// ErrInvalidColumnName is returned when a create name sanitizes to nothing usable.
	ErrInvalidColumnName = errors.New("invalid column name")

	// ErrDisallowedType is returned for column types outside the allow-list.
	ErrDisallowedType = errors.New("column type not allowed")

	// ErrSchemaRetrieval wraps failures reading the table catalog.
	ErrSchemaRetrieval = errors.New("cannot read table schema")

	// ErrRowRejected is wrapped by stores around statement errors that only
	// affect the current row. Anything else aborts the import.
	ErrRowRejected = errors.New("row rejected by store")

	// ErrLeadNotFound is returned by lead lookups and deletes.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidLeadID is returned for ids that are not positive integers.
	ErrInvalidLeadID = errors.New("invalid lead id")
)

// ErrorKind classifies fatal import failures.
type ErrorKind int

const (
	// KindInput: the request itself was unusable; nothing was touched.
	KindInput ErrorKind = iota + 1
	// KindSchema: the schema could not be read or evolved; no rows were written.
	KindSchema
	// KindStore: the store failed mid-import; the transaction was rolled back.
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindSchema:
		return "schema"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// ImportError is the only error type Importer.Import returns. Every
// ImportError means nothing was committed.
type ImportError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func inputError(op string, err error) error {
	return &ImportError{Kind: KindInput, Op: op, Err: err}
}

func schemaError(op string, err error) error {
	return &ImportError{Kind: KindSchema, Op: op, Err: err}
}

func storeError(op string, err error) error {
	return &ImportError{Kind: KindStore, Op: op, Err: err}
}

// KindOf returns the kind of a fatal import error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return 0
}
