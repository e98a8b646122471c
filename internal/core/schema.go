package core

// schema.go holds the Schema Inspector and Schema Evolver.
//
// Column creation is driven by user input, so names pass through
// SanitizeColumnName and types through the SQLType enum before any DDL
// reaches the store.

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// MaxColumnNameLength is PostgreSQL's identifier limit (NAMEDATALEN-1).
const MaxColumnNameLength = 63

var disallowedNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// SanitizeColumnName turns a requested column name into a safe identifier.
//
// Rules:
//   - every run of characters outside [a-zA-Z0-9_] becomes one "_"
//   - leading and trailing "_" are trimmed
//   - the result is lowercased
//
// A result of "id" fails with ErrReservedColumn; an empty or overlong
// result fails with ErrInvalidColumnName.
func SanitizeColumnName(name string) (string, error) {
	s := disallowedNameChars.ReplaceAllString(name, "_")
	s = strings.ToLower(strings.Trim(s, "_"))

	switch {
	case s == "":
		return "", fmt.Errorf("%w: %q has no usable characters", ErrInvalidColumnName, name)
	case len(s) > MaxColumnNameLength:
		return "", fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidColumnName, s, MaxColumnNameLength)
	case s == ReservedColumn:
		return "", fmt.Errorf("%w: %q", ErrReservedColumn, ReservedColumn)
	}
	return s, nil
}

// Inspector reads the column snapshot of the leads table.
type Inspector struct {
	table string
}

// NewInspector returns an inspector for table.
func NewInspector(table string) *Inspector {
	return &Inspector{table: table}
}

// CurrentColumns reads the table's columns. An empty result is treated as
// a missing table.
func (in *Inspector) CurrentColumns(ctx context.Context, r SchemaReader) (*Schema, error) {
	cols, err := r.Columns(ctx, in.table)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaRetrieval, in.table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: table %q has no columns or does not exist", ErrSchemaRetrieval, in.table)
	}
	return NewSchema(cols), nil
}

// Evolver creates missing columns on the leads table.
type Evolver struct {
	table string
}

// NewEvolver returns an evolver for table.
func NewEvolver(table string) *Evolver {
	return &Evolver{table: table}
}

// EnsureColumn makes sure column name exists, creating it nullable with
// type t when the live catalog does not have it. It is idempotent; created
// reports whether DDL ran. name must already be sanitized.
func (e *Evolver) EnsureColumn(ctx context.Context, tx Tx, name string, t SQLType) (created bool, err error) {
	if strings.EqualFold(name, ReservedColumn) {
		return false, fmt.Errorf("%w: %q", ErrReservedColumn, name)
	}
	if !t.Creatable() {
		return false, fmt.Errorf("%w: %s", ErrDisallowedType, t)
	}

	exists, err := tx.ColumnExists(ctx, e.table, name)
	if err != nil {
		return false, fmt.Errorf("%w: check column %q: %v", ErrSchemaRetrieval, name, err)
	}
	if exists {
		return false, nil
	}

	if err := tx.AddColumn(ctx, e.table, ColumnDescriptor{Name: name, Type: t}); err != nil {
		return false, fmt.Errorf("add column %q: %w", name, err)
	}
	return true, nil
}
