package core

import "context"

// SchemaReader lists the columns of a table. Satisfied by both the pool
// backed store and an import transaction.
type SchemaReader interface {
	Columns(ctx context.Context, table string) ([]ColumnDescriptor, error)
}

// Store is the relational store the import pipeline runs against.
type Store interface {
	SchemaReader
	Begin(ctx context.Context) (Tx, error)
}

// LeadWrite is a single parameterized write. An empty ConflictColumn
// means insert-only.
type LeadWrite struct {
	Table          string
	Columns        []string
	Values         []any
	ConflictColumn string
}

// Tx is the single transaction scope of one import. Only the Importer
// begins, commits, or rolls it back.
type Tx interface {
	SchemaReader

	// ColumnExists checks the live catalog, including changes made
	// earlier in this transaction.
	ColumnExists(ctx context.Context, table, column string) (bool, error)

	// AddColumn adds a nullable column with no default.
	AddColumn(ctx context.Context, table string, col ColumnDescriptor) error

	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error

	// WriteLead performs the write and reports whether a new row was
	// inserted (false means an existing row was updated). Statement
	// errors scoped to this row are wrapped with ErrRowRejected.
	WriteLead(ctx context.Context, w LeadWrite) (inserted bool, err error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// LeadRepository serves the lead lookups outside imports.
type LeadRepository interface {
	SchemaReader
	GetLead(ctx context.Context, table string, id int64) (map[string]any, error)
	DeleteLead(ctx context.Context, table string, id int64) error
}
