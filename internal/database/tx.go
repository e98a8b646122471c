package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/leadimport/internal/core"
)

// Tx is the import transaction. Column DDL runs inside it, so a rollback
// also discards columns created by the batch.
type Tx struct {
	tx pgx.Tx
}

// Columns reads the catalog as seen by this transaction.
func (t *Tx) Columns(ctx context.Context, table string) ([]core.ColumnDescriptor, error) {
	return listColumns(ctx, t.tx, table)
}

// ColumnExists checks the live catalog.
func (t *Tx) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, columnExistsSQL, table, column).Scan(&exists); err != nil {
		return false, fmt.Errorf("check column: %w", err)
	}
	return exists, nil
}

// AddColumn runs ALTER TABLE ... ADD COLUMN.
func (t *Tx) AddColumn(ctx context.Context, table string, col core.ColumnDescriptor) error {
	stmt, err := addColumnSQL(table, col)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("alter table: %w", err)
	}
	return nil
}

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (t *Tx) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (t *Tx) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

// WriteLead upserts (or, without a conflict column, inserts) one row.
// Errors the server raised for this statement alone wrap
// core.ErrRowRejected; anything else is returned as is.
func (t *Tx) WriteLead(ctx context.Context, w core.LeadWrite) (bool, error) {
	stmt, err := writeLeadSQL(w)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = t.tx.QueryRow(ctx, stmt, w.Values...).Scan(&inserted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && rowScoped(pgErr) {
			return false, fmt.Errorf("%w: %s (SQLSTATE %s)", core.ErrRowRejected, pgErr.Message, pgErr.Code)
		}
		return false, err
	}
	return inserted, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// rowScoped reports whether a server error concerns only the statement
// that raised it. Connection, resource, cancellation, transaction-state
// and internal errors abort the batch.
func rowScoped(e *pgconn.PgError) bool {
	if len(e.Code) < 2 {
		return false
	}
	switch e.Code[:2] {
	case "08", // connection exception
		"25", // invalid transaction state
		"40", // transaction rollback
		"53", // insufficient resources
		"57", // operator intervention (query_canceled, admin_shutdown)
		"58", // system error
		"XX": // internal error
		return false
	}
	return true
}
