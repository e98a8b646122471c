package core

// importer.go runs one batch import inside a single transaction.
//
// Flow:
//  1. Begin the transaction and snapshot the columns.
//  2. Resolve the mapping, creating columns as needed. DDL runs inside the
//     transaction, so a fatal rollback also drops columns created here.
//  3. Normalize and write each row behind its own savepoint; a row the
//     store rejects is rolled back to the savepoint and recorded.
//  4. Commit once.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultConflictColumn is the natural key imports upsert on.
const DefaultConflictColumn = FieldEmail

// ImporterConfig configures an Importer.
type ImporterConfig struct {
	Table          string
	ConflictColumn string
	MaxRows        int // 0 means unlimited
	Location       *time.Location
}

// Importer is the batch importer for the leads table.
type Importer struct {
	store     Store
	cfg       ImporterConfig
	inspector *Inspector
	mapper    *FieldMapper

	newBatchID func() string
}

// NewImporter returns an importer writing through store.
func NewImporter(store Store, cfg ImporterConfig) *Importer {
	if cfg.ConflictColumn == "" {
		cfg.ConflictColumn = DefaultConflictColumn
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Importer{
		store:      store,
		cfg:        cfg,
		inspector:  NewInspector(cfg.Table),
		mapper:     NewFieldMapper(NewEvolver(cfg.Table)),
		newBatchID: func() string { return uuid.NewString() },
	}
}

// Table returns the target table name.
func (im *Importer) Table() string {
	return im.cfg.Table
}

// Import runs req as one all-or-nothing batch. Rows the store rejects are
// counted in the result and never abort the batch. Any returned error is an
// *ImportError and means nothing was committed.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if err := im.validate(req); err != nil {
		return ImportResult{}, inputError("validate request", err)
	}

	result := ImportResult{
		BatchID:        im.newBatchID(),
		ErrorRows:      []int{},
		CreatedColumns: []string{},
	}

	tx, err := im.store.Begin(ctx)
	if err != nil {
		return ImportResult{}, storeError("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	schema, err := im.inspector.CurrentColumns(ctx, tx)
	if err != nil {
		return ImportResult{}, schemaError("read columns", err)
	}

	res, err := im.mapper.Resolve(ctx, tx, req.Headers, req.Mappings, schema)
	if err != nil {
		return ImportResult{}, schemaError("resolve mapping", err)
	}
	result.CreatedColumns = append(result.CreatedColumns, res.Created...)

	normalizer := NewRowNormalizer(res, schema, result.BatchID, im.cfg.Location)

	for i, raw := range req.Rows {
		rowIndex := i + 1

		if err := ctx.Err(); err != nil {
			return ImportResult{}, storeError(fmt.Sprintf("row %d", rowIndex), err)
		}

		rec, ok := normalizer.Normalize(raw, rowIndex)
		if !ok {
			result.Skipped++
			continue
		}

		inserted, err := im.writeRow(ctx, tx, schema, rec, rowIndex)
		if errors.Is(err, ErrRowRejected) {
			result.Errors++
			result.ErrorRows = append(result.ErrorRows, rowIndex)
			continue
		}
		if err != nil {
			return ImportResult{}, storeError(fmt.Sprintf("row %d", rowIndex), err)
		}

		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ImportResult{}, storeError("commit", err)
	}
	committed = true

	return result, nil
}

// writeRow writes one record behind a savepoint. A rejected row is rolled
// back to the savepoint and its error returned wrapping ErrRowRejected;
// any other error is fatal for the batch.
func (im *Importer) writeRow(ctx context.Context, tx Tx, schema *Schema, rec LeadRecord, rowIndex int) (bool, error) {
	sp := fmt.Sprintf("sp_%d", rowIndex)
	if err := tx.Savepoint(ctx, sp); err != nil {
		return false, fmt.Errorf("create savepoint: %w", err)
	}

	inserted, err := tx.WriteLead(ctx, im.buildWrite(schema, rec))
	if err != nil {
		if !errors.Is(err, ErrRowRejected) {
			return false, err
		}
		if rbErr := tx.RollbackToSavepoint(ctx, sp); rbErr != nil {
			return false, fmt.Errorf("rollback to savepoint: %w", rbErr)
		}
		return false, err
	}

	if err := tx.ReleaseSavepoint(ctx, sp); err != nil {
		return false, fmt.Errorf("release savepoint: %w", err)
	}
	return inserted, nil
}

// buildWrite turns a record into a parameterized write. Blank values in
// non-text columns become NULL. Placeholder rows never upsert.
func (im *Importer) buildWrite(schema *Schema, rec LeadRecord) LeadWrite {
	cols := rec.Columns()
	w := LeadWrite{
		Table:   im.cfg.Table,
		Columns: cols,
		Values:  make([]any, len(cols)),
	}
	for i, c := range cols {
		v, _ := rec.Get(c)
		if desc, ok := schema.Column(c); ok && v == "" && !desc.Type.IsText() {
			w.Values[i] = nil
			continue
		}
		w.Values[i] = v
	}
	if !rec.Placeholder {
		w.ConflictColumn = im.cfg.ConflictColumn
	}
	return w
}

func (im *Importer) validate(req ImportRequest) error {
	if req.Rows == nil {
		return fmt.Errorf("%w: rows missing", ErrInvalidRequest)
	}
	if im.cfg.MaxRows > 0 && len(req.Rows) > im.cfg.MaxRows {
		return fmt.Errorf("%w: %d rows exceeds limit of %d", ErrInvalidRequest, len(req.Rows), im.cfg.MaxRows)
	}
	return nil
}
