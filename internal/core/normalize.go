package core

import (
	"fmt"
	"strings"
	"time"
)

// PlaceholderEmailPrefix starts every generated email.
const PlaceholderEmailPrefix = "no-email-"

// PlaceholderEmail returns the synthetic email for a row without one. The
// batch ID keeps placeholders distinct from earlier imports; the row index
// keeps them distinct within a batch.
func PlaceholderEmail(batchID string, rowIndex int) string {
	return fmt.Sprintf("%s%s-%d", PlaceholderEmailPrefix, batchID, rowIndex)
}

// RowNormalizer turns raw rows into LeadRecords for one batch.
type RowNormalizer struct {
	mappings []HeaderMapping
	schema   *Schema
	batchID  string
	loc      *time.Location
}

// NewRowNormalizer returns a normalizer over the resolved, non-skipped
// mappings of a batch.
func NewRowNormalizer(res Resolution, schema *Schema, batchID string, loc *time.Location) *RowNormalizer {
	if loc == nil {
		loc = time.Local
	}
	return &RowNormalizer{
		mappings: res.Destinations(),
		schema:   schema,
		batchID:  batchID,
		loc:      loc,
	}
}

// Normalize converts one raw row. rowIndex is 1-based and feeds the
// placeholder email. ok is false when the row carries no data and must be
// skipped.
func (n *RowNormalizer) Normalize(raw map[string]any, rowIndex int) (rec LeadRecord, ok bool) {
	rec = newLeadRecord()

	for _, m := range n.mappings {
		rec.Set(m.Destination, CellText(raw[m.SourceHeader]))
	}
	for _, f := range RequiredFields {
		if _, present := rec.Get(f); !present {
			rec.Set(f, "")
		}
	}

	if rec.Blank() {
		return LeadRecord{}, false
	}

	if status, _ := rec.Get(FieldStatus); !IsValidStatus(status) {
		rec.Set(FieldStatus, DefaultStatus)
	}

	if created, present := rec.Get(FieldCreatedAt); present {
		if ts, parsed := FormatTimestamp(created, n.loc); parsed {
			rec.Set(FieldCreatedAt, ts)
		} else {
			rec.Delete(FieldCreatedAt)
		}
	}

	if n.schema != nil && n.schema.Has(FieldActive) {
		if _, present := rec.Get(FieldActive); !present {
			rec.Set(FieldActive, "1")
		}
	}

	email, _ := rec.Get(FieldEmail)
	if email = strings.TrimSpace(email); email == "" {
		rec.Set(FieldEmail, PlaceholderEmail(n.batchID, rowIndex))
		rec.Placeholder = true
	} else {
		rec.Set(FieldEmail, email)
	}

	return rec, true
}
