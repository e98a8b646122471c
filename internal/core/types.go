package core

import (
	"strings"
)

// ReservedColumn is the identifier column. Imports never create or write it.
const ReservedColumn = "id"

// Canonical lead fields every stored record carries.
const (
	FieldFirstName = "first_name"
	FieldCompany   = "company"
	FieldPosition  = "position"
	FieldCountry   = "country"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldStatus    = "status"
	FieldCreatedAt = "created_at"
	FieldActive    = "active"
)

// RequiredFields are defaulted to "" when a row does not supply them.
var RequiredFields = []string{
	FieldFirstName, FieldCompany, FieldPosition, FieldCountry,
	FieldEmail, FieldPhone, FieldStatus,
}

// Lead statuses.
const (
	StatusInteresado = "interesado"
	StatusAplazados  = "aplazados"
	StatusEnCurso    = "en_curso"
	StatusCompletado = "completado"
)

// DefaultStatus replaces any status outside the canonical set.
const DefaultStatus = StatusInteresado

// IsValidStatus reports whether s is one of the canonical statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusInteresado, StatusAplazados, StatusEnCurso, StatusCompletado:
		return true
	}
	return false
}

// ColumnDescriptor describes one column of the leads table.
type ColumnDescriptor struct {
	Name string  `json:"name"`
	Type SQLType `json:"type"`
}

// Schema is the column snapshot taken at the start of an import. Columns
// are only ever added to it during a batch.
type Schema struct {
	columns map[string]ColumnDescriptor
	order   []string
}

// NewSchema builds a snapshot from catalog columns.
func NewSchema(cols []ColumnDescriptor) *Schema {
	s := &Schema{columns: make(map[string]ColumnDescriptor, len(cols))}
	for _, c := range cols {
		s.Add(c)
	}
	return s
}

// Add records a column; existing entries are kept.
func (s *Schema) Add(c ColumnDescriptor) {
	if _, ok := s.columns[c.Name]; ok {
		return
	}
	s.columns[c.Name] = c
	s.order = append(s.order, c.Name)
}

// Has reports whether the column exists.
func (s *Schema) Has(name string) bool {
	_, ok := s.columns[name]
	return ok
}

// Column returns the descriptor for name.
func (s *Schema) Column(name string) (ColumnDescriptor, bool) {
	c, ok := s.columns[name]
	return c, ok
}

// Names returns column names in catalog order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Columns returns descriptors in catalog order.
func (s *Schema) Columns() []ColumnDescriptor {
	out := make([]ColumnDescriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.columns[name])
	}
	return out
}

// MappingMode says how a header's destination is chosen.
type MappingMode int

const (
	// ModeAuto resolves the destination by label and synonym matching.
	ModeAuto MappingMode = iota
	// ModeUseExisting writes into the named column as given.
	ModeUseExisting
	// ModeCreateNew writes into a column created on demand.
	ModeCreateNew
)

func (m MappingMode) String() string {
	switch m {
	case ModeUseExisting:
		return "use_existing"
	case ModeCreateNew:
		return "create_new"
	default:
		return "auto"
	}
}

// HeaderMapping is the instruction, and after resolution the outcome, for
// one spreadsheet header. An empty Destination after resolution means the
// header is skipped.
type HeaderMapping struct {
	SourceHeader string
	Mode         MappingMode
	Destination  string
	NewName      string
	CreateType   SQLType
}

// Skipped reports whether the header contributes no column.
func (m HeaderMapping) Skipped() bool {
	return m.Destination == ""
}

// Instruction renders the mapping in the wire shape clients submit back.
func (m HeaderMapping) Instruction() ColumnInstruction {
	ci := ColumnInstruction{SourceHeader: m.SourceHeader}
	switch m.Mode {
	case ModeCreateNew:
		ci.CreateIfMissing = true
		ci.CreateType = m.CreateType.String()
		ci.NewName = m.NewName
		if m.Destination != "" {
			ci.NewName = m.Destination
		}
	default:
		ci.DBField = m.Destination
	}
	return ci
}

// ColumnInstruction is one entry of the request's columnsMap.
type ColumnInstruction struct {
	SourceHeader    string `json:"sourceHeader"`
	DBField         string `json:"dbField"`
	CreateIfMissing bool   `json:"createIfMissing"`
	CreateType      string `json:"createType"`
	NewName         string `json:"newName"`
}

// ToHeaderMapping converts the wire instruction. dbField wins over
// createIfMissing; neither means auto-detection.
func (ci ColumnInstruction) ToHeaderMapping() (HeaderMapping, error) {
	m := HeaderMapping{SourceHeader: ci.SourceHeader}
	switch {
	case strings.TrimSpace(ci.DBField) != "":
		m.Mode = ModeUseExisting
		m.Destination = strings.TrimSpace(ci.DBField)
	case ci.CreateIfMissing:
		t, err := ParseSQLType(ci.CreateType)
		if err != nil {
			return m, err
		}
		m.Mode = ModeCreateNew
		m.NewName = ci.NewName
		m.CreateType = t
	default:
		m.Mode = ModeAuto
	}
	return m, nil
}

// ImportRequest is one batch submitted for import. Headers fixes the
// processing order; Mappings is keyed by header.
type ImportRequest struct {
	Headers  []string
	Mappings map[string]HeaderMapping
	Rows     []map[string]any
}

// NewImportRequest builds a request from the wire columnsMap and rows.
// A disallowed create type is a schema error; duplicate headers keep the
// last instruction.
func NewImportRequest(columns []ColumnInstruction, rows []map[string]any) (ImportRequest, error) {
	req := ImportRequest{
		Mappings: make(map[string]HeaderMapping, len(columns)),
		Rows:     rows,
	}
	for _, ci := range columns {
		m, err := ci.ToHeaderMapping()
		if err != nil {
			return ImportRequest{}, schemaError("column "+ci.SourceHeader, err)
		}
		if _, seen := req.Mappings[ci.SourceHeader]; !seen {
			req.Headers = append(req.Headers, ci.SourceHeader)
		}
		req.Mappings[ci.SourceHeader] = m
	}
	return req, nil
}

// LeadRecord is one normalized row ready for storage. Column order is
// insertion order so generated statements are deterministic.
type LeadRecord struct {
	order  []string
	values map[string]string

	// Placeholder is set when the email was generated; such rows are
	// insert-only.
	Placeholder bool
}

func newLeadRecord() LeadRecord {
	return LeadRecord{values: make(map[string]string)}
}

// Set assigns a column value, keeping the column's first position.
func (r *LeadRecord) Set(col, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[col]; !ok {
		r.order = append(r.order, col)
	}
	r.values[col] = value
}

// Get returns a column value.
func (r LeadRecord) Get(col string) (string, bool) {
	v, ok := r.values[col]
	return v, ok
}

// Delete removes a column so the store default applies.
func (r *LeadRecord) Delete(col string) {
	if _, ok := r.values[col]; !ok {
		return
	}
	delete(r.values, col)
	for i, c := range r.order {
		if c == col {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Columns returns the record's columns in insertion order.
func (r LeadRecord) Columns() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Blank reports whether every value is empty after trimming.
func (r LeadRecord) Blank() bool {
	for _, v := range r.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ImportResult aggregates the outcome of one committed import.
type ImportResult struct {
	BatchID        string   `json:"batch_id"`
	Inserted       int      `json:"inserted"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         int      `json:"errors"`
	ErrorRows      []int    `json:"error_rows"`
	CreatedColumns []string `json:"created_columns"`
}

// Total returns the number of rows accounted for.
func (r ImportResult) Total() int {
	return r.Inserted + r.Updated + r.Skipped + r.Errors
}
