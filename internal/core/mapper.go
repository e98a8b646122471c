package core

import (
	"context"
	"fmt"
	"strings"
)

// FieldMapper resolves spreadsheet headers to destination columns.
type FieldMapper struct {
	evolver *Evolver
	index   synonymIndex
}

// NewFieldMapper returns a mapper that creates columns through ev.
func NewFieldMapper(ev *Evolver) *FieldMapper {
	return &FieldMapper{evolver: ev, index: defaultSynonyms}
}

// Resolution is the resolved mapping of a batch, in header order.
type Resolution struct {
	Mappings []HeaderMapping
	Created  []string
}

// Destinations returns the non-skipped mappings.
func (r Resolution) Destinations() []HeaderMapping {
	out := make([]HeaderMapping, 0, len(r.Mappings))
	for _, m := range r.Mappings {
		if !m.Skipped() {
			out = append(out, m)
		}
	}
	return out
}

// Resolve fills in the destination of every header. Create instructions
// evolve the schema through tx and are appended to schema. Headers absent
// from userMapping are auto-detected.
func (fm *FieldMapper) Resolve(ctx context.Context, tx Tx, headers []string, userMapping map[string]HeaderMapping, schema *Schema) (Resolution, error) {
	res := Resolution{Mappings: make([]HeaderMapping, 0, len(headers))}

	for _, h := range headers {
		m, ok := userMapping[h]
		if !ok {
			m = HeaderMapping{Mode: ModeAuto}
		}
		m.SourceHeader = h

		switch m.Mode {
		case ModeUseExisting:
			if strings.TrimSpace(m.Destination) == "" {
				m.Destination = fm.Detect(h, schema)
				break
			}
			if strings.EqualFold(m.Destination, ReservedColumn) {
				return res, fmt.Errorf("header %q: %w: %q", h, ErrReservedColumn, m.Destination)
			}

		case ModeCreateNew:
			requested := m.NewName
			if strings.TrimSpace(requested) == "" {
				requested = SuggestColumnName(h)
			}
			name, err := SanitizeColumnName(requested)
			if err != nil {
				return res, fmt.Errorf("header %q: %w", h, err)
			}
			if !m.CreateType.Creatable() {
				m.CreateType = DefaultCreateType
			}
			if !schema.Has(name) {
				created, err := fm.evolver.EnsureColumn(ctx, tx, name, m.CreateType)
				if err != nil {
					return res, fmt.Errorf("header %q: %w", h, err)
				}
				schema.Add(ColumnDescriptor{Name: name, Type: m.CreateType})
				if created {
					res.Created = append(res.Created, name)
				}
			}
			m.Destination = name

		default:
			m.Destination = fm.Detect(h, schema)
		}

		res.Mappings = append(res.Mappings, m)
	}
	return res, nil
}

// Detect auto-detects the destination of header: visible labels first,
// then synonyms, then canonical field names, then existing columns.
// It returns "" when nothing matches.
func (fm *FieldMapper) Detect(header string, schema *Schema) string {
	key := NormalizeLabel(header)
	if key == "" {
		return ""
	}
	if field, ok := fm.index.lookup(key); ok {
		return field
	}
	if schema != nil {
		for _, name := range schema.Names() {
			if name == ReservedColumn {
				continue
			}
			if NormalizeLabel(name) == key {
				return name
			}
		}
	}
	return ""
}

// Suggest proposes a mapping per header for preview: detected headers map
// to their column, the rest to a new VARCHAR column named after the header.
func (fm *FieldMapper) Suggest(headers []string, schema *Schema) []HeaderMapping {
	out := make([]HeaderMapping, 0, len(headers))
	for _, h := range headers {
		if dest := fm.Detect(h, schema); dest != "" {
			out = append(out, HeaderMapping{SourceHeader: h, Mode: ModeUseExisting, Destination: dest})
			continue
		}
		m := HeaderMapping{SourceHeader: h, Mode: ModeCreateNew, CreateType: DefaultCreateType}
		if name, err := SanitizeColumnName(SuggestColumnName(h)); err == nil {
			m.NewName = name
		}
		out = append(out, m)
	}
	return out
}
