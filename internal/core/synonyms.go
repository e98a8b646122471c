package core

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// leadField describes how spreadsheet headers may refer to a canonical field.
type leadField struct {
	Field    string
	Label    string
	Synonyms []string
}

// leadFieldCatalog is ordered: when two fields claim the same spelling,
// the earlier field wins.
var leadFieldCatalog = []leadField{
	{FieldFirstName, "Nombre Completo", []string{"nombre", "nombre completo", "first_name", "nombrecompleto", "nombre y apellidos", "contacto", "cliente"}},
	{FieldCompany, "Empresa", []string{"empresa", "compañia", "compania", "company", "organizacion", "organización", "negocio"}},
	{FieldPosition, "Puesto", []string{"puesto", "cargo", "position", "rol"}},
	{FieldCountry, "País", []string{"pais", "país", "country", "nacionalidad"}},
	{FieldEmail, "Email", []string{"email", "correo", "correo electronico", "e-mail", "mail"}},
	{FieldPhone, "Teléfono", []string{"telefono", "teléfono", "tel", "phone", "movil", "móvil", "mobile", "cel", "celular", "whatsapp"}},
	{FieldStatus, "Estado", []string{"estado", "estatus", "status"}},
	{FieldCreatedAt, "Creado", []string{"creado", "fecha", "fecha de creacion", "fecha creación", "created", "created_at", "fecha_creado", "creado el"}},
}

// synonymIndex maps normalized spellings to canonical fields. It is built
// once and never mutated.
type synonymIndex struct {
	labels   map[string]string
	synonyms map[string]string
	fields   map[string]string
}

var defaultSynonyms = newSynonymIndex(leadFieldCatalog)

func newSynonymIndex(catalog []leadField) synonymIndex {
	idx := synonymIndex{
		labels:   make(map[string]string),
		synonyms: make(map[string]string),
		fields:   make(map[string]string),
	}
	claim := func(m map[string]string, key, field string) {
		if key == "" {
			return
		}
		if _, taken := m[key]; !taken {
			m[key] = field
		}
	}
	for _, f := range catalog {
		claim(idx.labels, NormalizeLabel(f.Label), f.Field)
		for _, s := range f.Synonyms {
			claim(idx.synonyms, NormalizeLabel(s), f.Field)
		}
		claim(idx.fields, NormalizeLabel(f.Field), f.Field)
	}
	return idx
}

// lookup applies labels, then synonyms, then raw field names.
func (idx synonymIndex) lookup(normalized string) (string, bool) {
	for _, m := range []map[string]string{idx.labels, idx.synonyms, idx.fields} {
		if field, ok := m[normalized]; ok {
			return field, true
		}
	}
	return "", false
}

var nonWordRuns = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// NormalizeLabel folds a header for matching: decomposes and strips
// diacritics, lowercases, and collapses non-word runs to single spaces.
// "  Teléfono-Móvil " becomes "telefono movil".
func NormalizeLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonWordRuns.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// SuggestColumnName derives a create name from a header the same way the
// import dialog does: normalized label with spaces turned into "_".
func SuggestColumnName(header string) string {
	return strings.ReplaceAll(NormalizeLabel(header), " ", "_")
}
