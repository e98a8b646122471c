package core

import (
	"fmt"
	"strings"
)

// SQLType is the closed set of column types an import may create.
// The zero value is SQLTypeOther, which describes pre-existing columns
// whose catalog type is outside the set; it can never be created.
type SQLType int

const (
	SQLTypeOther SQLType = iota
	SQLTypeVarchar
	SQLTypeText
	SQLTypeDate
	SQLTypeDateTime
	SQLTypeInt
	SQLTypeDecimal
)

// DefaultCreateType is used when a create instruction names no type.
const DefaultCreateType = SQLTypeVarchar

// sqlTypeInfo holds the wire name and the PostgreSQL DDL for each type.
var sqlTypeInfo = map[SQLType]struct {
	wire string
	ddl  string
}{
	SQLTypeVarchar:  {"VARCHAR(255)", "VARCHAR(255)"},
	SQLTypeText:     {"TEXT", "TEXT"},
	SQLTypeDate:     {"DATE", "DATE"},
	SQLTypeDateTime: {"DATETIME", "TIMESTAMP"},
	SQLTypeInt:      {"INT", "INTEGER"},
	SQLTypeDecimal:  {"DECIMAL(10,2)", "NUMERIC(10,2)"},
}

// AllowedSQLTypes lists the creatable types in the order clients show them.
func AllowedSQLTypes() []SQLType {
	return []SQLType{SQLTypeVarchar, SQLTypeText, SQLTypeDate, SQLTypeDateTime, SQLTypeInt, SQLTypeDecimal}
}

// ParseSQLType converts a client supplied type name into an SQLType.
// Matching ignores case and whitespace; a blank name yields DefaultCreateType.
func ParseSQLType(s string) (SQLType, error) {
	key := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if key == "" {
		return DefaultCreateType, nil
	}
	for _, t := range AllowedSQLTypes() {
		if sqlTypeInfo[t].wire == key {
			return t, nil
		}
	}
	return SQLTypeOther, fmt.Errorf("%w: %q", ErrDisallowedType, s)
}

// String returns the wire name (e.g. "VARCHAR(255)").
func (t SQLType) String() string {
	if info, ok := sqlTypeInfo[t]; ok {
		return info.wire
	}
	return "OTHER"
}

// DDL returns the PostgreSQL column type used in ALTER TABLE.
func (t SQLType) DDL() string {
	return sqlTypeInfo[t].ddl
}

// Creatable reports whether t may be used to create a column.
func (t SQLType) Creatable() bool {
	_, ok := sqlTypeInfo[t]
	return ok
}

// IsText reports whether blank values are stored as empty strings
// rather than NULL.
func (t SQLType) IsText() bool {
	return t == SQLTypeVarchar || t == SQLTypeText
}

// MarshalText renders the wire name for JSON encoding.
func (t SQLType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// SQLTypeFromCatalog maps an information_schema data_type to an SQLType.
func SQLTypeFromCatalog(dataType string) SQLType {
	switch strings.ToLower(strings.TrimSpace(dataType)) {
	case "character varying", "character", "varchar", "char":
		return SQLTypeVarchar
	case "text":
		return SQLTypeText
	case "date":
		return SQLTypeDate
	case "timestamp without time zone", "timestamp with time zone", "timestamp":
		return SQLTypeDateTime
	case "integer", "bigint", "smallint":
		return SQLTypeInt
	case "numeric", "decimal", "double precision", "real":
		return SQLTypeDecimal
	default:
		return SQLTypeOther
	}
}
