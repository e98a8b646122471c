package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/leadimport/internal/core"
)

const columnsSQL = `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`

const columnExistsSQL = `SELECT EXISTS (
	SELECT 1 FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
)`

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// addColumnSQL builds the DDL for a new nullable column.
func addColumnSQL(table string, col core.ColumnDescriptor) (string, error) {
	if !col.Type.Creatable() {
		return "", fmt.Errorf("%w: %s", core.ErrDisallowedType, col.Type)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s NULL",
		quote(table), quote(col.Name), col.Type.DDL()), nil
}

// writeLeadSQL builds the insert for w. With a conflict column the insert
// becomes an upsert that overwrites every supplied column. The statement
// returns true for a fresh insert and false for an update.
func writeLeadSQL(w core.LeadWrite) (string, error) {
	if len(w.Columns) == 0 {
		return "", errors.New("write has no columns")
	}
	if len(w.Columns) != len(w.Values) {
		return "", fmt.Errorf("write has %d columns but %d values", len(w.Columns), len(w.Values))
	}

	cols := make([]string, len(w.Columns))
	params := make([]string, len(w.Columns))
	for i, c := range w.Columns {
		cols[i] = quote(c)
		params[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		quote(w.Table), strings.Join(cols, ", "), strings.Join(params, ", "))

	if w.ConflictColumn != "" {
		sets := make([]string, 0, len(w.Columns))
		for _, c := range w.Columns {
			if c == w.ConflictColumn {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", quote(c), quote(c)))
		}
		if len(sets) == 0 {
			q := quote(w.ConflictColumn)
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s",
			quote(w.ConflictColumn), strings.Join(sets, ", "))
	}

	b.WriteString(" RETURNING (xmax = 0)")
	return b.String(), nil
}

func selectLeadSQL(table string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", quote(table), quote(core.ReservedColumn))
}

func deleteLeadSQL(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", quote(table), quote(core.ReservedColumn))
}
