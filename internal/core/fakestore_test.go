package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// fakeState is the committed content of the in-memory leads table.
type fakeState struct {
	columns []ColumnDescriptor
	rows    []map[string]any
}

func (s fakeState) clone() fakeState {
	out := fakeState{
		columns: append([]ColumnDescriptor(nil), s.columns...),
		rows:    make([]map[string]any, len(s.rows)),
	}
	for i, r := range s.rows {
		cp := make(map[string]any, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.rows[i] = cp
	}
	return out
}

func (s fakeState) hasColumn(name string) bool {
	for _, c := range s.columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// fakeStore is a Store with PostgreSQL-like transaction and savepoint
// behaviour, unique emails, and failure injection.
type fakeStore struct {
	state  fakeState
	nextID int64

	// failure injection
	columnsErr   error
	rejectEmails map[string]bool
	fatalOnWrite int // 1-based write call that fails with a connection error
	commitErr    error

	// observations
	writes    int
	ddl       []string
	commits   int
	rollbacks int
}

func newFakeStore(cols ...ColumnDescriptor) *fakeStore {
	return &fakeStore{state: fakeState{columns: cols}, nextID: 1}
}

// defaultLeadColumns mirrors the production leads table.
func defaultLeadColumns() []ColumnDescriptor {
	return []ColumnDescriptor{
		{Name: "id", Type: SQLTypeInt},
		{Name: FieldFirstName, Type: SQLTypeVarchar},
		{Name: FieldCompany, Type: SQLTypeVarchar},
		{Name: FieldPosition, Type: SQLTypeVarchar},
		{Name: FieldCountry, Type: SQLTypeVarchar},
		{Name: FieldEmail, Type: SQLTypeVarchar},
		{Name: FieldPhone, Type: SQLTypeVarchar},
		{Name: FieldStatus, Type: SQLTypeVarchar},
		{Name: FieldCreatedAt, Type: SQLTypeDateTime},
	}
}

func (f *fakeStore) Columns(_ context.Context, _ string) ([]ColumnDescriptor, error) {
	if f.columnsErr != nil {
		return nil, f.columnsErr
	}
	return append([]ColumnDescriptor(nil), f.state.columns...), nil
}

func (f *fakeStore) Begin(_ context.Context) (Tx, error) {
	return &fakeTx{store: f, work: f.state.clone(), savepoints: map[string]fakeState{}}, nil
}

func (f *fakeStore) rowByEmail(email string) map[string]any {
	for _, r := range f.state.rows {
		if r[FieldEmail] == email {
			return r
		}
	}
	return nil
}

type fakeTx struct {
	store      *fakeStore
	work       fakeState
	savepoints map[string]fakeState
	done       bool
}

func (t *fakeTx) Columns(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	if t.store.columnsErr != nil {
		return nil, t.store.columnsErr
	}
	return append([]ColumnDescriptor(nil), t.work.columns...), nil
}

func (t *fakeTx) ColumnExists(_ context.Context, _, column string) (bool, error) {
	return t.work.hasColumn(column), nil
}

func (t *fakeTx) AddColumn(_ context.Context, table string, col ColumnDescriptor) error {
	if t.work.hasColumn(col.Name) {
		return fmt.Errorf("%w: column %q of relation %q already exists", ErrRowRejected, col.Name, table)
	}
	t.store.ddl = append(t.store.ddl, fmt.Sprintf("ADD COLUMN %s %s NULL", col.Name, col.Type.DDL()))
	t.work.columns = append(t.work.columns, col)
	return nil
}

func (t *fakeTx) Savepoint(_ context.Context, name string) error {
	t.savepoints[name] = t.work.clone()
	return nil
}

func (t *fakeTx) RollbackToSavepoint(_ context.Context, name string) error {
	sp, ok := t.savepoints[name]
	if !ok {
		return fmt.Errorf("savepoint %q does not exist", name)
	}
	t.work = sp.clone()
	return nil
}

func (t *fakeTx) ReleaseSavepoint(_ context.Context, name string) error {
	if _, ok := t.savepoints[name]; !ok {
		return fmt.Errorf("savepoint %q does not exist", name)
	}
	delete(t.savepoints, name)
	return nil
}

func (t *fakeTx) WriteLead(_ context.Context, w LeadWrite) (bool, error) {
	t.store.writes++
	if t.store.fatalOnWrite > 0 && t.store.writes == t.store.fatalOnWrite {
		return false, errors.New("conn closed")
	}

	row := make(map[string]any, len(w.Columns))
	for i, c := range w.Columns {
		if !t.work.hasColumn(c) {
			return false, fmt.Errorf("%w: column %q does not exist", ErrRowRejected, c)
		}
		row[c] = w.Values[i]
	}

	email, _ := row[FieldEmail].(string)
	if t.store.rejectEmails[email] {
		return false, fmt.Errorf("%w: violates check constraint", ErrRowRejected)
	}

	for _, existing := range t.work.rows {
		if existing[FieldEmail] != email {
			continue
		}
		if w.ConflictColumn == "" {
			return false, fmt.Errorf("%w: duplicate key value violates unique constraint", ErrRowRejected)
		}
		for k, v := range row {
			existing[k] = v
		}
		return false, nil
	}

	row["id"] = t.store.nextID
	t.store.nextID++
	t.work.rows = append(t.work.rows, row)
	return true, nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	if t.done {
		return errors.New("tx is closed")
	}
	t.done = true
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.store.state = t.work
	t.store.commits++
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if t.done {
		return errors.New("tx is closed")
	}
	t.done = true
	t.store.rollbacks++
	return nil
}

// fakeLeads is a LeadRepository over a fakeStore.
type fakeLeads struct{ store *fakeStore }

func (l fakeLeads) Columns(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	return l.store.Columns(ctx, table)
}

func (l fakeLeads) GetLead(_ context.Context, _ string, id int64) (map[string]any, error) {
	for _, r := range l.store.state.rows {
		if r["id"] == id {
			return r, nil
		}
	}
	return nil, ErrLeadNotFound
}

func (l fakeLeads) DeleteLead(_ context.Context, _ string, id int64) error {
	rows := l.store.state.rows
	for i, r := range rows {
		if r["id"] == id {
			l.store.state.rows = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return ErrLeadNotFound
}

// countPlaceholders counts committed rows carrying generated emails.
func (f *fakeStore) countPlaceholders() int {
	n := 0
	for _, r := range f.state.rows {
		if s, _ := r[FieldEmail].(string); strings.HasPrefix(s, PlaceholderEmailPrefix) {
			n++
		}
	}
	return n
}
