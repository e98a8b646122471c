package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leadimport/internal/config"
)

type recordingObserver struct {
	mu       sync.Mutex
	results  []ImportResult
	errs     []error
	rejected int
}

func (r *recordingObserver) ObserveImport(res ImportResult, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	r.errs = append(r.errs, err)
}

func (r *recordingObserver) ObserveRejected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

type recordingNotifier struct {
	events []ImportEvent
	err    error
}

func (n *recordingNotifier) ImportCommitted(_ context.Context, ev ImportEvent) error {
	n.events = append(n.events, ev)
	return n.err
}

func newTestService(store *fakeStore, opts ...Option) *Service {
	cfg := ServiceConfig{
		Importer:      ImporterConfig{Table: "leads", Location: time.UTC},
		MaxConcurrent: 1,
		MaxWait:       20 * time.Millisecond,
		Timeout:       time.Minute,
	}
	return NewService(store, fakeLeads{store: store}, cfg, opts...)
}

func TestService_ImportLeadsNotifiesAndRecords(t *testing.T) {
	store := newFakeStore(defaultLeadColumns()...)
	rec := &recordingObserver{}
	notifier := &recordingNotifier{}
	svc := newTestService(store, WithRecorder(rec), WithNotifier(notifier))

	req := mustRequest(t, basicColumns, []map[string]any{
		leadRow("Ana", "ana@x.com", "interesado"),
		leadRow("", "", ""),
	})
	ctx := ContextWithSource(ContextWithClient(context.Background(), "10.0.0.7", "curl/8.0"), "json")
	res, err := svc.ImportLeads(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, rec.results, 1)
	assert.NoError(t, rec.errs[0])

	require.Len(t, notifier.events, 1)
	ev := notifier.events[0]
	assert.Equal(t, res.BatchID, ev.BatchID)
	assert.Equal(t, "leads", ev.Table)
	assert.Equal(t, 1, ev.Inserted)
	assert.Equal(t, "json", ev.Source)
	assert.Equal(t, "10.0.0.7", ev.ClientIP)
	assert.False(t, ev.CompletedAt.IsZero())
}

func TestService_NotifierFailureKeepsImport(t *testing.T) {
	store := newFakeStore(defaultLeadColumns()...)
	notifier := &recordingNotifier{err: errors.New("broker unreachable")}
	svc := newTestService(store, WithNotifier(notifier))

	req := mustRequest(t, basicColumns, []map[string]any{leadRow("Ana", "ana@x.com", "")})
	res, err := svc.ImportLeads(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.NotNil(t, store.rowByEmail("ana@x.com"))
}

func TestService_FailedImportIsNotAnnounced(t *testing.T) {
	store := newFakeStore(defaultLeadColumns()...)
	store.commitErr = errors.New("connection reset by peer")
	rec := &recordingObserver{}
	notifier := &recordingNotifier{}
	svc := newTestService(store, WithRecorder(rec), WithNotifier(notifier))

	req := mustRequest(t, basicColumns, []map[string]any{leadRow("Ana", "ana@x.com", "")})
	_, err := svc.ImportLeads(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, KindStore, KindOf(err))

	assert.Empty(t, notifier.events)
	require.Len(t, rec.errs, 1)
	assert.Error(t, rec.errs[0])
}

func TestService_BusyWhenImportRunning(t *testing.T) {
	store := newFakeStore(defaultLeadColumns()...)
	rec := &recordingObserver{}
	svc := newTestService(store, WithRecorder(rec))

	require.NoError(t, svc.limiter.Acquire(context.Background()))
	defer svc.limiter.Release()

	req := mustRequest(t, basicColumns, []map[string]any{leadRow("Ana", "ana@x.com", "")})
	_, err := svc.ImportLeads(context.Background(), req)
	assert.ErrorIs(t, err, ErrImportBusy)
	assert.Equal(t, 1, rec.rejected)
	assert.Zero(t, store.writes)

	status := svc.LimiterStatus()
	assert.Equal(t, 1, status.Active)
}

func TestService_ColumnsAndSuggestions(t *testing.T) {
	store := newFakeStore(defaultLeadColumns()...)
	svc := newTestService(store)

	cols, err := svc.Columns(context.Background())
	require.NoError(t, err)
	assert.Len(t, cols, len(defaultLeadColumns()))
	assert.Equal(t, "id", cols[0].Name)

	suggested, err := svc.SuggestMapping(context.Background(), []string{"Correo", "Origen"})
	require.NoError(t, err)
	require.Len(t, suggested, 2)
	assert.Equal(t, FieldEmail, suggested[0].Destination)
	assert.Equal(t, "origen", suggested[1].NewName)

	store.columnsErr = errors.New("relation does not exist")
	_, err = svc.Columns(context.Background())
	assert.ErrorIs(t, err, ErrSchemaRetrieval)
}

func TestService_GetAndDeleteLead(t *testing.T) {
	store := newFakeStore(defaultLeadColumns()...)
	svc := newTestService(store)

	req := mustRequest(t, basicColumns, []map[string]any{leadRow("Ana", "ana@x.com", "")})
	_, err := svc.ImportLeads(context.Background(), req)
	require.NoError(t, err)

	lead, err := svc.GetLead(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", lead[FieldEmail])

	require.NoError(t, svc.DeleteLead(context.Background(), 1))

	_, err = svc.GetLead(context.Background(), 1)
	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.ErrorIs(t, svc.DeleteLead(context.Background(), 1), ErrLeadNotFound)
}

func TestService_WaitForImports(t *testing.T) {
	svc := newTestService(newFakeStore(defaultLeadColumns()...))
	require.NoError(t, svc.limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, svc.WaitForImports(ctx))

	svc.limiter.Release()
	assert.NoError(t, svc.WaitForImports(context.Background()))
}

func TestNewServiceConfig(t *testing.T) {
	cfg, err := NewServiceConfig(config.ImportConfig{
		Table:          "leads",
		ConflictColumn: "email",
		MaxRows:        10,
		MaxConcurrent:  2,
		MaxWaitTime:    time.Second,
		Timeout:        time.Minute,
		Timezone:       "UTC",
	})
	require.NoError(t, err)
	assert.Equal(t, "leads", cfg.Importer.Table)
	assert.Equal(t, time.UTC, cfg.Importer.Location)
	assert.Equal(t, 2, cfg.MaxConcurrent)

	_, err = NewServiceConfig(config.ImportConfig{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}
