package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/leadimport/internal/config"
	"github.com/JonMunkholm/leadimport/internal/logging"
)

// ImportRecorder observes finished imports, committed or not.
type ImportRecorder interface {
	ObserveImport(result ImportResult, err error, elapsed time.Duration)
	ObserveRejected()
}

// ImportNotifier is told about committed imports. Failures are logged and
// never undo the import.
type ImportNotifier interface {
	ImportCommitted(ctx context.Context, ev ImportEvent) error
}

// ImportEvent describes a committed import.
type ImportEvent struct {
	BatchID        string    `json:"batch_id"`
	Table          string    `json:"table"`
	Inserted       int       `json:"inserted"`
	Updated        int       `json:"updated"`
	Skipped        int       `json:"skipped"`
	Errors         int       `json:"errors"`
	ErrorRows      []int     `json:"error_rows"`
	CreatedColumns []string  `json:"created_columns"`
	Source         string    `json:"source,omitempty"`
	ClientIP       string    `json:"client_ip,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Importer      ImporterConfig
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
}

// NewServiceConfig derives service settings from the import config.
func NewServiceConfig(cfg config.ImportConfig) (ServiceConfig, error) {
	loc, err := cfg.Location()
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("import timezone %q: %w", cfg.Timezone, err)
	}
	return ServiceConfig{
		Importer: ImporterConfig{
			Table:          cfg.Table,
			ConflictColumn: cfg.ConflictColumn,
			MaxRows:        cfg.MaxRows,
			Location:       loc,
		},
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWait:       cfg.MaxWaitTime,
		Timeout:       cfg.Timeout,
	}, nil
}

// Service is the entry point for transports: it gates imports through the
// limiter, applies the import deadline, and serves lead lookups.
type Service struct {
	store    Store
	leads    LeadRepository
	importer *Importer
	limiter  *ImportLimiter
	timeout  time.Duration

	recorder ImportRecorder
	notifier ImportNotifier
}

// Option customizes a Service.
type Option func(*Service)

// WithRecorder sets the import recorder (metrics).
func WithRecorder(r ImportRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithNotifier sets the committed-import notifier (events).
func WithNotifier(n ImportNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService wires a service over store and leads.
func NewService(store Store, leads LeadRepository, cfg ServiceConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		leads:    leads,
		importer: NewImporter(store, cfg.Importer),
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout:  cfg.Timeout,
		recorder: nopRecorder{},
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the leads table name.
func (s *Service) Table() string {
	return s.importer.Table()
}

// ImportLeads runs one import. It returns ErrImportBusy when no slot frees
// up in time, otherwise the importer's result or *ImportError.
func (s *Service) ImportLeads(ctx context.Context, req ImportRequest) (ImportResult, error) {
	logger := logging.WithFields(ctx,
		"table", s.Table(),
		"rows", len(req.Rows),
		"source", SourceFromContext(ctx),
		"client_ip", ClientIPFromContext(ctx),
		"user_agent", UserAgentFromContext(ctx),
	)

	if err := s.limiter.Acquire(ctx); err != nil {
		s.recorder.ObserveRejected()
		logger.Warn("import rejected", "error", err)
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.importer.Import(ctx, req)
	elapsed := time.Since(start)
	s.recorder.ObserveImport(result, err, elapsed)

	if err != nil {
		logger.Error("import failed",
			"kind", KindOf(err).String(),
			"error", err,
			"duration_ms", elapsed.Milliseconds(),
		)
		return ImportResult{}, err
	}

	logger.Info("import committed",
		"batch_id", result.BatchID,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"rows", result.Total(),
		"created_columns", result.CreatedColumns,
		"duration_ms", elapsed.Milliseconds(),
	)

	ev := ImportEvent{
		BatchID:        result.BatchID,
		Table:          s.Table(),
		Inserted:       result.Inserted,
		Updated:        result.Updated,
		Skipped:        result.Skipped,
		Errors:         result.Errors,
		ErrorRows:      result.ErrorRows,
		CreatedColumns: result.CreatedColumns,
		Source:         SourceFromContext(ctx),
		ClientIP:       ClientIPFromContext(ctx),
		CompletedAt:    time.Now().UTC(),
	}
	if err := s.notifier.ImportCommitted(context.WithoutCancel(ctx), ev); err != nil {
		logger.Warn("import event not published", "batch_id", result.BatchID, "error", err)
	}

	return result, nil
}

// Columns describes the leads table.
func (s *Service) Columns(ctx context.Context) ([]ColumnDescriptor, error) {
	schema, err := s.importer.inspector.CurrentColumns(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return schema.Columns(), nil
}

// SuggestMapping auto-detects a mapping for headers against the current
// columns, proposing new columns for headers nothing matches.
func (s *Service) SuggestMapping(ctx context.Context, headers []string) ([]HeaderMapping, error) {
	schema, err := s.importer.inspector.CurrentColumns(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return s.importer.mapper.Suggest(headers, schema), nil
}

// GetLead returns one lead as column/value pairs.
func (s *Service) GetLead(ctx context.Context, id int64) (map[string]any, error) {
	lead, err := s.leads.GetLead(ctx, s.Table(), id)
	if err != nil {
		return nil, fmt.Errorf("get lead %d: %w", id, err)
	}
	return lead, nil
}

// DeleteLead deletes one lead.
func (s *Service) DeleteLead(ctx context.Context, id int64) error {
	if err := s.leads.DeleteLead(ctx, s.Table(), id); err != nil {
		return fmt.Errorf("delete lead %d: %w", id, err)
	}
	logging.FromContext(ctx).Info("lead deleted", "table", s.Table(), "id", id)
	return nil
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

type nopRecorder struct{}

func (nopRecorder) ObserveImport(ImportResult, error, time.Duration) {}
func (nopRecorder) ObserveRejected()                                 {}

type nopNotifier struct{}

func (nopNotifier) ImportCommitted(context.Context, ImportEvent) error { return nil }
