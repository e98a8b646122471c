// Package database implements the import store on PostgreSQL with pgx.
//
// Every statement that embeds an identifier quotes it with
// pgx.Identifier; values always travel as parameters.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/leadimport/internal/config"
	"github.com/JonMunkholm/leadimport/internal/core"
)

// querier is the statement surface shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a core.Store and core.LeadRepository over a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ core.Store          = (*Store)(nil)
	_ core.LeadRepository = (*Store)(nil)
	_ core.Tx             = (*Tx)(nil)
)

// Open connects a pool with the configured limits and verifies it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Columns lists the table's columns in ordinal order.
func (s *Store) Columns(ctx context.Context, table string) ([]core.ColumnDescriptor, error) {
	return listColumns(ctx, s.pool, table)
}

// Begin opens the import transaction.
func (s *Store) Begin(ctx context.Context) (core.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// GetLead returns one row as column/value pairs.
func (s *Store) GetLead(ctx context.Context, table string, id int64) (map[string]any, error) {
	rows, err := s.pool.Query(ctx, selectLeadSQL(table), id)
	if err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}
	lead, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	return lead, nil
}

// DeleteLead removes one row.
func (s *Store) DeleteLead(ctx context.Context, table string, id int64) error {
	tag, err := s.pool.Exec(ctx, deleteLeadSQL(table), id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrLeadNotFound
	}
	return nil
}

func listColumns(ctx context.Context, q querier, table string) ([]core.ColumnDescriptor, error) {
	rows, err := q.Query(ctx, columnsSQL, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ColumnDescriptor, error) {
		var name, dataType string
		if err := row.Scan(&name, &dataType); err != nil {
			return core.ColumnDescriptor{}, err
		}
		return core.ColumnDescriptor{Name: name, Type: core.SQLTypeFromCatalog(dataType)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan columns: %w", err)
	}
	return cols, nil
}
