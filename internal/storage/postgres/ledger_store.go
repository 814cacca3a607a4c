package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobradar/harvester/internal/harvest"
)

// LedgerStore implements harvest.LedgerStore over Postgres. Entries are only
// ever inserted; the pipeline never deletes them.
type LedgerStore struct {
	pool dbPool
}

// NewLedgerStore connects a pool and builds the store.
func NewLedgerStore(ctx context.Context, dsn string) (*LedgerStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &LedgerStore{pool: pool}, nil
}

// NewLedgerStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewLedgerStoreWithPool(pool dbPool) (*LedgerStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &LedgerStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *LedgerStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Record implements harvest.LedgerStore.
func (s *LedgerStore) Record(ctx context.Context, entry harvest.LedgerEntry) error {
	query := `
		INSERT INTO message_ledger (id, handler, payload, created_at)
		VALUES ($1,$2,$3,$4)`
	if _, err := s.pool.Exec(ctx, query, entry.ID, entry.Handler, entry.Payload, entry.Created); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Seen implements harvest.LedgerStore.
func (s *LedgerStore) Seen(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM message_ledger WHERE id = $1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("select ledger entry: %w", err)
	}
	return exists, nil
}
