// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobradar/harvester/internal/harvest"
)

// dbPool is the subset of pgxpool.Pool the stores use; pgxmock implements it.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// ExtractionStore implements harvest.ExtractionStore over Postgres.
type ExtractionStore struct {
	pool dbPool
}

// NewExtractionStore connects a pool and builds the store.
func NewExtractionStore(ctx context.Context, dsn string) (*ExtractionStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ExtractionStore{pool: pool}, nil
}

// NewExtractionStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewExtractionStoreWithPool(pool dbPool) (*ExtractionStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ExtractionStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ExtractionStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateExtraction implements harvest.ExtractionStore.
func (s *ExtractionStore) CreateExtraction(ctx context.Context, ex harvest.Extraction) error {
	params, err := json.Marshal(ex.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	query := `
		INSERT INTO extractions (
			id, status, created_at, pages_target, pages_crawled,
			percentage_done, offers_limit, parameters, correlation_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = s.pool.Exec(ctx, query,
		ex.ID, string(ex.Status), ex.Created, ex.PagesTarget, ex.PagesCrawled,
		ex.PercentageDone, ex.OffersLimit, params, ex.CorrelationID)
	if err != nil {
		return fmt.Errorf("insert extraction: %w", err)
	}
	return nil
}

// UpdateProgress implements harvest.ExtractionStore.
func (s *ExtractionStore) UpdateProgress(ctx context.Context, id string, pagesCrawled int, percentage float64) error {
	query := `
		UPDATE extractions
		SET pages_crawled = $2, percentage_done = $3
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, pagesCrawled, percentage)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("extraction %s not found", id)
	}
	return nil
}

// Finish implements harvest.ExtractionStore.
func (s *ExtractionStore) Finish(ctx context.Context, id string, status harvest.ExtractionStatus, errText string, at time.Time) error {
	query := `
		UPDATE extractions
		SET status = $2, error_text = $3, finished_at = $4
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, string(status), errText, at)
	if err != nil {
		return fmt.Errorf("finish extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("extraction %s not found", id)
	}
	return nil
}

// GetExtraction implements harvest.ExtractionStore.
func (s *ExtractionStore) GetExtraction(ctx context.Context, id string) (harvest.Extraction, error) {
	query := `
		SELECT id, status, created_at, finished_at, pages_target, pages_crawled,
		       percentage_done, offers_limit, error_text, parameters, correlation_id
		FROM extractions
		WHERE id = $1`

	var (
		ex       harvest.Extraction
		status   string
		finished *time.Time
		params   []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&ex.ID, &status, &ex.Created, &finished, &ex.PagesTarget, &ex.PagesCrawled,
		&ex.PercentageDone, &ex.OffersLimit, &ex.ErrorText, &params, &ex.CorrelationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return harvest.Extraction{}, fmt.Errorf("extraction %s not found", id)
	}
	if err != nil {
		return harvest.Extraction{}, fmt.Errorf("select extraction: %w", err)
	}
	ex.Status = harvest.ExtractionStatus(status)
	ex.Finished = finished
	if len(params) > 0 {
		if err := json.Unmarshal(params, &ex.Parameters); err != nil {
			return harvest.Extraction{}, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	return ex, nil
}
