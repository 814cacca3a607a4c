package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobradar/harvester/internal/harvest"
)

// OfferStore implements harvest.OfferStore over Postgres. The natural key
// carries a unique index; a concurrent duplicate insert surfaces as an error
// rather than a second row.
type OfferStore struct {
	pool dbPool
}

// NewOfferStore connects a pool and builds the store.
func NewOfferStore(ctx context.Context, dsn string) (*OfferStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &OfferStore{pool: pool}, nil
}

// NewOfferStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewOfferStoreWithPool(pool dbPool) (*OfferStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &OfferStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *OfferStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// FindByNaturalKey implements harvest.OfferStore.
func (s *OfferStore) FindByNaturalKey(ctx context.Context, key string) (harvest.OfferRef, bool, error) {
	query := `SELECT id, source, detail_url FROM offers WHERE natural_key = $1`
	var ref harvest.OfferRef
	err := s.pool.QueryRow(ctx, query, key).Scan(&ref.ID, &ref.Source, &ref.DetailURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return harvest.OfferRef{}, false, nil
	}
	if err != nil {
		return harvest.OfferRef{}, false, fmt.Errorf("select offer: %w", err)
	}
	return ref, true, nil
}

// SaveOffer implements harvest.OfferStore.
func (s *OfferStore) SaveOffer(ctx context.Context, result harvest.SearchResult) (harvest.OfferRef, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO offers (
			id, natural_key, source, external_id, title, description,
			detail_url, locations, company_name, company_locations, salary,
			contact_email, language, language_score, keywords, fetched_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err := s.pool.Exec(ctx, query,
		id, result.NaturalKey(), result.Source, result.ExternalID,
		result.Title, result.Description, result.DetailURL,
		result.Locations, result.CompanyName, result.CompanyLocations,
		result.Salary, result.ContactEmail, result.Language,
		result.LanguageScore, result.Keywords, result.FetchedAt)
	if err != nil {
		return harvest.OfferRef{}, fmt.Errorf("insert offer: %w", err)
	}
	return harvest.OfferRef{ID: id, Source: result.Source, DetailURL: result.DetailURL}, nil
}
