// Package memory provides in-memory store implementations for tests and
// local runs.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jobradar/harvester/internal/harvest"
)

// ExtractionStore keeps extraction records in a map.
type ExtractionStore struct {
	mu      sync.Mutex
	records map[string]harvest.Extraction
}

// NewExtractionStore builds an empty store.
func NewExtractionStore() *ExtractionStore {
	return &ExtractionStore{records: make(map[string]harvest.Extraction)}
}

// CreateExtraction implements harvest.ExtractionStore.
func (s *ExtractionStore) CreateExtraction(_ context.Context, ex harvest.Extraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[ex.ID]; exists {
		return fmt.Errorf("extraction %s already exists", ex.ID)
	}
	s.records[ex.ID] = ex
	return nil
}

// UpdateProgress implements harvest.ExtractionStore.
func (s *ExtractionStore) UpdateProgress(_ context.Context, id string, pagesCrawled int, percentage float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.records[id]
	if !ok {
		return fmt.Errorf("extraction %s not found", id)
	}
	ex.PagesCrawled = pagesCrawled
	ex.PercentageDone = percentage
	s.records[id] = ex
	return nil
}

// Finish implements harvest.ExtractionStore.
func (s *ExtractionStore) Finish(_ context.Context, id string, status harvest.ExtractionStatus, errText string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.records[id]
	if !ok {
		return fmt.Errorf("extraction %s not found", id)
	}
	ex.Status = status
	ex.ErrorText = errText
	ex.Finished = &at
	s.records[id] = ex
	return nil
}

// GetExtraction implements harvest.ExtractionStore.
func (s *ExtractionStore) GetExtraction(_ context.Context, id string) (harvest.Extraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.records[id]
	if !ok {
		return harvest.Extraction{}, fmt.Errorf("extraction %s not found", id)
	}
	return ex, nil
}

// OfferStore keeps admitted offers keyed by natural key.
type OfferStore struct {
	mu    sync.Mutex
	byKey map[string]harvest.OfferRef
	saved []harvest.SearchResult
}

// NewOfferStore builds an empty store.
func NewOfferStore() *OfferStore {
	return &OfferStore{byKey: make(map[string]harvest.OfferRef)}
}

// FindByNaturalKey implements harvest.OfferStore.
func (s *OfferStore) FindByNaturalKey(_ context.Context, key string) (harvest.OfferRef, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.byKey[key]
	return ref, ok, nil
}

// SaveOffer implements harvest.OfferStore.
func (s *OfferStore) SaveOffer(_ context.Context, result harvest.SearchResult) (harvest.OfferRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := harvest.OfferRef{
		ID:        strconv.Itoa(len(s.saved) + 1),
		Source:    result.Source,
		DetailURL: result.DetailURL,
	}
	s.byKey[result.NaturalKey()] = ref
	s.saved = append(s.saved, result)
	return ref, nil
}

// Saved returns a copy of everything stored so far.
func (s *OfferStore) Saved() []harvest.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]harvest.SearchResult(nil), s.saved...)
}

// LedgerStore keeps ledger entries in a map.
type LedgerStore struct {
	mu      sync.Mutex
	entries map[string]harvest.LedgerEntry
}

// NewLedgerStore builds an empty ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{entries: make(map[string]harvest.LedgerEntry)}
}

// Record implements harvest.LedgerStore.
func (s *LedgerStore) Record(_ context.Context, entry harvest.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("ledger entry %s already exists", entry.ID)
	}
	s.entries[entry.ID] = entry
	return nil
}

// Seen implements harvest.LedgerStore.
func (s *LedgerStore) Seen(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok, nil
}

// BlobStore keeps archived payloads in a map.
type BlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewBlobStore builds an empty blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

// PutObject implements harvest.BlobStore.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = append([]byte(nil), data...)
	return "mem://" + path, nil
}

// Len reports how many objects were stored.
func (s *BlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
