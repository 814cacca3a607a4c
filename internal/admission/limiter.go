package admission

import (
	"sync"

	"github.com/jobradar/harvester/internal/harvest"
)

// DefaultOfferCap bounds a run when no explicit limit is configured. It is
// a safety cap, not a product limit.
const DefaultOfferCap = 10000

// bonusPercent is business policy: runs may overshoot their configured limit
// by twenty percent before admission stops.
const bonusPercent = 20

// Limiter tracks the running new+existing total across the whole run. The
// total spans all sources, so the read-modify-write is serialized.
type Limiter struct {
	mu      sync.Mutex
	total   int
	ceiling int
}

// NewLimiter derives the admitted ceiling from the configured limit.
// Ceiling = limit + 20% bonus; an unset limit gets the safety cap without a
// bonus.
func NewLimiter(limit int) *Limiter {
	ceiling := DefaultOfferCap
	if limit > 0 {
		ceiling = limit + limit*bonusPercent/100
	}
	return &Limiter{ceiling: ceiling}
}

// Apply counts the batch against the ceiling and trims the overshoot. The
// excess most-recently-appended items are discarded, new results before
// existing offers; items admitted below the ceiling stay admitted. Returns
// true once the ceiling has been hit.
func (l *Limiter) Apply(batch *harvest.ReconciliationBatch) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	incoming := batch.CountAll()
	headroom := l.ceiling - l.total
	if headroom <= 0 {
		batch.NewResults = nil
		batch.ExistingOffers = nil
		return true
	}
	if incoming <= headroom {
		l.total += incoming
		return l.total >= l.ceiling
	}

	excess := incoming - headroom
	trimmed := min(excess, len(batch.NewResults))
	batch.NewResults = batch.NewResults[:len(batch.NewResults)-trimmed]
	excess -= trimmed
	if excess > 0 {
		batch.ExistingOffers = batch.ExistingOffers[:len(batch.ExistingOffers)-excess]
	}

	l.total += batch.CountAll()
	return true
}

// Total returns the current running total.
func (l *Limiter) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
