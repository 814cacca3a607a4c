package fetch

import (
	"math/rand"
	"sync"
	"time"
)

// Delay bounds for the default decider. Randomized pauses between requests
// to the same host keep sources from throttling or banning the crawler.
const (
	DefaultMinDelay = 2 * time.Second
	DefaultMaxDelay = 8 * time.Second
)

// RandomDelay returns a uniformly random delay within [min, max).
type RandomDelay struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDelay builds a decider; zero bounds fall back to the defaults.
func NewRandomDelay(min, max time.Duration) *RandomDelay {
	if min <= 0 {
		min = DefaultMinDelay
	}
	if max <= min {
		max = min + DefaultMaxDelay - DefaultMinDelay
	}
	return &RandomDelay{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextDelay implements harvest.DelayDecider.
func (d *RandomDelay) NextDelay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.min + time.Duration(d.rng.Int63n(int64(d.max-d.min)))
}

// FixedDelay always returns the same pause. Used by tests and debug runs.
type FixedDelay time.Duration

// NextDelay implements harvest.DelayDecider.
func (d FixedDelay) NextDelay() time.Duration { return time.Duration(d) }
