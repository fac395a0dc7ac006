package media

import (
	"errors"
	"sync"
	"time"
)

// ErrProbingSuspended is returned while repeated ffprobe failures keep the
// breaker open
var ErrProbingSuspended = errors.New("probing suspended after repeated ffprobe failures")

// BreakerState is the state of a probe breaker
type BreakerState int

const (
	// BreakerClosed lets every probe through
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects probes until the cooldown elapses
	BreakerOpen
	// BreakerHalfOpen lets probes through; one success closes the breaker
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker stops a catalog enrichment from launching one ffprobe per song
// when ffprobe itself is broken or the probe host is down.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker opens after threshold consecutive failures and half-opens
// after cooldown
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

// Allow reports whether a probe may run
func (b *Breaker) Allow() error {
	if b.State() == BreakerOpen {
		return ErrProbingSuspended
	}
	return nil
}

// Record feeds the outcome of a probe back into the breaker. Only failures
// of the probe machinery count; a corrupt song says nothing about the next.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !countsAsFailure(err) {
		b.failures = 0
		if b.state == BreakerHalfOpen {
			b.state = BreakerClosed
		}
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State returns the current state, half-opening an expired open breaker
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.failures = 0
	}
	return b.state
}

// Reset closes the breaker
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.openedAt = time.Time{}
}

func countsAsFailure(err error) bool {
	return errors.Is(err, ErrFFprobeNotFound) ||
		errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrTimeout)
}
