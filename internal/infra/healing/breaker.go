// Package healing guards calls to remote dependencies with a circuit
// breaker so a dead broker fails fast instead of stalling every request.
//
// States:
//   - CLOSED: calls pass; failures minus successes reaching FailureThreshold trips it
//   - OPEN: calls are rejected until ResetTimeout has passed
//   - HALF_OPEN: trial calls pass; HalfOpenMax successes close it, any failure reopens
package healing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zennify/zennify/internal/infra/metrics"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config tunes a breaker.
type Config struct {
	FailureThreshold int           // failures before tripping (default 5)
	ResetTimeout     time.Duration // time OPEN before probing (default 30s)
	HalfOpenMax      int           // successful trial calls needed to close (default 3)
}

// DefaultConfig returns the defaults used for the event bus.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMax:      3,
	}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	name      string
	cfg       Config
	state     State
	failures  int
	successes int
	trippedAt time.Time
	trips     int
	now       func() time.Time
}

// New creates a closed breaker. Zero config fields take defaults.
func New(name string, cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = def.HalfOpenMax
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// Do runs fn unless the breaker is open and records the result.
func (b *Breaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.advance() == Open {
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	return nil
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenMax {
			b.state = Closed
			b.failures = 0
			b.successes = 0
		}
	case Closed:
		if b.failures > 0 {
			b.failures--
		}
	}
}

// RecordFailure records a failed call and may trip the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	case HalfOpen:
		b.trip()
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.advance()
}

// Trips returns how many times the breaker has opened.
func (b *Breaker) Trips() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.successes = 0
}

// Check is a health check that fails while the breaker is open.
func (b *Breaker) Check() error {
	if b.State() == Open {
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	return nil
}

// trip must be called with mu held.
func (b *Breaker) trip() {
	b.state = Open
	b.trippedAt = b.now()
	b.successes = 0
	b.trips++
	metrics.BreakerTrips.WithLabelValues(b.name).Inc()
}

// advance moves OPEN to HALF_OPEN once the reset timeout has passed.
// Must be called with mu held.
func (b *Breaker) advance() State {
	if b.state == Open && b.now().Sub(b.trippedAt) >= b.cfg.ResetTimeout {
		b.state = HalfOpen
		b.successes = 0
	}
	return b.state
}
