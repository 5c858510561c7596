package healing

import (
	"errors"
	"testing"
	"time"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(t *testing.T) (*Breaker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}
	b := New("test", Config{FailureThreshold: 3, ResetTimeout: time.Second, HalfOpenMax: 2})
	b.now = clock.now
	return b, clock
}

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

// ─── State ──────────────────────────────────────────────────────────────────

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Closed, "CLOSED"},
		{Open, "OPEN"},
		{HalfOpen, "HALF_OPEN"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	b := New("bus", Config{})
	if b.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", b.cfg)
	}
	if b.State() != Closed || b.Name() != "bus" {
		t.Errorf("new breaker = %s %s", b.Name(), b.State())
	}
}

// ─── Transitions ────────────────────────────────────────────────────────────

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		if err := b.Do(fail); !errors.Is(err, errBoom) {
			t.Fatalf("Do #%d = %v, want boom", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("state = %s, want OPEN", b.State())
	}
	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("Do while open = %v (called=%v), want ErrCircuitOpen without call", err, called)
	}
	if b.Trips() != 1 {
		t.Errorf("Trips() = %d, want 1", b.Trips())
	}
	if err := b.Check(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Check() = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessDecaysFailures(t *testing.T) {
	b, _ := newTestBreaker(t)
	b.Do(fail)
	b.Do(fail)
	b.Do(succeed)
	b.Do(fail)
	if b.State() != Closed {
		t.Errorf("state = %s, want CLOSED after decay", b.State())
	}
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Do(fail)
	}
	clock.advance(time.Second)
	if b.State() != HalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", b.State())
	}
	b.Do(succeed)
	if b.State() != HalfOpen {
		t.Fatalf("one trial call should not close, state = %s", b.State())
	}
	b.Do(succeed)
	if b.State() != Closed {
		t.Errorf("state = %s, want CLOSED", b.State())
	}
	if err := b.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Do(fail)
	}
	clock.advance(time.Second)
	b.Do(fail)
	if b.State() != Open || b.Trips() != 2 {
		t.Errorf("state = %s trips = %d, want OPEN/2", b.State(), b.Trips())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Do(fail)
	}
	b.Reset()
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() after reset = %v", err)
	}
}
