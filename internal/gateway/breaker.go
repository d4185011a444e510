package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Do] when the breaker is open and the
// reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState represents the current operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed forwards every call.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// elapses.
	BreakerOpen

	// BreakerHalfOpen lets a limited number of probe calls through. Enough
	// successful probes close the breaker; any failure re-opens it.
	BreakerHalfOpen
)

// String returns the human-readable name of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [Breaker].
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 3.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before transitioning to
	// half-open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed to close the
	// breaker again. Default: 1.
	HalfOpenMax int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 3
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMax <= 0 {
		c.HalfOpenMax = 1
	}
	return c
}

// Breaker is a three-state circuit breaker guarding one LLM backend.
// Cancellation of the caller's context is not counted as a backend failure.
// It is safe for concurrent use.
type Breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu              sync.Mutex
	state           BreakerState
	consecutiveFail int
	openedAt        time.Time
	probes          int
	probeSuccesses  int
}

// NewBreaker creates a [Breaker] for the named backend. Zero-value config
// fields are replaced with defaults.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	return &Breaker{
		name: name,
		cfg:  cfg.withDefaults(),
		now:  time.Now,
	}
}

// Do runs fn if the breaker allows it.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	if b.state == BreakerOpen {
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.probes = 0
		b.probeSuccesses = 0
		slog.Info("circuit breaker half-open", "backend", b.name)
	}
	probing := b.state == BreakerHalfOpen
	if probing {
		if b.probes >= b.cfg.HalfOpenMax {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.probes++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		b.onSuccess(probing)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if probing {
			b.probes--
		}
	default:
		b.onFailure(probing)
	}
	return err
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if !probing {
		b.consecutiveFail = 0
		return
	}
	b.probeSuccesses++
	if b.probeSuccesses >= b.cfg.HalfOpenMax {
		b.state = BreakerClosed
		b.consecutiveFail = 0
		slog.Info("circuit breaker closed", "backend", b.name)
	}
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	if probing {
		b.trip()
		slog.Warn("circuit breaker re-opened", "backend", b.name)
		return
	}
	b.consecutiveFail++
	if b.consecutiveFail >= b.cfg.MaxFailures {
		b.trip()
		slog.Warn("circuit breaker opened", "backend", b.name, "consecutive_failures", b.consecutiveFail)
	}
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.openedAt = b.now()
}

// State returns the current state. An open breaker whose reset timeout has
// elapsed reports [BreakerHalfOpen]; the transition itself happens on the
// next [Breaker.Do].
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return BreakerHalfOpen
	}
	return b.state
}
