package circuit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State represents the breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config configures a circuit breaker
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens a
	// closed breaker
	FailureThreshold int `json:"failure_threshold"`

	// SuccessThreshold is the number of consecutive half-open successes that
	// closes the breaker
	SuccessThreshold int `json:"success_threshold"`

	// Timeout is how long an open breaker rejects calls before admitting a
	// probe. This is not a network timeout.
	Timeout time.Duration `json:"timeout"`

	// HalfOpenMaxCalls is the number of calls admitted per half-open window
	HalfOpenMaxCalls int `json:"half_open_max_calls"`
}

// DefaultConfig returns the default breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// withDefaults fills zero-valued fields with defaults
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	// the probe budget must cover the successes needed to close, or a
	// half-open breaker could reject every remaining probe
	if c.HalfOpenMaxCalls < c.SuccessThreshold {
		c.HalfOpenMaxCalls = c.SuccessThreshold
	}
	return c
}

// Status is a read-only snapshot of a breaker
type Status struct {
	Name                string     `json:"name"`
	State               string     `json:"state"`
	Config              Config     `json:"config"`
	TotalCalls          int64      `json:"total_calls"`
	SuccessfulCalls     int64      `json:"successful_calls"`
	FailedCalls         int64      `json:"failed_calls"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastStateChangeAt   time.Time  `json:"last_state_change_at"`
}

// StateChangeFunc is called on every state transition. It runs while the
// breaker lock is held and must not call back into the breaker.
type StateChangeFunc func(name string, from, to State)

// Option configures a Breaker
type Option func(*Breaker)

// WithClock replaces the wall clock, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithStateChange registers a transition hook (metrics, logging)
func WithStateChange(fn StateChangeFunc) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

// Breaker is a per-dependency circuit breaker. All state transitions happen
// under its mutex; the protected operation runs outside the lock.
type Breaker struct {
	name string
	cfg  Config

	mu                  sync.Mutex
	state               State
	totalCalls          int64
	successfulCalls     int64
	failedCalls         int64
	consecutiveFailures int
	lastFailure         time.Time
	lastSuccess         time.Time
	lastStateChange     time.Time

	// per half-open window counters, reset on every state change
	halfOpenCalls     int
	halfOpenSuccesses int

	now           func() time.Time
	onStateChange StateChangeFunc
}

// NewBreaker creates a closed breaker with the given name and config.
// Zero-valued config fields fall back to DefaultConfig.
func NewBreaker(name string, cfg Config, opts ...Option) *Breaker {
	b := &Breaker{
		name: name,
		cfg:  cfg.withDefaults(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastStateChange = b.now()
	return b
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}

// Execute runs op under breaker protection. If the breaker rejects the call,
// the returned error wraps ErrCircuitOpen and op is never invoked. If op is
// admitted and fails, op's own error is returned unchanged after the failure
// is recorded; the breaker never masks the real cause.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	if err := op(ctx); err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// State returns the current state, applying the lazy open -> half-open
// transition if the timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeProbe()
	return b.state
}

// Status returns a read-only snapshot without mutating breaker state
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Status{
		Name:                b.name,
		State:               b.state.String(),
		Config:              b.cfg,
		TotalCalls:          b.totalCalls,
		SuccessfulCalls:     b.successfulCalls,
		FailedCalls:         b.failedCalls,
		ConsecutiveFailures: b.consecutiveFailures,
		LastStateChangeAt:   b.lastStateChange,
	}
	if !b.lastFailure.IsZero() {
		f := b.lastFailure
		st.LastFailureAt = &f
	}
	if !b.lastSuccess.IsZero() {
		s := b.lastSuccess
		st.LastSuccessAt = &s
	}
	return st
}

// ForceOpen opens the breaker regardless of thresholds, e.g. for a dependency
// maintenance window. The usual timeout-driven probing applies afterwards.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		b.setState(StateOpen)
	}
}

// ForceClose closes the breaker and clears the consecutive failure count
func (b *Breaker) ForceClose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	if b.state != StateClosed {
		b.setState(StateClosed)
	}
}

// admit decides whether a call may proceed. It serializes all state reads and
// transitions; the caller runs the protected operation outside the lock.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeProbe()

	switch b.state {
	case StateOpen:
		return fmt.Errorf("circuit %q: %w", b.name, ErrCircuitOpen)
	case StateHalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			return fmt.Errorf("circuit %q: probe budget exhausted: %w", b.name, ErrCircuitOpen)
		}
		b.halfOpenCalls++
	}
	return nil
}

// maybeProbe applies the lazy open -> half-open transition. Eligibility is
// measured from the later of the last failure and the last state change, so a
// forced open on an idle breaker still honors the timeout. Caller holds the lock.
func (b *Breaker) maybeProbe() {
	if b.state != StateOpen {
		return
	}
	since := b.lastFailure
	if b.lastStateChange.After(since) {
		since = b.lastStateChange
	}
	if b.now().Sub(since) >= b.cfg.Timeout {
		b.setState(StateHalfOpen)
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	b.successfulCalls++
	b.consecutiveFailures = 0
	b.lastSuccess = b.now()

	if b.state == StateHalfOpen {
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.SuccessThreshold {
			b.setState(StateClosed)
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	b.failedCalls++
	b.consecutiveFailures++
	b.lastFailure = b.now()

	switch b.state {
	case StateHalfOpen:
		// first failure while probing reopens immediately
		b.setState(StateOpen)
	case StateClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.setState(StateOpen)
		}
	}
}

// setState transitions to a new state and resets the half-open window
// counters. Caller holds the lock.
func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	b.lastStateChange = b.now()
	b.halfOpenCalls = 0
	b.halfOpenSuccesses = 0
	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}
