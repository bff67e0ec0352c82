// Package circuitbreaker guards each provider with a closed → open →
// half-open state machine. Consecutive transient failures trip the circuit;
// while open, calls fail immediately without touching the provider; after
// the open timeout a single probe is let through to test recovery.
package circuitbreaker

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

// State is the circuit's position in its state machine.
type State int

const (
	// StateClosed allows requests through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows a single probe request.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes the breaker.
type Config struct {
	// FailureThreshold is the consecutive transient-failure count that
	// trips the circuit.
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open before admitting a
	// probe. A small jitter is added so breakers do not probe in lockstep.
	OpenTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// jitterDivisor sizes the probe jitter as a fraction of the open timeout.
const jitterDivisor = 10

// Breaker tracks one circuit per provider. Safe for concurrent use.
type Breaker struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	circuits map[string]*circuit
}

type circuit struct {
	state    State
	failures int
	openedAt time.Time
	deadline time.Duration
	probing  bool
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a breaker with the given configuration.
func New(cfg Config, opts ...Option) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig().OpenTimeout
	}

	b := &Breaker{
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default().With("component", "circuitbreaker"),
		circuits: make(map[string]*circuit),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call to the provider may proceed. While open, it
// returns a transport-kind classified error; once the open timeout elapses,
// exactly one caller is admitted as the half-open probe.
func (b *Breaker) Allow(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(provider)
	switch c.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(c.openedAt) < c.deadline {
			return openError(provider)
		}
		c.state = StateHalfOpen
		c.probing = true
		b.logger.Info("circuit half-open, admitting probe", "provider", provider)
		return nil
	case StateHalfOpen:
		if c.probing {
			return openError(provider)
		}
		c.probing = true
		return nil
	}
	return nil
}

// Record feeds a call's outcome back into the provider's circuit. Only
// transient failure kinds count toward tripping: a rejected credential or
// bad input says nothing about the provider's health.
func (b *Breaker) Record(provider string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(provider)
	if err == nil {
		if c.state != StateClosed {
			b.logger.Info("circuit closed", "provider", provider)
		}
		*c = circuit{state: StateClosed}
		return
	}

	if !countsAsFailure(err) {
		c.probing = false
		return
	}

	switch c.state {
	case StateHalfOpen:
		b.trip(provider, c)
	case StateClosed:
		c.failures++
		if c.failures >= b.cfg.FailureThreshold {
			b.trip(provider, c)
		}
	case StateOpen:
		// Late result from a call admitted before the trip.
	}
}

// State returns the provider's current circuit state.
func (b *Breaker) State(provider string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.circuit(provider).state
}

func (b *Breaker) circuit(provider string) *circuit {
	c, ok := b.circuits[provider]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[provider] = c
	}
	return c
}

func (b *Breaker) trip(provider string, c *circuit) {
	jitter := time.Duration(rand.Int63n(int64(b.cfg.OpenTimeout/jitterDivisor) + 1))
	*c = circuit{
		state:    StateOpen,
		openedAt: b.now(),
		deadline: b.cfg.OpenTimeout + jitter,
	}
	b.logger.Warn("circuit tripped open", "provider", provider, "deadline", c.deadline)
}

func countsAsFailure(err error) bool {
	ce := llmerrors.Classify(err)
	switch ce.Kind {
	case llmerrors.KindNetwork, llmerrors.KindTransport, llmerrors.KindTimeout:
		return true
	default:
		return false
	}
}

func openError(provider string) error {
	return &llmerrors.ClassifiedError{
		Kind:      llmerrors.KindTransport,
		Message:   "circuit open for provider " + provider,
		Code:      "circuit_open",
		Retryable: true,
		Timestamp: time.Now(),
	}
}
