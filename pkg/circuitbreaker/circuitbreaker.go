// Package circuitbreaker stops calls to a failing dependency for a cool-down
// period and then lets a single probe through to test recovery.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
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

// ErrOpen is returned without calling the function while the circuit is open
// or while the half-open probe is in flight.
var ErrOpen = errors.New("circuit breaker is open")

// Config holds breaker settings.
type Config struct {
	Name string
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int
	// CoolDown is how long the circuit stays open before a probe.
	CoolDown time.Duration
	// OnStateChange is called with the lock held; it must not call back
	// into the breaker.
	OnStateChange func(name string, from, to State)
	// IsFailure filters errors; context cancellation by the caller is
	// never a failure of the dependency.
	IsFailure func(error) bool
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Option mutates Config.
type Option func(*Config)

func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

func WithCoolDown(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CoolDown = d
		}
	}
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) { c.IsFailure = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Config) { c.Now = now }
}

// Breaker is safe for concurrent use.
type Breaker struct {
	config Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	config := Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		CoolDown:         30 * time.Second,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Breaker{config: config}
}

// Execute calls fn unless the circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := b.allow()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(err, probe)
	return err
}

func (b *Breaker) allow() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.config.Now().Sub(b.openedAt) < b.config.CoolDown {
			return false, ErrOpen
		}
		b.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.probing {
			return false, ErrOpen
		}
		b.probing = true
		return true, nil
	default:
		return false, nil
	}
}

func (b *Breaker) record(err error, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}
	if !b.isFailure(err) {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.config.SuccessThreshold {
				b.transition(StateClosed)
			}
		}
		return
	}

	b.successes = 0
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.config.FailureThreshold {
		b.transition(StateOpen)
		b.openedAt = b.config.Now()
	}
}

func (b *Breaker) isFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if b.config.IsFailure != nil {
		return b.config.IsFailure(err)
	}
	return true
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, from, to)
	}
}

// State returns the current state. An open circuit whose cool-down has
// elapsed still reports open until the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.config.Name }

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.probing = false
}

// KafkaBreaker returns the breaker used by the event forwarder.
func KafkaBreaker(onStateChange func(name string, from, to State)) *Breaker {
	return New("kafka",
		WithFailureThreshold(3),
		WithCoolDown(30*time.Second),
		WithOnStateChange(onStateChange),
	)
}
