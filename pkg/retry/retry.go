// Package retry runs operations with exponential backoff and jitter.
// It is used for connecting to the database, Redis and Kafka at startup
// and for publishing events, where a transient failure should not take the
// process down.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Permanent wraps an error to indicate it should not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsPermanent checks if an error is permanent (should not be retried).
func IsPermanent(err error) bool {
	var permanentErr *backoff.PermanentError
	return errors.As(err, &permanentErr)
}

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including first attempt).
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// JitterFactor randomizes each delay by +/- this fraction.
	JitterFactor float64

	// MaxElapsed bounds the total time spent retrying. Zero means no bound.
	MaxElapsed time.Duration

	// RetryIf decides whether an error is worth another attempt.
	// nil retries everything that is not Permanent.
	RetryIf func(error) bool

	// OnRetry is called before each sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// Option is a functional option for configuring retries.
type Option func(*Config)

func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.InitialDelay = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

func WithMultiplier(m float64) Option {
	return func(c *Config) {
		if m >= 1.0 {
			c.Multiplier = m
		}
	}
}

// WithJitter sets the jitter factor (0.0 to 1.0).
func WithJitter(j float64) Option {
	return func(c *Config) {
		if j >= 0 && j <= 1.0 {
			c.JitterFactor = j
		}
	}
}

func WithMaxElapsed(d time.Duration) Option {
	return func(c *Config) { c.MaxElapsed = d }
}

func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) { c.RetryIf = fn }
}

func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// Retrier manages retry operations.
type Retrier struct {
	config Config
}

// New creates a new Retrier with the given options.
func New(opts ...Option) *Retrier {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Retrier{config: config}
}

// Config returns a copy of the effective configuration.
func (r *Retrier) Config() Config { return r.config }

func (r *Retrier) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay
	b.Multiplier = r.config.Multiplier
	b.RandomizationFactor = r.config.JitterFactor
	return b
}

// Do executes the operation until it succeeds, returns a permanent error,
// runs out of attempts, or ctx is cancelled. The last error is returned
// unwrapped.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	_, err := DoWithDataUsing(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}

// DoWithDataUsing is Do for operations that return a value.
func DoWithDataUsing[T any](ctx context.Context, r *Retrier, operation func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		result, err := operation(ctx)
		if err == nil || IsPermanent(err) {
			return result, err
		}
		if r.config.RetryIf != nil && !r.config.RetryIf(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(uint(max(r.config.MaxAttempts, 1))),
		backoff.WithMaxElapsedTime(r.config.MaxElapsed),
	}
	if r.config.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, delay time.Duration) {
			r.config.OnRetry(attempt, err, delay)
		}))
	}

	result, err := backoff.Retry(ctx, op, opts...)
	var permanentErr *backoff.PermanentError
	if errors.As(err, &permanentErr) {
		err = permanentErr.Err
	}
	return result, err
}

// Do is a convenience function that creates a Retrier and executes the operation.
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, operation)
}

// DoWithData is a helper for operations that return data.
func DoWithData[T any](ctx context.Context, operation func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	return DoWithDataUsing(ctx, New(opts...), operation)
}

// Presets for the connections the process opens.

// DatabaseRetrier is used when opening the ledger store.
func DatabaseRetrier(opts ...Option) *Retrier {
	return New(append([]Option{
		WithMaxAttempts(8),
		WithInitialDelay(250*time.Millisecond),
		WithMaxDelay(5*time.Second),
		WithMultiplier(2.0),
		WithJitter(0.1),
	}, opts...)...)
}

// RedisRetrier is used when connecting the optional cache.
func RedisRetrier(opts ...Option) *Retrier {
	return New(append([]Option{
		WithMaxAttempts(5),
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(2*time.Second),
		WithMultiplier(2.0),
		WithJitter(0.1),
	}, opts...)...)
}

// PublishRetrier is used for outbound event delivery.
func PublishRetrier(opts ...Option) *Retrier {
	return New(append([]Option{
		WithMaxAttempts(3),
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(1*time.Second),
		WithMultiplier(1.5),
		WithJitter(0.2),
	}, opts...)...)
}
