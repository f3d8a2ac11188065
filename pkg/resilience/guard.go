// Package resilience wraps calls to flaky upstreams in a circuit breaker and
// an exponential-backoff retry.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

type Settings struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int
	// OpenTimeout is how long the breaker stays open before a half-open probe.
	OpenTimeout time.Duration
	// Interval clears the closed-state counts; 0 never clears.
	Interval time.Duration
	// Retries after the first attempt.
	Retries         int
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.MaxFailures < 1 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.Retries < 0 {
		s.Retries = 0
	}
	if s.InitialInterval <= 0 {
		s.InitialInterval = 500 * time.Millisecond
	}
	if s.MaxElapsed <= 0 {
		s.MaxElapsed = 10 * time.Second
	}
	return s
}

// Guard is safe for concurrent use.
type Guard struct {
	cb       *gobreaker.CircuitBreaker
	settings Settings
}

func NewGuard(s Settings) *Guard {
	s = s.withDefaults()
	fails := uint32(s.MaxFailures)
	return &Guard{
		settings: s,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     s.Name,
			Interval: s.Interval,
			Timeout:  s.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= fails
			},
			IsSuccessful: func(err error) bool {
				// a caller giving up is not an upstream failure
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

func (g *Guard) Name() string { return g.settings.Name }

// State is "closed", "half-open" or "open".
func (g *Guard) State() string { return g.cb.State().String() }

// Open reports whether calls are currently being rejected.
func (g *Guard) Open() bool { return g.cb.State() == gobreaker.StateOpen }

// Permanent marks an error that must not be retried (bad credentials, a 404).
func Permanent(err error) error { return backoff.Permanent(err) }

// Do runs fn through the breaker, retrying with exponential backoff. An open
// breaker or a cancelled context stops the retries.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.settings.InitialInterval
	bo.MaxElapsedTime = g.settings.MaxElapsed

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		_, err := g.cb.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(g.settings.Retries)), ctx))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// Call is Do for functions returning a value.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
