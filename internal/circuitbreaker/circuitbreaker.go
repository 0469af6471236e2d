// Package circuitbreaker wraps sony/gobreaker with a typed API and
// sensible defaults for outbound calls.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Config tunes a circuit breaker instance.
type Config struct {
	Name          string
	MaxRequests   uint32        // allowed through while half-open
	Interval      time.Duration // counters reset interval while closed
	Timeout       time.Duration // open -> half-open transition
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from, to gobreaker.State)
	IsSuccessful  func(err error) bool
}

// DefaultConfig returns a config that trips after 5 consecutive failures
// and probes again after 30 seconds.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// CircuitBreaker guards calls returning T.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a circuit breaker from the given config.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		ReadyToTrip:  cfg.ReadyToTrip,
		IsSuccessful: cfg.IsSuccessful,
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}
	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn under the breaker.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	return c.cb.Execute(fn)
}

// State returns the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Name returns the breaker's configured name.
func (c *CircuitBreaker[T]) Name() string {
	return c.cb.Name()
}
