// Package circuitbreaker wraps sony/gobreaker with the settings shape every
// feed adapter shares: trip after repeated connect failures, half-open after
// a cooldown, so a dead exchange does not spin the executor in a hot
// reconnect loop.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker wraps gobreaker's generic breaker for a single result type.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// Config holds the breaker's tripping and recovery policy.
type Config struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	FailureRatio  float64
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig trips once at least 3 requests have been counted in the
// current 30s window and 60% or more of them failed, and probes again
// after a minute in the open state.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		FailureRatio: 0.6,
	}
}

// New builds a CircuitBreaker from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}
	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker, short-circuiting with
// gobreaker.ErrOpenState when the breaker is open.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	return c.cb.Execute(fn)
}

// State reports the breaker's current state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Healthy reports whether the breaker is not tripped, in the
// (bool, message) shape a health.CheckFunc expects. An open breaker means
// the guarded venue has failed repeatedly enough to stop retrying it for a
// cooldown period.
func (c *CircuitBreaker[T]) Healthy() (bool, string) {
	switch c.cb.State() {
	case gobreaker.StateOpen:
		return false, c.cb.Name() + " circuit breaker open"
	case gobreaker.StateHalfOpen:
		return true, c.cb.Name() + " circuit breaker half-open"
	default:
		return true, ""
	}
}
