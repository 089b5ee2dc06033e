package circuitbreaker

import (
	"errors"

	"github.com/sony/gobreaker/v2"
)

type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// CircuitBreaker guards calls to one downstream dependency.
// A single breaker is shared by calls returning different result types.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// New returns nil when the breaker is disabled.
func New(cfg Config) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: cfg.IsSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}

	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (c *CircuitBreaker) Name() string {
	return c.cb.Name()
}

func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Execute runs fn through cb. A nil breaker executes fn directly.
func Execute[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	if cb == nil {
		return fn()
	}

	var zero T

	result, err := cb.cb.Execute(func() (any, error) {
		return fn()
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return zero, ErrCircuitOpen
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return zero, ErrTooManyRequests
	}

	typed, ok := result.(T)
	if !ok {
		return zero, err
	}

	return typed, err
}

// Run is Execute for calls that only return an error.
func Run(cb *CircuitBreaker, fn func() error) error {
	_, err := Execute(cb, func() (struct{}, error) {
		return struct{}{}, fn()
	})

	return err
}
