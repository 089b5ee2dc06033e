package circuitbreaker

import "time"

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name identifies the breaker in logs.
	Name string

	// Enabled determines whether the breaker is active.
	// When false, New returns nil and Execute calls straight through.
	Enabled bool

	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts are cleared.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32

	// IsSuccessful classifies errors that must not count as failures,
	// such as a missing document. Nil counts every non-nil error.
	IsSuccessful func(err error) bool

	// OnStateChange is notified on every transition.
	OnStateChange func(name string, from, to State)
}
