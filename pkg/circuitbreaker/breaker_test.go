package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errNoDocuments = errors.New("no documents in result")

func newTestBreaker(name string, threshold uint32) *CircuitBreaker {
	return New(Config{
		Name:             name,
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: threshold,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoDocuments)
		},
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	require.Nil(t, New(Config{Name: "disabled"}))

	cb := newTestBreaker("mongo", 3)
	require.NotNil(t, cb)
	require.Equal(t, "mongo", cb.Name())
	require.Equal(t, StateClosed, cb.State())
}

func TestExecute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		cb        *CircuitBreaker
		fn        func() (string, error)
		wantVal   string
		errSubstr string
	}{
		{
			name:    "returns the result through the breaker",
			cb:      newTestBreaker("success", 5),
			fn:      func() (string, error) { return "tour", nil },
			wantVal: "tour",
		},
		{
			name:    "nil breaker calls straight through",
			fn:      func() (string, error) { return "direct", nil },
			wantVal: "direct",
		},
		{
			name:      "propagates the call error",
			cb:        newTestBreaker("failure", 5),
			fn:        func() (string, error) { return "", errors.New("write failed") },
			errSubstr: "write failed",
		},
		{
			name:      "nil breaker propagates the call error",
			fn:        func() (string, error) { return "", errors.New("direct error") },
			errSubstr: "direct error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result, err := Execute(tc.cb, tc.fn)

			if tc.errSubstr != "" {
				require.ErrorContains(t, err, tc.errSubstr)
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, tc.wantVal, result)
		})
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker("open", 2)

	for range 2 {
		require.Error(t, Run(cb, func() error { return errors.New("timeout") }))
	}

	require.Equal(t, StateOpen, cb.State())

	_, err := Execute(cb, func() (int, error) { return 1, nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_IgnoresSuccessfulErrors(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker("not-found", 1)

	for range 3 {
		require.ErrorIs(t, Run(cb, func() error { return errNoDocuments }), errNoDocuments)
	}

	require.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		transitions []State
	)

	cb := New(Config{
		Name:             "half-open",
		Enabled:          true,
		MaxRequests:      1,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 1,
		OnStateChange: func(_ string, _, to State) {
			mu.Lock()
			defer mu.Unlock()

			transitions = append(transitions, to)
		},
	})

	require.Error(t, Run(cb, func() error { return errors.New("failure") }))

	time.Sleep(150 * time.Millisecond)

	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = Execute(cb, func() (string, error) {
			close(started)
			time.Sleep(50 * time.Millisecond)

			return "recovered", nil
		})
	}()

	<-started

	_, err := Execute(cb, func() (string, error) { return "rejected", nil })
	require.ErrorIs(t, err, ErrTooManyRequests)

	<-done

	require.Equal(t, StateClosed, cb.State())

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}
