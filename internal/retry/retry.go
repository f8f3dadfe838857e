// Package retry runs an operation with bounded attempts, linear backoff and an
// optional fallback that replaces the final attempt.
package retry

import (
	"context"
	"errors"
	"time"
)

// Defaults used by the weather tool.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1000 * time.Millisecond
)

// ErrInvalidPolicy is returned when a Policy cannot be run.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// State is a state of the retry state machine.
type State int

const (
	StateAttempting State = iota
	StateSuccess
	StateFallback
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSuccess:
		return "success"
	case StateFallback:
		return "fallback"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Policy controls attempts and waits.
type Policy struct {
	MaxAttempts int
	// BaseDelay is the backoff unit; after failed attempt n the wait is BaseDelay*n.
	BaseDelay time.Duration

	// Notify, if set, is called after every failed attempt. wait is zero when no attempt follows.
	Notify func(attempt int, err error, wait time.Duration)

	// After replaces the timer used for waits. Tests use it to observe delays without sleeping.
	After func(d time.Duration) <-chan time.Time
}

// DefaultPolicy returns the reference policy: 3 attempts, 1s base delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Outcome describes how a Run terminated.
type Outcome struct {
	State    State
	Attempts int           // live attempts made
	Waited   time.Duration // total backoff
	LastErr  error         // last live failure, if any
}

// Operation is a nullary call producing T.
type Operation[T any] func(ctx context.Context) (T, error)

// Fallback returns a substitute value, or false when none exists.
type Fallback[T any] func() (T, bool)

// Do runs op under p without a fallback and returns the value or the last error.
func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	v, _, err := Run(ctx, p, op, nil)
	return v, err
}

// Run runs op up to p.MaxAttempts times, returning on the first success.
//
// When fallback is non-nil and an earlier attempt failed, the final attempt consults
// fallback first and returns its value instead of calling op. On a miss op runs
// normally. With a single attempt the fallback is consulted after that attempt fails.
// When everything fails the last error from op is returned unchanged.
func Run[T any](ctx context.Context, p Policy, op Operation[T], fallback Fallback[T]) (T, Outcome, error) {
	var zero T
	if p.MaxAttempts < 1 || p.BaseDelay < 0 || op == nil {
		return zero, Outcome{State: StateFailed}, ErrInvalidPolicy
	}

	out := Outcome{State: StateAttempting}
	consulted := false

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, failed(out, err), out.failure(err)
		}

		final := attempt == p.MaxAttempts
		if final && fallback != nil && out.LastErr != nil {
			consulted = true
			if v, ok := fallback(); ok {
				out.State = StateFallback
				return v, out, nil
			}
		}

		out.Attempts = attempt
		v, err := op(ctx)
		if err == nil {
			out.State = StateSuccess
			return v, out, nil
		}
		out.LastErr = err

		if final {
			p.notify(attempt, err, 0)
			break
		}

		wait := p.BaseDelay * time.Duration(attempt)
		p.notify(attempt, err, wait)
		if err := p.sleep(ctx, wait); err != nil {
			return zero, failed(out, nil), out.LastErr
		}
		out.Waited += wait
	}

	if fallback != nil && !consulted {
		if v, ok := fallback(); ok {
			out.State = StateFallback
			return v, out, nil
		}
	}

	return zero, failed(out, nil), out.LastErr
}

func failed(out Outcome, err error) Outcome {
	out.State = StateFailed
	if out.LastErr == nil {
		out.LastErr = err
	}
	return out
}

// failure prefers the last live error over a context error.
func (o Outcome) failure(ctxErr error) error {
	if o.LastErr != nil {
		return o.LastErr
	}
	return ctxErr
}

func (p Policy) notify(attempt int, err error, wait time.Duration) {
	if p.Notify != nil {
		p.Notify(attempt, err, wait)
	}
}

// sleep waits for d or until ctx is done. Only the calling goroutine is suspended.
func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.After != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.After(d):
			return nil
		}
	}

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
