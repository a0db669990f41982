// Package wait polls a condition until it holds, instead of sleeping for a
// fixed time and hoping the page caught up.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is used when Options.Interval is not set
const DefaultInterval = 100 * time.Millisecond

// ErrTimeout is matched by errors.Is on every timeout returned by Until
var ErrTimeout = errors.New("condition not met before timeout")

// Options bounds a poll. A zero Timeout means only ctx bounds it.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Condition reports whether the awaited state has been reached. Returned
// errors are retried unless wrapped with Permanent.
type Condition func(ctx context.Context) (bool, error)

// TimeoutError is returned when the condition never held
type TimeoutError struct {
	Timeout time.Duration
	Last    error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("condition not met within %v: %v", e.Timeout, e.Last)
	}
	return fmt.Sprintf("condition not met within %v", e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Last }

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying; Until returns it unwrapped
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Until evaluates cond right away and then at most once per interval until it
// returns true, returns a Permanent error, the timeout elapses or ctx ends.
func Until(ctx context.Context, opts Options, cond Condition) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	pollCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	var last error
	for {
		if err := limiter.Wait(pollCtx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TimeoutError{Timeout: opts.Timeout, Last: last}
		}

		ok, err := cond(pollCtx)
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				return perm.err
			}
			last = err
			continue
		}
		if ok {
			return nil
		}
	}
}

// For is Until with only a timeout
func For(ctx context.Context, timeout time.Duration, cond Condition) error {
	return Until(ctx, Options{Timeout: timeout}, cond)
}
