// Package poll turns a periodic check into a single "wait until ready" call.
//
// It exists for hosts that expose a readiness predicate but no completion
// signal. Each call owns its ticker and stops it exactly once on return, so
// repeated calls never leak a recurring task.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a bounded wait elapses before the predicate holds.
var ErrTimeout = errors.New("poll: predicate not satisfied before timeout")

// Ticker is the part of *time.Ticker that Until depends on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker is the production TickerFactory.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type options struct {
	ticker  TickerFactory
	timeout time.Duration
	onTick  func(ready bool)
}

// Option configures Until.
type Option func(*options)

// WithTicker overrides the ticker factory.
func WithTicker(f TickerFactory) Option {
	return func(o *options) {
		if f != nil {
			o.ticker = f
		}
	}
}

// WithTimeout bounds the wait. Zero or negative means wait indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithTickHook is invoked after every predicate evaluation.
func WithTickHook(fn func(ready bool)) Option {
	return func(o *options) {
		o.onTick = fn
	}
}

// Until evaluates ready on every tick of interval and returns nil on the first
// tick where it reports true. The predicate is not evaluated before the first
// tick. It returns ctx.Err() if ctx ends first, or ErrTimeout when a timeout
// option is set and elapses.
func Until(ctx context.Context, interval time.Duration, ready func() bool, opts ...Option) error {
	o := options{ticker: NewTicker}
	for _, opt := range opts {
		opt(&o)
	}
	if interval <= 0 {
		return errors.New("poll: interval must be positive")
	}

	var deadline <-chan time.Time
	if o.timeout > 0 {
		timer := time.NewTimer(o.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := o.ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrTimeout
		case <-ticker.C():
			ok := ready()
			if o.onTick != nil {
				o.onTick(ok)
			}
			if ok {
				return nil
			}
		}
	}
}
