package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	ch    chan time.Time
	stops atomic.Int32
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stops.Add(1) }

func (m *manualTicker) factory() TickerFactory {
	return func(time.Duration) Ticker { return m }
}

func TestUntil(t *testing.T) {
	t.Run("returns after predicate flips and stops ticker once", func(t *testing.T) {
		ticker := newManualTicker()
		var calls atomic.Int32
		const notReadyTicks = 3
		ready := func() bool {
			return calls.Add(1) > notReadyTicks
		}

		done := make(chan error, 1)
		go func() {
			done <- Until(context.Background(), 500*time.Millisecond, ready, WithTicker(ticker.factory()))
		}()

		for i := 0; i < notReadyTicks+1; i++ {
			ticker.ch <- time.Now()
		}

		require.NoError(t, <-done)
		assert.Equal(t, int32(notReadyTicks+1), calls.Load())
		assert.Equal(t, int32(1), ticker.stops.Load())
	})

	t.Run("does not evaluate before the first tick", func(t *testing.T) {
		ticker := newManualTicker()
		var calls atomic.Int32
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- Until(ctx, time.Second, func() bool { calls.Add(1); return true }, WithTicker(ticker.factory()))
		}()
		cancel()

		require.ErrorIs(t, <-done, context.Canceled)
		assert.Zero(t, calls.Load())
		assert.Equal(t, int32(1), ticker.stops.Load())
	})

	t.Run("bounded wait reports timeout", func(t *testing.T) {
		err := Until(context.Background(), time.Millisecond, func() bool { return false }, WithTimeout(20*time.Millisecond))
		require.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("tick hook observes every evaluation", func(t *testing.T) {
		ticker := newManualTicker()
		var seen []bool
		n := 0
		done := make(chan error, 1)
		go func() {
			done <- Until(context.Background(), time.Millisecond, func() bool { n++; return n == 2 },
				WithTicker(ticker.factory()),
				WithTickHook(func(ok bool) { seen = append(seen, ok) }))
		}()
		ticker.ch <- time.Now()
		ticker.ch <- time.Now()
		require.NoError(t, <-done)
		assert.Equal(t, []bool{false, true}, seen)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		require.Error(t, Until(context.Background(), 0, func() bool { return true }))
	})
}
