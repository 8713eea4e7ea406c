package testutil

import (
	"sync"
	"time"
)

// ManualTicker is a ticker driven by the test instead of wall-clock time.
//
// It satisfies kernel.Ticker. Bind it through kernel.WithTicker:
//
//	mt := testutil.NewManualTicker()
//	kernel.WithTicker(func(d time.Duration) kernel.Ticker { return mt.Bind(d) })
//
// Thread-safety: all methods are safe for concurrent use.
type ManualTicker struct {
	ch chan time.Time

	mu       sync.Mutex
	interval time.Duration
	stopped  bool
}

// NewManualTicker creates an unbound ticker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// Bind records the requested interval and returns the ticker.
func (t *ManualTicker) Bind(d time.Duration) *ManualTicker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
	t.stopped = false
	return t
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time { return t.ch }

// Stop marks the ticker stopped.
func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Tick delivers one tick and blocks until the consumer receives it, or
// until timeout. It reports whether the tick was delivered.
func (t *ManualTicker) Tick(timeout time.Duration) bool {
	select {
	case t.ch <- time.Time{}:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Interval returns the interval passed to Bind.
func (t *ManualTicker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Stopped reports whether Stop was called since the last Bind.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
