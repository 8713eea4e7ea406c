package kernel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cbassuarez/flux/internal/ast"
)

// ClockMode selects who drives docsteps.
type ClockMode int

const (
	// ClockManual means the host calls Step explicitly.
	ClockManual ClockMode = iota
	// ClockTimer means a runtime-owned ticker calls Step at the hinted interval.
	ClockTimer
)

func (m ClockMode) String() string {
	if m == ClockTimer {
		return "timer"
	}
	return "manual"
}

// Ticker delivers ticks until stopped. time.Ticker satisfies it through
// NewTimeTicker; tests inject a manual ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Options are the read-only settings of a Runtime.
type Options struct {
	Seed  int64
	Clock ClockMode
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithSeed sets the seed for random() and render picks. Default 0.
func WithSeed(seed int64) Option {
	return func(r *Runtime) { r.opts.Seed = seed }
}

// WithClock sets the clock mode. Default ClockManual.
func WithClock(mode ClockMode) Option {
	return func(r *Runtime) { r.opts.Clock = mode }
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// WithTicker replaces the ticker used in timer mode.
func WithTicker(f TickerFactory) Option {
	return func(r *Runtime) { r.newTicker = f }
}

// WithOnStep registers a callback for timer-driven docsteps. It runs on
// the timer goroutine, outside the runtime lock, and must not call Stop.
func WithOnStep(fn func(Snapshot)) Option {
	return func(r *Runtime) { r.onStep = fn }
}

// Runtime wraps State with a per-instance lock and an optional timer
// clock. Step, ApplyEvent and Reset never run concurrently on one Runtime.
// Separate Runtimes share nothing.
type Runtime struct {
	mu    sync.Mutex
	doc   *ast.Document
	state *State

	opts      Options
	logger    *slog.Logger
	newTicker TickerFactory
	onStep    func(Snapshot)

	// timer lifecycle, guarded by timerMu
	timerMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New initializes a Runtime for doc. It fails with *InitError when the
// document cannot be turned into runtime state.
func New(doc *ast.Document, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		doc:       doc,
		logger:    slog.Default(),
		newTicker: NewTimeTicker,
	}
	for _, opt := range opts {
		opt(r)
	}

	state, err := initState(doc, r.opts.Seed, r.logger)
	if err != nil {
		return nil, err
	}
	r.state = state
	return r, nil
}

// Step advances one docstep.
func (r *Runtime) Step() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Step()
}

// ApplyEvent applies an event without advancing the docstep.
func (r *Runtime) ApplyEvent(ev ast.Event) EventOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ApplyEvent(ev)
}

// Snapshot returns an immutable projection of the current state.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot()
}

// State is an alias for Snapshot.
func (r *Runtime) State() Snapshot { return r.Snapshot() }

// Reset re-initializes state from the document. The docstep returns to 0.
// A running timer keeps running.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.state.Reset(); err != nil {
		return err
	}
	r.logger.Info("runtime reset", slog.Int64("seed", r.opts.Seed))
	return nil
}

// Docstep returns the current docstep.
func (r *Runtime) Docstep() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Docstep()
}

// Options returns the runtime settings.
func (r *Runtime) Options() Options { return r.opts }

// Document returns the source document.
func (r *Runtime) Document() *ast.Document { return r.doc }

// IntervalHint returns the docstep interval hint for the current state.
func (r *Runtime) IntervalHint() IntervalHint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return DocstepIntervalHint(r.doc, r.state)
}

// Start begins timer-driven stepping. It is idempotent: starting a running
// timer does nothing. The timer stops when ctx is cancelled or Stop is called.
func (r *Runtime) Start(ctx context.Context) error {
	if r.opts.Clock != ClockTimer {
		return ErrManualClock
	}
	interval, ok := r.IntervalHint().Duration()
	if !ok || interval <= 0 {
		return ErrNoInterval
	}

	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := r.newTicker(interval)
	r.cancel, r.done = cancel, done

	r.logger.Info("timer started", slog.Duration("interval", interval))
	go r.loop(ctx, ticker, done)
	return nil
}

func (r *Runtime) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer r.release(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			// A tick racing with Stop must not step after Stop returns.
			if ctx.Err() != nil {
				return
			}
			snap := r.Step()
			if r.onStep != nil {
				r.onStep(snap)
			}
		}
	}
}

// release clears the timer fields when the loop that owns done exits on
// its own, so a cancelled parent context leaves the runtime restartable.
func (r *Runtime) release(done chan struct{}) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.done != done {
		return
	}
	r.cancel()
	r.cancel, r.done = nil, nil
	r.logger.Info("timer stopped", slog.String("reason", "context done"))
}

// Stop cancels the timer and waits for the timer goroutine to exit, so no
// step runs after Stop returns. Stopping a stopped timer does nothing.
func (r *Runtime) Stop() {
	r.timerMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.timerMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("timer stopped")
}

// Running reports whether the timer is active.
func (r *Runtime) Running() bool {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	return r.cancel != nil
}
