package render

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/kernel"
)

// ErrNegativeTime is returned by Tick for negative or non-finite durations.
var ErrNegativeTime = errors.New("render: tick seconds must be finite and non-negative")

// ErrTickTooLarge is returned by Tick when the duration would run more
// than MaxTickSteps timer docsteps at once.
var ErrTickTooLarge = errors.New("render: tick spans too many timer docsteps")

// MaxTickSteps bounds the timer docsteps a single Tick may run.
const MaxTickSteps = 10000

// Status is the session position reported to hosts.
type Status struct {
	Docstep int64   `json:"docstep"`
	Time    float64 `json:"time"`
	Seed    int64   `json:"seed"`
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSeed sets the seed for the kernel and render picks. Default 0.
func WithSeed(seed int64) Option {
	return func(r *Renderer) { r.seed = seed }
}

// WithAssetCwd sets the base directory asset bank roots resolve against.
func WithAssetCwd(dir string) Option {
	return func(r *Renderer) { r.assetCwd = dir }
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// WithAutoAdvance controls whether Tick advances docsteps when the
// document declares a timer interval. Default true.
func WithAutoAdvance(enabled bool) Option {
	return func(r *Renderer) { r.autoAdvance = enabled }
}

// Renderer is a render session: a kernel runtime plus continuous time.
// All methods are safe for concurrent use.
type Renderer struct {
	mu sync.Mutex

	doc         *ast.Document
	rt          *kernel.Runtime
	seed        int64
	assetCwd    string
	autoAdvance bool
	logger      *slog.Logger

	time    float64
	carryUS int64 // microseconds accumulated toward the next timer docstep
}

// NewRenderer creates a render session for doc.
func NewRenderer(doc *ast.Document, opts ...Option) (*Renderer, error) {
	r := &Renderer{doc: doc, autoAdvance: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	rt, err := kernel.New(doc, kernel.WithSeed(r.seed), kernel.WithLogger(r.logger))
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	r.rt = rt
	return r, nil
}

// Render builds the IR for the current docstep and time.
func (r *Renderer) Render() (*ir.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render()
}

func (r *Renderer) render() (*ir.Document, error) {
	snap := r.rt.Snapshot()
	return Build(r.doc, snap, Options{
		Seed:     r.seed,
		Time:     r.time,
		Docstep:  snap.Docstep,
		AssetCwd: r.assetCwd,
	})
}

// Tick advances continuous time by seconds and renders. When the
// document declares a timer interval, one docstep runs for each whole
// interval the accumulated time crosses. Time is accumulated in whole
// microseconds so repeated ticks do not drift. A tick that would run more
// than MaxTickSteps docsteps fails with ErrTickTooLarge and changes nothing.
func (r *Renderer) Tick(seconds float64) (*ir.Document, error) {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, ErrNegativeTime
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.autoAdvance {
		if d, ok := r.rt.IntervalHint().Duration(); ok && d > 0 {
			intervalUS := max(d.Microseconds(), 1)
			us := math.Round(seconds * 1e6)
			if (float64(r.carryUS)+us)/float64(intervalUS) > MaxTickSteps {
				return nil, fmt.Errorf("%w: %gs at %v per docstep", ErrTickTooLarge, seconds, d)
			}
			r.carryUS += int64(us)
			steps := r.carryUS / intervalUS
			r.carryUS %= intervalUS
			for i := int64(0); i < steps; i++ {
				r.rt.Step()
			}
			if steps > 0 {
				r.logger.Debug("tick advanced docsteps",
					slog.Int64("steps", steps),
					slog.Float64("time", r.time+seconds))
			}
		}
	}
	r.time += seconds
	return r.render()
}

// Step advances n docsteps and renders. n <= 0 only renders.
func (r *Renderer) Step(n int) (*ir.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < n; i++ {
		r.rt.Step()
	}
	return r.render()
}

// ApplyEvent forwards an event to the kernel.
func (r *Renderer) ApplyEvent(ev ast.Event) kernel.EventOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rt.ApplyEvent(ev)
}

// Reset returns the session to docstep 0 and time 0.
func (r *Renderer) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.rt.Reset(); err != nil {
		return err
	}
	r.time, r.carryUS = 0, 0
	return nil
}

// Status reports the current docstep, time and seed.
func (r *Renderer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{Docstep: r.rt.Docstep(), Time: r.time, Seed: r.seed}
}

// Snapshot returns the current kernel snapshot.
func (r *Renderer) Snapshot() kernel.Snapshot {
	return r.rt.Snapshot()
}

// Document returns the source document.
func (r *Renderer) Document() *ast.Document { return r.doc }

// IntervalHint returns the kernel's current docstep interval hint.
func (r *Renderer) IntervalHint() kernel.IntervalHint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rt.IntervalHint()
}
