package harness

import "github.com/cbassuarez/flux/internal/ir"

// TraceEvent records one scenario action and what it changed.
type TraceEvent struct {
	Seq     int64    `json:"seq"`
	Action  string   `json:"action"` // "step", "tick" or "event"
	Arg     string   `json:"arg"`
	Docstep int64    `json:"docstep"`
	Time    float64  `json:"time"`
	Changed []string `json:"changed"`
	Applied *bool    `json:"applied,omitempty"` // events only
	Reason  string   `json:"reason,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held and the journal replayed
	// without divergence.
	Pass bool `json:"pass"`

	// Trace lists the actions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// SnapshotHash is the kernel snapshot hash after the last action.
	SnapshotHash string `json:"snapshot_hash"`

	// DocumentHash is the render IR hash after the last action.
	DocumentHash string `json:"document_hash"`

	// Final is the render IR after the last action.
	Final *ir.Document `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends a trace event with the next sequence number.
func (r *Result) addTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}

// lastChanged returns the slots changed by the final action.
func (r *Result) lastChanged() []string {
	if len(r.Trace) == 0 {
		return nil
	}
	return r.Trace[len(r.Trace)-1].Changed
}

// eventsApplied counts accepted events in the trace.
func (r *Result) eventsApplied() int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Applied != nil && *ev.Applied {
			n++
		}
	}
	return n
}
