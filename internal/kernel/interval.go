package kernel

import (
	"fmt"
	"time"

	"github.com/cbassuarez/flux/internal/ast"
)

// DefaultTempo is the beats-per-minute used when a beat-based advance
// does not come with a tempo.
const DefaultTempo = 60.0

// IntervalHint is a suggested real-time interval between docsteps.
// MS is nil for manual-only documents; Reason explains why.
type IntervalHint struct {
	MS     *float64
	Reason string
}

// Duration returns the hint as a time.Duration, or false when there is none.
func (h IntervalHint) Duration() (time.Duration, bool) {
	if h.MS == nil {
		return 0, false
	}
	return time.Duration(*h.MS * float64(time.Millisecond)), true
}

// DocstepIntervalHint derives the docstep interval from the document's
// runtime.docstepAdvance. Beat units use runtime.tempo, overridden by a
// numeric "tempo" parameter in state when one exists.
func DocstepIntervalHint(doc *ast.Document, s *State) IntervalHint {
	adv := doc.Runtime.DocstepAdvance
	if adv == nil || adv.Kind != "timer" {
		return IntervalHint{Reason: "document declares no timer-based docstep advance"}
	}
	if adv.Amount <= 0 {
		return IntervalHint{Reason: fmt.Sprintf("docstep advance amount %v must be positive", adv.Amount)}
	}

	var ms float64
	reason := fmt.Sprintf("timer advance every %v %s", adv.Amount, adv.Unit)
	switch adv.Unit {
	case "ms":
		ms = adv.Amount
	case "s", "":
		ms = adv.Amount * 1000
	case "m":
		ms = adv.Amount * 60_000
	case "beats", "beat":
		tempo := doc.Runtime.Tempo
		if s != nil {
			if v, ok := s.Param("tempo"); ok && v.Kind == ast.NumberKind && v.Num > 0 {
				tempo = v.Num
			}
		}
		if tempo <= 0 {
			tempo = DefaultTempo
			reason += fmt.Sprintf(" at default tempo %v bpm", DefaultTempo)
		} else {
			reason += fmt.Sprintf(" at %v bpm", tempo)
		}
		ms = adv.Amount * 60_000 / tempo
	default:
		return IntervalHint{Reason: fmt.Sprintf("unknown docstep advance unit %q", adv.Unit)}
	}
	return IntervalHint{MS: &ms, Reason: reason}
}
