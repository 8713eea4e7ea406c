package ast

import (
	"encoding/json"
	"fmt"

	"github.com/cbassuarez/flux/internal/ir"
)

// EventType is the closed set of event types the kernel understands.
type EventType int

const (
	EventParamSet EventType = iota + 1
	EventCellSet
	EventCellTag
	EventInput
	EventSensor
)

var eventTypeNames = map[EventType]string{
	EventParamSet: "param.set",
	EventCellSet:  "cell.set",
	EventCellTag:  "cell.tag",
	EventInput:    "input",
	EventSensor:   "sensor",
}

func (t EventType) String() string { return eventTypeNames[t] }

// ParseEventType maps a wire type to an EventType. Unknown types return
// false and must be ignored by the caller.
func ParseEventType(s string) (EventType, bool) {
	for t, name := range eventTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// Event is an out-of-band input applied without advancing the docstep.
type Event struct {
	Type      string    `json:"type"`
	Source    string    `json:"source,omitempty"`
	Location  *Location `json:"location,omitempty"`
	Payload   ir.Object `json:"payload,omitempty"`
	Timestamp float64   `json:"timestamp,omitempty"`
}

// Location addresses one cell by linear index or by (row, col).
type Location struct {
	Grid  string `json:"grid"`
	Index *int   `json:"index,omitempty"`
	Row   *int   `json:"row,omitempty"`
	Col   *int   `json:"col,omitempty"`
}

// UnmarshalJSON decodes an event, keeping payload values as IR values.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      string          `json:"type"`
		Source    string          `json:"source"`
		Location  *Location       `json:"location"`
		Payload   json.RawMessage `json:"payload"`
		Timestamp float64         `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ev := Event{Type: raw.Type, Source: raw.Source, Location: raw.Location, Timestamp: raw.Timestamp}
	if len(raw.Payload) > 0 {
		v, err := ir.ParseValue(raw.Payload)
		if err != nil {
			return fmt.Errorf("event payload: %w", err)
		}
		switch obj := v.(type) {
		case ir.Object:
			ev.Payload = obj
		case ir.Null:
		default:
			return fmt.Errorf("event payload must be an object")
		}
	}
	*e = ev
	return nil
}

// MarshalJSON writes the event in canonical form for journaling.
func (e Event) MarshalJSON() ([]byte, error) {
	obj := ir.Object{"type": ir.String(e.Type)}
	if e.Source != "" {
		obj["source"] = ir.String(e.Source)
	}
	if e.Location != nil {
		loc := ir.Object{"grid": ir.String(e.Location.Grid)}
		if e.Location.Index != nil {
			loc["index"] = ir.Int(*e.Location.Index)
		}
		if e.Location.Row != nil {
			loc["row"] = ir.Int(*e.Location.Row)
		}
		if e.Location.Col != nil {
			loc["col"] = ir.Int(*e.Location.Col)
		}
		obj["location"] = loc
	}
	if e.Payload != nil {
		obj["payload"] = e.Payload
	}
	if e.Timestamp != 0 {
		obj["timestamp"] = ir.Float(e.Timestamp)
	}
	return ir.MarshalCanonical(obj)
}
