package store

import (
	"encoding/json"
	"fmt"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
)

// marshalEvent converts an event to canonical JSON TEXT for storage.
func marshalEvent(ev ast.Event) (string, error) {
	data, err := ev.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(data), nil
}

// unmarshalEvent converts a stored payload back into an event.
func unmarshalEvent(data string) (ast.Event, error) {
	var ev ast.Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return ast.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// unmarshalSnapshot parses a stored snapshot body.
func unmarshalSnapshot(data string) (ir.Object, error) {
	v, err := ir.ParseValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal snapshot: expected object, got %T", v)
	}
	return obj, nil
}
