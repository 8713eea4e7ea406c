package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Action is a rule effect. Only Set, AddTag and RemoveTag implement it.
type Action interface {
	actionNode()
}

// Set writes the value of an expression to a cell field or parameter.
type Set struct {
	Target Target
	Value  Expr
}

// AddTag adds a tag to the current cell.
type AddTag struct {
	Tag string
}

// RemoveTag removes a tag from the current cell.
type RemoveTag struct {
	Tag string
}

func (Set) actionNode()       {}
func (AddTag) actionNode()    {}
func (RemoveTag) actionNode() {}

// TargetScope says whether a Set writes a cell field or a parameter.
type TargetScope int

const (
	TargetCell TargetScope = iota + 1
	TargetParam
)

// Target is a parsed assignment target.
type Target struct {
	Scope TargetScope
	Name  string
}

func (t Target) String() string {
	if t.Scope == TargetCell {
		return "cell." + t.Name
	}
	return "param." + t.Name
}

// writableCellFields are the cell fields a Set may assign.
var writableCellFields = []string{"content", "mediaId", "dynamic", "density", "salience"}

// ParseTarget parses "cell.<field>" or "param.<name>".
func ParseTarget(s string) (Target, error) {
	head, rest, _ := strings.Cut(s, ".")
	switch head {
	case "cell":
		if isCellField(rest, writableCellFields) {
			return Target{Scope: TargetCell, Name: rest}, nil
		}
		return Target{}, fmt.Errorf("cell field %q is not writable", rest)
	case "param":
		if rest != "" {
			return Target{Scope: TargetParam, Name: rest}, nil
		}
	}
	return Target{}, fmt.Errorf("invalid set target %q", s)
}

// Actions is a decoded action list.
type Actions []Action

// UnmarshalJSON decodes each element by its kind discriminator.
func (a *Actions) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = nil
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	out := make(Actions, 0, len(raws))
	for i, raw := range raws {
		act, err := DecodeAction(raw)
		if err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
		out = append(out, act)
	}
	*a = out
	return nil
}

// DecodeAction decodes a single action.
func DecodeAction(data json.RawMessage) (Action, error) {
	var raw struct {
		Kind   string          `json:"kind"`
		Target string          `json:"target"`
		Value  json.RawMessage `json:"value"`
		Tag    string          `json:"tag"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Kind {
	case "set":
		target, err := ParseTarget(raw.Target)
		if err != nil {
			return nil, err
		}
		value, err := DecodeExpr(raw.Value)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", raw.Target, err)
		}
		if value == nil {
			value = Lit{Value: Null()}
		}
		return Set{Target: target, Value: value}, nil
	case "addTag", "removeTag":
		if raw.Tag == "" {
			return nil, fmt.Errorf("%s requires a tag", raw.Kind)
		}
		if raw.Kind == "addTag" {
			return AddTag{Tag: raw.Tag}, nil
		}
		return RemoveTag{Tag: raw.Tag}, nil
	}
	return nil, fmt.Errorf("unknown action kind %q", raw.Kind)
}
