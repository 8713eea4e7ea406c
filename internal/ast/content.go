package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Content is the body of a text or slot node. A plain string decodes to
// Literal; objects decode to one of the dynamic forms.
type Content interface {
	contentNode()
}

// Literal is fixed text.
type Literal string

// ParamContent shows the current value of a parameter.
type ParamContent struct {
	Name string
}

// DocstepContent shows the current docstep.
type DocstepContent struct{}

// TimeContent shows elapsed seconds with Precision decimals.
type TimeContent struct {
	Precision int
}

// ChooseContent picks one option at random per period.
type ChooseContent struct {
	Options []string
	Per     Per
	Period  float64
}

// CycleContent steps through options in order, one per period.
type CycleContent struct {
	Options []string
	Per     Per
	Period  float64
}

func (Literal) contentNode()        {}
func (ParamContent) contentNode()   {}
func (DocstepContent) contentNode() {}
func (TimeContent) contentNode()    {}
func (ChooseContent) contentNode()  {}
func (CycleContent) contentNode()   {}

// Per is the clock a choose or cycle advances on.
type Per int

const (
	PerDocstep Per = iota + 1
	PerSeconds
)

func parsePer(s string) (Per, error) {
	switch s {
	case "", "docstep":
		return PerDocstep, nil
	case "seconds", "second", "s":
		return PerSeconds, nil
	}
	return 0, fmt.Errorf("unknown period unit %q", s)
}

// DecodeContent decodes node content. Missing content is nil.
func DecodeContent(data json.RawMessage) (Content, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Literal(s), nil
	}

	var raw struct {
		Param   *string  `json:"param"`
		Docstep *bool    `json:"docstep"`
		Time    *struct {
			Precision int `json:"precision"`
		} `json:"time"`
		Choose []string `json:"choose"`
		Cycle  []string `json:"cycle"`
		Per    string   `json:"per"`
		Period float64  `json:"period"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	switch {
	case raw.Param != nil:
		return ParamContent{Name: *raw.Param}, nil
	case raw.Docstep != nil && *raw.Docstep:
		return DocstepContent{}, nil
	case raw.Time != nil:
		if raw.Time.Precision < 0 {
			return nil, fmt.Errorf("time precision must not be negative")
		}
		return TimeContent{Precision: raw.Time.Precision}, nil
	case raw.Choose != nil, raw.Cycle != nil:
		per, err := parsePer(raw.Per)
		if err != nil {
			return nil, err
		}
		period := raw.Period
		if period <= 0 {
			period = 1
		}
		if raw.Choose != nil {
			if len(raw.Choose) == 0 {
				return nil, fmt.Errorf("choose requires at least one option")
			}
			return ChooseContent{Options: raw.Choose, Per: per, Period: period}, nil
		}
		if len(raw.Cycle) == 0 {
			return nil, fmt.Errorf("cycle requires at least one option")
		}
		return CycleContent{Options: raw.Cycle, Per: per, Period: period}, nil
	}
	return nil, fmt.Errorf("unrecognised content object %s", data)
}
