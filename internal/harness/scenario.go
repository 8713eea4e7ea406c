package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run of one document: a sequence of steps, ticks
// and events followed by expectations on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the path of the Flux document to run. Relative paths
	// resolve against the scenario file's directory.
	Document string `yaml:"document"`

	// Seed is the session seed. Default 0.
	Seed int64 `yaml:"seed"`

	// Actions run in order after the document is initialised.
	Actions []Action `yaml:"actions"`

	// Expect is checked against the state after the last action.
	Expect Expect `yaml:"expect"`
}

// Action is exactly one of step, tick or event.
type Action struct {
	// Step advances this many docsteps.
	Step *int `yaml:"step,omitempty"`

	// Tick advances continuous time by this many seconds.
	Tick *float64 `yaml:"tick,omitempty"`

	// Event is applied without advancing the docstep.
	Event *EventSpec `yaml:"event,omitempty"`
}

// EventSpec is an event as written in a scenario file.
type EventSpec struct {
	Type     string         `yaml:"type"`
	Source   string         `yaml:"source,omitempty"`
	Location *LocationSpec  `yaml:"location,omitempty"`
	Payload  map[string]any `yaml:"payload,omitempty"`
}

// LocationSpec addresses one cell by index or by row and column.
type LocationSpec struct {
	Grid  string `yaml:"grid"`
	Index *int   `yaml:"index,omitempty"`
	Row   *int   `yaml:"row,omitempty"`
	Col   *int   `yaml:"col,omitempty"`
}

// Expect holds the checks run after the last action. Unset fields are
// not checked.
type Expect struct {
	Docstep *int64   `yaml:"docstep,omitempty"`
	Time    *float64 `yaml:"time,omitempty"`

	// Params is a subset match on parameter values.
	Params map[string]any `yaml:"params,omitempty"`

	// SlotsChanged lists the slots the last action changed, in any order.
	SlotsChanged []string `yaml:"slots_changed,omitempty"`

	// Slots maps slot ids to their expected inner markup.
	Slots map[string]string `yaml:"slots,omitempty"`

	// EventsApplied counts events the kernel accepted over the whole run.
	EventsApplied *int `yaml:"events_applied,omitempty"`
}

// Kind names the action for traces and errors.
func (a Action) Kind() string {
	switch {
	case a.Step != nil:
		return "step"
	case a.Tick != nil:
		return "tick"
	case a.Event != nil:
		return "event"
	}
	return ""
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos do not silently skip checks.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario, resolving the document path
// relative to basePath instead of the scenario's directory.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) && basePath != "" {
		scenario.Document = filepath.Join(basePath, scenario.Document)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Document == "" {
		return fmt.Errorf("document is required")
	}
	if _, err := os.Stat(s.Document); os.IsNotExist(err) {
		return fmt.Errorf("document not found: %s", s.Document)
	}
	if len(s.Actions) == 0 {
		return fmt.Errorf("actions list is required and must be non-empty")
	}

	for i, a := range s.Actions {
		if err := validateAction(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAction(index int, a Action) error {
	set := 0
	for _, ok := range []bool{a.Step != nil, a.Tick != nil, a.Event != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("actions[%d]: exactly one of step, tick or event is required", index)
	}

	switch {
	case a.Step != nil && *a.Step < 0:
		return fmt.Errorf("actions[%d]: step must be non-negative", index)
	case a.Tick != nil && (*a.Tick < 0 || math.IsNaN(*a.Tick) || math.IsInf(*a.Tick, 0)):
		return fmt.Errorf("actions[%d]: tick must be finite and non-negative", index)
	case a.Event != nil && a.Event.Type == "":
		return fmt.Errorf("actions[%d]: event type is required", index)
	}
	return nil
}
