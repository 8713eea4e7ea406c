package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "../../testdata/scenarios"

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
	require.NoError(t, err)
	return s
}

// writeScenario writes a scenario that runs the counter document.
func writeScenario(t *testing.T, body string) string {
	t.Helper()
	doc, err := filepath.Abs("../../testdata/docs/counter.yaml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	content := "document: " + doc + "\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCounterEvents(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "counter_events"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 4)
	assert.Equal(t, []string{"step"}, result.Trace[0].Changed)
	assert.Equal(t, []string{"mood"}, result.Trace[1].Changed)
	assert.Empty(t, result.Trace[2].Changed)
	assert.Equal(t, "event", result.Trace[1].Action)
	assert.Equal(t, "param.set", result.Trace[1].Arg)
	require.NotNil(t, result.Trace[1].Applied)
	assert.True(t, *result.Trace[1].Applied)
	assert.NotEmpty(t, result.SnapshotHash)
	assert.NotEmpty(t, result.DocumentHash)
}

func TestRunShowcaseScenarios(t *testing.T) {
	for _, name := range []string{"showcase_timer", "showcase_events"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunIsDeterministic(t *testing.T) {
	s := loadTestScenario(t, "showcase_events")
	a, err := Run(s)
	require.NoError(t, err)
	b, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, a.SnapshotHash, b.SnapshotHash)
	assert.Equal(t, a.DocumentHash, b.DocumentHash)
	assert.Equal(t, a.Trace, b.Trace)
}

func TestRunReportsFailedExpectations(t *testing.T) {
	path := writeScenario(t, `name: wrong
description: "every expectation is off"
actions:
  - step: 1
expect:
  docstep: 4
  time: 2
  params: {mood: grim}
  slots_changed: [mood]
  slots: {step: "9"}
  events_applied: 2
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "Assertion failed: docstep")
	assert.Contains(t, result.Errors[0], "Actual: docstep 1")
	assert.Contains(t, result.Errors[2], `mood = "calm"`)
	assert.Contains(t, result.Errors[4], `step = "1"`)
}

func TestRunUnknownParamAndSlot(t *testing.T) {
	path := writeScenario(t, `name: unknown
description: "names that do not exist"
actions:
  - step: 0
expect:
  params: {tempo: 1}
  slots: {nope: x}
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "not declared")
	assert.Contains(t, result.Errors[1], "no such slot")
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no name", "description: d\nactions: [{step: 1}]\n", "name is required"},
		{"no description", "name: n\nactions: [{step: 1}]\n", "description is required"},
		{"no actions", "name: n\ndescription: d\n", "actions list is required"},
		{"two kinds", "name: n\ndescription: d\nactions: [{step: 1, tick: 1}]\n", "exactly one of step, tick or event"},
		{"negative step", "name: n\ndescription: d\nactions: [{step: -1}]\n", "step must be non-negative"},
		{"negative tick", "name: n\ndescription: d\nactions: [{tick: -0.5}]\n", "tick must be finite"},
		{"untyped event", "name: n\ndescription: d\nactions: [{event: {payload: {}}}]\n", "event type is required"},
		{"unknown field", "name: n\ndescription: d\nactoins: []\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioMissingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: n\ndescription: d\ndocument: absent.json\nactions: [{step: 1}]\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document not found")
}

func TestRunDir(t *testing.T) {
	result, err := RunDir(scenarioDir)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 3, result.Passed)
	assert.True(t, result.OK(), "failures: %v", result.Failures)
}

func TestRunDirRecordsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	result, err := RunDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalScenarios)
	assert.False(t, result.OK())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad.yaml", result.Failures[0].Scenario)

	_, err = RunDir(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}
