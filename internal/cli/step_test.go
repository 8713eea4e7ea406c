package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// positionResponse decodes the json output of step, tick and render.
type positionResponse struct {
	Status    string       `json:"status"`
	Data      PositionView `json:"data"`
	SessionID string       `json:"session_id"`
}

func TestStepText(t *testing.T) {
	out, err := execute(t, NewStepCommand(&RootOptions{Format: "text"}), counterDoc, "-n", "2", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Counter: docstep 2, time 0, seed 7")
	assert.Contains(t, out, `  step = "2"`)
	assert.Contains(t, out, `  mood = "calm"`)
	assert.NotContains(t, out, "journaled")
}

func TestStepJSON(t *testing.T) {
	out, err := execute(t, NewStepCommand(&RootOptions{Format: "json"}), counterDoc, "-n", "3")
	require.NoError(t, err)

	var resp positionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(3), resp.Data.Docstep)
	assert.Equal(t, "3", resp.Data.Slots["step"])
	assert.NotEmpty(t, resp.Data.DocumentHash)
	assert.Contains(t, string(resp.Data.Document), `"docstep":3`)
}

func TestStepIsDeterministic(t *testing.T) {
	run := func() PositionView {
		out, err := execute(t, NewStepCommand(&RootOptions{Format: "json"}), showcaseDoc, "-n", "4", "--seed", "11")
		require.NoError(t, err)
		var resp positionResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data
	}
	a, b := run(), run()
	assert.Equal(t, a.DocumentHash, b.DocumentHash)
	assert.Equal(t, a.Slots, b.Slots)
}

func TestStepJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "flux.db")

	out, err := execute(t, NewStepCommand(&RootOptions{Format: "json"}), counterDoc, "-n", "2", "--db", dbPath)
	require.NoError(t, err)
	var resp positionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.SessionID)

	out, err = execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)
	var replay struct {
		Data ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &replay))
	require.Len(t, replay.Data.Sessions, 1)
	assert.Equal(t, resp.SessionID, replay.Data.Sessions[0].SessionID)
	assert.Equal(t, 3, replay.Data.Sessions[0].Snapshots)
	assert.True(t, replay.Data.AllDeterministic)
}

func TestStepErrors(t *testing.T) {
	_, err := execute(t, NewStepCommand(&RootOptions{Format: "text"}), counterDoc, "-n", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, NewStepCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "READ_FAILED")

	_, err = execute(t, NewStepCommand(&RootOptions{Format: "text"}), brokenDoc)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to initialise document")
}

func TestTickAdvancesTimer(t *testing.T) {
	out, err := execute(t, NewTickCommand(&RootOptions{Format: "text"}), showcaseDoc, "--seconds", "2.5", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "docstep 2, time 2.5, seed 3")
	assert.Contains(t, out, `  clock = "2.5"`)
	assert.Contains(t, out, `  step = "2"`)
}

func TestTickWithoutTimer(t *testing.T) {
	out, err := execute(t, NewTickCommand(&RootOptions{Format: "json"}), counterDoc, "--seconds", "5")
	require.NoError(t, err)
	var resp positionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, int64(0), resp.Data.Docstep)
	assert.Equal(t, 5.0, resp.Data.Time)
}

func TestTickNegativeSeconds(t *testing.T) {
	_, err := execute(t, NewTickCommand(&RootOptions{Format: "text"}), counterDoc, "--seconds=-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --seconds")
}

func TestTickOversizedSeconds(t *testing.T) {
	_, err := execute(t, NewTickCommand(&RootOptions{Format: "text"}), showcaseDoc, "--seconds", "1e9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --seconds")
}
