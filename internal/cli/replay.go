package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbassuarez/flux/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID     string   `json:"session_id"`
	DocPath       string   `json:"doc_path"`
	Seed          int64    `json:"seed"`
	Snapshots     int      `json:"snapshots"`
	Events        int      `json:"events"`
	DocChanged    bool     `json:"doc_changed"`
	Deterministic bool     `json:"deterministic"`
	Divergences   []string `json:"divergences,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Re-run every journaled session from its document and seed, re-applying
journaled events at their docsteps, and compare each snapshot hash and
event outcome with the journal.

A session whose document can no longer be read counts as a failure. A
document that changed since it was journaled is reported; its replay
usually diverges.

Exit codes:
  0 - All sessions replayed identically
  1 - A session diverged or could not be replayed
  2 - Command error (database not found, etc.)

Examples:
  flux replay --db ./flux.db
  flux replay --db ./flux.db --session 0190c2a4-...
  flux replay --db ./flux.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	// store.Open would create an empty database.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.GetSession(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("session %s not found", opts.Session), err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}
	for _, sess := range sessions {
		sr := replaySession(ctx, st, sess)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
		result.Sessions = append(result.Sessions, sr)
	}

	if opts.Format == "json" {
		return reportJSON(cmd.OutOrStdout(), result, !result.AllDeterministic,
			ErrCodeReplayDiverged, "determinism verification failed")
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replaySession reloads the session's document and replays it. Load and
// replay failures are recorded on the result.
func replaySession(ctx context.Context, st *store.Store, sess store.Session) ReplaySessionResult {
	sr := ReplaySessionResult{SessionID: sess.ID, DocPath: sess.DocPath, Seed: sess.Seed}

	loaded, err := loadDocument(sess.DocPath)
	if err != nil {
		sr.Error = err.Error()
		return sr
	}
	res, err := st.Replay(ctx, sess.ID, loaded.Doc, loaded.Hash)
	if err != nil {
		sr.Error = err.Error()
		return sr
	}

	sr.Snapshots = res.Snapshots
	sr.Events = res.Events
	sr.DocChanged = res.DocChanged
	sr.Deterministic = res.OK()
	for _, d := range res.Divergences {
		sr.Divergences = append(sr.Divergences, d.String())
	}
	return sr
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, sess.SessionID)
		if verbose {
			fmt.Fprintf(w, "  Document: %s\n", sess.DocPath)
			fmt.Fprintf(w, "  Seed: %d\n", sess.Seed)
		}

		if sess.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", sess.Error)
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "  Journal: %d snapshots, %d events\n", sess.Snapshots, sess.Events)
		if sess.DocChanged {
			fmt.Fprintln(w, "  Warning: document changed since it was journaled")
		}
		for _, d := range sess.Divergences {
			fmt.Fprintf(w, "  Diverged: %s\n", d)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
