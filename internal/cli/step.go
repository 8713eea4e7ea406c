package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/render"
	"github.com/cbassuarez/flux/internal/store"
)

// StepOptions holds flags for the step command.
type StepOptions struct {
	*RootOptions
	Steps    int
	Seed     int64
	Database string // optional journal
}

// NewStepCommand creates the step command.
func NewStepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "step <file>",
		Short: "Advance a document by docsteps",
		Long: `Advance a document N docsteps from its initial state and print the
resulting position and slot contents. With --format json the full render
IR is printed.

With --db every docstep is journaled as a snapshot so the run can be
verified later with "flux replay".

Examples:
  flux step doc.json -n 3
  flux step doc.yaml -n 10 --seed 42 --db ./flux.db
  flux step doc.cue -n 1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Steps, "steps", "n", 1, "number of docsteps to advance")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run into this SQLite database")

	return cmd
}

func runStep(opts *StepOptions, path string, cmd *cobra.Command) error {
	if opts.Steps < 0 {
		return NewExitError(ExitCommandError, "steps must be non-negative")
	}
	ctx := commandContext(cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr(), slog.LevelWarn)

	loaded, err := loadDocument(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}
	r, err := render.NewRenderer(loaded.Doc, render.WithSeed(opts.Seed), render.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialise document", err)
	}

	var (
		doc       *ir.Document
		sessionID string
	)
	if opts.Database == "" {
		doc, err = r.Step(opts.Steps)
	} else {
		doc, sessionID, err = journaledSteps(ctx, opts, loaded, r)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to step document", err)
	}
	return outputPosition(newFormatter(opts.RootOptions, cmd), doc, sessionID)
}

// journaledSteps steps one docstep at a time, writing the snapshot each
// docstep reaches.
func journaledSteps(ctx context.Context, opts *StepOptions, loaded *loadedDocument, r *render.Renderer) (*ir.Document, string, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, "", err
	}
	defer st.Close()

	sess, err := st.CreateSession(ctx, loaded.Path, loaded.Hash, opts.Seed)
	if err != nil {
		return nil, "", err
	}
	if err := st.WriteSnapshot(ctx, sess.ID, r.Snapshot()); err != nil {
		return nil, "", err
	}

	doc, err := r.Render()
	for i := 0; i < opts.Steps && err == nil; i++ {
		doc, err = r.Step(1)
		if err == nil {
			err = st.WriteSnapshot(ctx, sess.ID, r.Snapshot())
		}
	}
	if err != nil {
		return nil, "", err
	}
	return doc, sess.ID, nil
}

// TickOptions holds flags for the tick command.
type TickOptions struct {
	*RootOptions
	Seconds float64
	Seed    int64
}

// NewTickCommand creates the tick command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TickOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tick <file>",
		Short: "Advance a document in time",
		Long: `Advance continuous time by the given number of seconds. Documents with
a timer docstep advance one docstep for every whole interval crossed.

Examples:
  flux tick doc.json --seconds 2.5
  flux tick doc.json --seconds 10 --seed 3 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTick(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Seconds, "seconds", 0, "seconds to advance")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed")

	return cmd
}

func runTick(opts *TickOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr(), slog.LevelWarn)

	loaded, err := loadDocument(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}
	r, err := render.NewRenderer(loaded.Doc, render.WithSeed(opts.Seed), render.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialise document", err)
	}

	doc, err := r.Tick(opts.Seconds)
	if errors.Is(err, render.ErrNegativeTime) || errors.Is(err, render.ErrTickTooLarge) {
		return WrapExitError(ExitCommandError, "invalid --seconds", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to tick document", err)
	}
	return outputPosition(newFormatter(opts.RootOptions, cmd), doc, "")
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (tests calling RunE directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
