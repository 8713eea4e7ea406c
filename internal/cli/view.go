package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbassuarez/flux/internal/store"
	"github.com/cbassuarez/flux/internal/viewer"
)

// shutdownTimeout bounds how long in-flight requests get on exit.
const shutdownTimeout = 5 * time.Second

// ViewOptions holds flags for the view command.
type ViewOptions struct {
	*RootOptions
	Addr     string
	Database string
	Seed     int64

	// Ready, when set, receives the listening address once the server
	// accepts connections (for testing).
	Ready func(addr string)
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	return newViewCommand(&ViewOptions{RootOptions: rootOpts})
}

func newViewCommand(opts *ViewOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Serve a document in the live viewer",
		Long: `Open a document in a viewer session and serve it over HTTP. The page
polls for slot patches, advances with the document's timer and accepts
events at /sessions/{id}/events.

With --db every docstep and event is journaled for "flux replay".

Example:
  flux view doc.json
  flux view doc.yaml --addr 127.0.0.1:9000 --db ./flux.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal sessions into this SQLite database")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed")

	return cmd
}

func runView(opts *ViewOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr(), slog.LevelInfo)

	managerOpts := []viewer.Option{viewer.WithLogger(logger), viewer.WithSeed(opts.Seed)}
	if opts.Database != "" {
		logger.Info("opening journal", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		managerOpts = append(managerOpts, viewer.WithStore(st))
	}
	m := viewer.NewManager(managerOpts...)
	defer m.CloseAll()

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	s, err := m.Open(ctx, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open document", err)
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	srv := &http.Server{
		Handler:           viewer.NewHandler(m).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	addr := ln.Addr().String()
	logger.Info("viewer listening", "addr", addr, "session", s.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Viewing %s at http://%s/sessions/%s\n", s.Status().Title, addr, s.ID)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.Ready != nil {
		opts.Ready(addr)
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "viewer error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "viewer shutdown", err)
	}
	logger.Info("viewer stopped gracefully")
	return nil
}
