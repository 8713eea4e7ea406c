package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cbassuarez/flux/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out       string
	As        string
	ChromeURL string
	Seed      int64
	Docstep   int
	Time      float64
}

// ExportResult reports a written export.
type ExportResult struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format"`
	Bytes  int    `json:"bytes"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a document as HTML, Markdown or PDF",
		Long: `Render a document at a fixed position and export it.

The format comes from --as, or from the extension of --out. HTML and
Markdown may be written to stdout; PDF needs --out. PDF export drives a
headless Chrome, launched locally unless --chrome points at a running one.

Examples:
  flux export doc.json --out doc.html
  flux export doc.json --as md
  flux export doc.yaml --out doc.pdf --docstep 4 --chrome ws://127.0.0.1:9222/devtools/browser/...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.As, "as", "", "export format (html|md|pdf)")
	cmd.Flags().StringVar(&opts.ChromeURL, "chrome", "", "DevTools URL of a running Chrome for PDF export")
	addPositionFlags(cmd, &opts.Seed, &opts.Docstep, &opts.Time)

	return cmd
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	format, err := exportFormat(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid export format", err)
	}
	if format == export.FormatPDF && opts.Out == "" {
		return NewExitError(ExitCommandError, "pdf export needs --out")
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr(), slog.LevelWarn)
	doc, err := renderAt(path, opts.Seed, opts.Docstep, opts.Time, logger)
	if err != nil {
		return err
	}

	exporterOpts := []export.Option{export.WithLogger(logger)}
	if format == export.FormatPDF {
		ts := &export.RodTypesetter{ControlURL: opts.ChromeURL, Logger: logger}
		defer ts.Close()
		exporterOpts = append(exporterOpts, export.WithTypesetter(ts))
	}

	data, err := export.NewExporter(exporterOpts...).Export(commandContext(cmd), doc, format)
	if err != nil {
		return WrapExitError(ExitCommandError, "export failed", err)
	}

	if opts.Out == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}

	result := ExportResult{Path: opts.Out, Format: string(format), Bytes: len(data)}
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("wrote %s (%d bytes)", result.Path, result.Bytes))
}

func exportFormat(opts *ExportOptions) (export.Format, error) {
	if opts.As != "" {
		return export.ParseFormat(opts.As)
	}
	if ext := filepath.Ext(opts.Out); ext != "" {
		return export.ParseFormat(ext[1:])
	}
	return export.FormatHTML, nil
}
