package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cbassuarez/flux/internal/check"
)

// CheckFileResult is the check outcome for one document.
type CheckFileResult struct {
	Path        string             `json:"path"`
	OK          bool               `json:"ok"`
	Diagnostics []check.Diagnostic `json:"diagnostics,omitempty"`
	Error       string             `json:"error,omitempty"` // load failure
}

// CheckResult holds the outcome for every checked document.
type CheckResult struct {
	Files  []CheckFileResult `json:"files"`
	Passed int               `json:"passed"`
	Failed int               `json:"failed"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <files...>",
		Short: "Run static checks on documents",
		Long: `Load each document and report static diagnostics: rules bound to
unknown grids, duplicate grids, unsupported topologies, and body or asset
references to names the document does not declare.

Every file is checked even when an earlier one fails.

Exit codes:
  0 - No diagnostics
  1 - At least one document failed to load or has diagnostics

Examples:
  flux check doc.json
  flux check docs/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := CheckResult{Files: make([]CheckFileResult, 0, len(files))}
	for _, file := range files {
		fr := checkFile(file)
		formatter.VerboseLog("checked %s: %d diagnostic(s)", file, len(fr.Diagnostics))
		if fr.OK {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Files = append(result.Files, fr)
	}

	message := fmt.Sprintf("%d of %d document(s) failed checks", result.Failed, len(files))
	if opts.Format == "json" {
		return reportJSON(cmd.OutOrStdout(), result, result.Failed > 0, ErrCodeCheckFailed, message)
	}

	outputCheckText(cmd, result)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, message)
	}
	return nil
}

func checkFile(file string) CheckFileResult {
	loaded, err := loadDocument(file)
	if err != nil {
		return CheckFileResult{Path: file, Error: err.Error()}
	}
	diags := check.Check(loaded.Doc)
	return CheckFileResult{Path: file, OK: len(diags) == 0, Diagnostics: diags}
}

func outputCheckText(cmd *cobra.Command, result CheckResult) {
	w := cmd.OutOrStdout()
	for _, fr := range result.Files {
		switch {
		case fr.Error != "":
			fmt.Fprintf(w, "✗ %s\n  %s\n", fr.Path, fr.Error)
		case fr.OK:
			fmt.Fprintf(w, "✓ %s\n", fr.Path)
		default:
			fmt.Fprintf(w, "✗ %s\n", fr.Path)
			for _, d := range fr.Diagnostics {
				fmt.Fprintf(w, "  [%s] %s\n", d.Code, check.Format(fr.Path, d))
			}
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", result.Passed, result.Failed)
}
