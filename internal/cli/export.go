package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/kickoff/internal/submission"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Status string
	Out    string
}

// ExportResult is reported after writing an export file.
type ExportResult struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export submissions as CSV",
		Long: `Export submissions as CSV with the columns
id, category, status, created_at, decided_at, payload.

Without --out the CSV is written to stdout.

Example:
  kickoff export --out applications.csv
  kickoff export --status pending`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "only export this status (pending|approved|rejected)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	var filter *submission.Status
	if opts.Status != "" {
		st, err := submission.ParseStatus(opts.Status)
		if err != nil {
			_ = f.Error(CodeInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --status", err)
		}
		filter = &st
	}

	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := commandContext(cmd.Context())

	if opts.Out == "" {
		n, err := a.engine.Export(ctx, cmd.OutOrStdout(), filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "export failed", err)
		}
		f.VerboseLog("Exported %d row(s)", n)
		return nil
	}

	file, err := os.Create(opts.Out)
	if err != nil {
		_ = f.Error(CodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	n, err := a.engine.Export(ctx, file, filter)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(opts.Out)
		return f.EngineError("export failed", err)
	}

	if f.Format == "json" {
		return f.Success(ExportResult{Path: opts.Out, Rows: n})
	}
	fmt.Fprintf(f.Writer, "✓ Exported %d submission(s) to %s\n", n, opts.Out)
	return nil
}
