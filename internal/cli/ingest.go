package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file|->",
		Short: "Record a webhook payload from a file",
		Long: `Record a form webhook payload as a pending submission, exactly as
POST /webhook would. Use "-" to read the payload from stdin.

Example:
  kickoff ingest ./response.json
  curl -s https://example.test/last | kickoff ingest -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runIngest(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	raw, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		_ = f.Error(CodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read payload", err)
	}

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	sub, err := a.engine.Ingest(commandContext(cmd.Context()), raw)
	if err != nil {
		return f.EngineError("ingest failed", err)
	}

	if f.Format == "json" {
		return f.Success(sub)
	}
	fmt.Fprintf(f.Writer, "✓ Recorded submission %s (%s)\n", sub.ID, categoryLabel(sub.Category))
	f.VerboseLog("Backup: %s", sub.BackupRef)
	return nil
}

// categoryLabel shows an empty category readably.
func categoryLabel(category string) string {
	if category == "" {
		return "no form name"
	}
	return category
}
