package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old decided submissions",
		Long: `Remove approved and rejected submissions received more than
--retention ago, along with their backups. Pending submissions are
never removed.

Example:
  kickoff cleanup
  kickoff cleanup --retention 2160h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			window := retention
			if window <= 0 {
				window = a.cfg.Retention
			}

			n, err := a.engine.Cleanup(commandContext(cmd.Context()), window)
			if err != nil {
				return f.EngineError("cleanup failed", err)
			}

			if f.Format == "json" {
				return f.Success(map[string]any{"deleted": n, "retention": window.String()})
			}
			fmt.Fprintf(f.Writer, "✓ Removed %d submission(s) older than %s\n", n, window)
			return nil
		},
	}

	cmd.Flags().DurationVar(&retention, "retention", 0, "retention window (default from config)")
	return cmd
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Rebuild missing submissions from backups",
		Long: `Recreate every journaled submission that is missing from the
database as pending. Submissions already present are left untouched, so
running restore twice is harmless.

Unreadable backups are reported and skipped; the exit code is 1 when any
backup failed.

Example:
  kickoff restore --db applications.db --journal backups`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Restore(commandContext(cmd.Context()))
			if err != nil {
				return f.EngineError("restore failed", err)
			}

			if f.Format == "json" {
				if err := f.Success(res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(f.Writer, "✓ Restored %d, skipped %d, scanned %d\n",
					res.Restored, res.Skipped, res.Scanned)
				if len(res.Failed) > 0 {
					fmt.Fprintf(f.Writer, "  Unreadable: %s\n", strings.Join(res.FailedIDs(), ", "))
				}
			}

			if len(res.Failed) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d backup(s) could not be restored", len(res.Failed)))
			}
			return nil
		},
	}
}
