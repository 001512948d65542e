package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kickoff/internal/engine"
)

// NewBulkCommand creates the bulk command group.
func NewBulkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Decide many pending submissions at once",
	}
	cmd.AddCommand(newBulkApproveCommand(rootOpts))
	cmd.AddCommand(newBulkRejectCommand(rootOpts))
	return cmd
}

func newBulkApproveCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve every pending submission of one form",
		Long: `Approve pending submissions whose form name matches --category.
Without --category every pending submission is approved.

Approvals are spaced by bulk_delay so the chat API is not flooded.

Example:
  kickoff bulk approve --category Student`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(rootOpts, cmd, func(a *app) (engine.BulkResult, error) {
				return a.engine.BulkApprove(commandContext(cmd.Context()), category)
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "form name to approve (default all)")
	return cmd
}

func newBulkRejectCommand(rootOpts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject pending submissions older than an age",
		Long: `Reject pending submissions received more than --older-than ago.
Defaults to the configured bulk_reject_age (7 days).

Example:
  kickoff bulk reject --older-than 336h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(rootOpts, cmd, func(a *app) (engine.BulkResult, error) {
				age := olderThan
				if age <= 0 {
					age = a.cfg.BulkRejectAge
				}
				return a.engine.BulkReject(commandContext(cmd.Context()), age)
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "minimum age (default bulk_reject_age)")
	return cmd
}

func runBulk(opts *RootOptions, cmd *cobra.Command, run func(*app) (engine.BulkResult, error)) error {
	f := newFormatter(opts, cmd)

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := run(a)
	if err != nil {
		// Cancellation keeps the partial counts.
		f.VerboseLog("Stopped after %d of %d", res.Succeeded, res.Matched)
		return f.EngineError("bulk operation failed", err)
	}

	if f.Format == "json" {
		return f.Success(res)
	}
	fmt.Fprintf(f.Writer, "✓ %d of %d succeeded\n", res.Succeeded, res.Matched)
	if len(res.Failed) > 0 {
		fmt.Fprintf(f.Writer, "  Failed: %s\n", strings.Join(res.FailedIDs(), ", "))
	}
	return nil
}
