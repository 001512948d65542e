package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/kickoff/internal/render"
	"github.com/roach88/kickoff/internal/submission"
)

// timeLayout formats timestamps in text output.
const timeLayout = "2006-01-02 15:04:05"

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List submissions awaiting a decision",
		Long: `List pending submissions, newest first.

Example:
  kickoff pending
  kickoff pending --format json`,
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

			subs, err := a.engine.ListPending(commandContext(cmd.Context()))
			if err != nil {
				return f.EngineError("list failed", err)
			}

			if f.Format == "json" {
				return f.Success(subs)
			}
			if len(subs) == 0 {
				fmt.Fprintln(f.Writer, "No pending submissions.")
				return nil
			}
			for _, sub := range subs {
				fmt.Fprintf(f.Writer, "%s  %s  %s\n",
					sub.ID, sub.CreatedAt.Local().Format(timeLayout), categoryLabel(sub.Category))
			}
			fmt.Fprintf(f.Writer, "\n%d pending\n", len(subs))
			return nil
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one submission with its answers",
		Long: `Show a submission's status and answered fields.

Example:
  kickoff show a1b2c3d4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			sub, err := a.engine.Get(commandContext(cmd.Context()), args[0])
			if err != nil {
				return f.EngineError("show failed", err)
			}

			if f.Format == "json" {
				return f.Success(sub)
			}
			writeSubmission(f, sub)
			return nil
		},
	}
}

func writeSubmission(f *OutputFormatter, sub submission.Submission) {
	w := f.Writer
	fmt.Fprintf(w, "Submission %s\n", sub.ID)
	fmt.Fprintf(w, "  Form:     %s\n", categoryLabel(sub.Category))
	fmt.Fprintf(w, "  Status:   %s\n", sub.Status)
	fmt.Fprintf(w, "  Received: %s\n", sub.CreatedAt.Local().Format(timeLayout))
	if sub.DecidedAt != nil {
		fmt.Fprintf(w, "  Decided:  %s\n", sub.DecidedAt.Local().Format(timeLayout))
	}
	f.VerboseLog("Backup: %s", sub.BackupRef)

	p, err := sub.Parsed()
	if err != nil {
		fmt.Fprintf(w, "\n  (payload unreadable: %v)\n", err)
		return
	}
	fields := render.Visible(p.DisplayFields())
	if len(fields) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, field := range fields {
		fmt.Fprintf(w, "  %s %s: %s\n", render.Icon(field.Label), field.Label, field.Value)
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show submission counts",
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

			stats, err := a.engine.Stats(commandContext(cmd.Context()))
			if err != nil {
				return f.EngineError("stats failed", err)
			}

			if f.Format == "json" {
				return f.Success(stats)
			}
			writeStats(f, stats)
			return nil
		},
	}
}

func writeStats(f *OutputFormatter, stats submission.Stats) {
	w := f.Writer
	fmt.Fprintf(w, "Total:    %d\n", stats.Total)
	fmt.Fprintf(w, "Pending:  %d\n", stats.Pending)
	fmt.Fprintf(w, "Approved: %d\n", stats.Approved)
	fmt.Fprintf(w, "Rejected: %d\n", stats.Rejected)

	if len(stats.PerCategory) == 0 {
		return
	}
	categories := make([]string, 0, len(stats.PerCategory))
	for c := range stats.PerCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Fprintln(w, "\nBy form:")
	for _, c := range categories {
		fmt.Fprintf(w, "  %s: %d\n", categoryLabel(c), stats.PerCategory[c])
	}
}
