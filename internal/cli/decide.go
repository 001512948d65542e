package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kickoff/internal/submission"
)

// NewDecideCommand creates the approve or reject command.
func NewDecideCommand(rootOpts *RootOptions, verb string) *cobra.Command {
	decision, err := submission.ParseDecision(verb)
	if err != nil {
		panic(err)
	}

	short := "Approve a pending submission and publish it"
	if decision == submission.DecisionReject {
		short = "Reject a pending submission"
	}

	cmd := &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Long: short + `.

Deciding a submission that is already decided changes nothing and exits
with code 1.

Example:
  kickoff ` + verb + ` a1b2c3d4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecide(rootOpts, args[0], decision, cmd)
		},
	}
	return cmd
}

func runDecide(opts *RootOptions, id string, decision submission.Decision, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.engine.Decide(commandContext(cmd.Context()), id, decision)
	if err != nil {
		return f.EngineError(string(decision)+" failed", err)
	}

	if f.Format == "json" {
		return f.Success(out.Submission)
	}
	if decision == submission.DecisionApprove {
		fmt.Fprintf(f.Writer, "✓ Approved %s\n", id)
		if out.Publication == nil {
			fmt.Fprintln(f.Writer, "  Not published: payload could not be decoded")
		}
		return nil
	}
	fmt.Fprintf(f.Writer, "✓ Rejected %s\n", id)
	return nil
}
