// Command kickoff runs the form submission moderation service and its
// admin tooling.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/kickoff/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
