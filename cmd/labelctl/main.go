// Command labelctl checks classification result lists offline against a
// control schema, using the same binding and validation code as the server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess  = 0
	exitFindings = 1
	exitError    = 2
)

// errFindings signals a command that ran cleanly but found problems.
var errFindings = errors.New("findings reported")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "labelctl",
		Short:         "Inspect classification result lists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newValidateCmd(),
		newRoundTripCmd(),
		newNormalizeCmd(),
	)

	return root
}

func main() {
	err := newRootCmd().Execute()
	switch {
	case err == nil:
		os.Exit(exitSuccess)
	case errors.Is(err, errFindings):
		os.Exit(exitFindings)
	default:
		fmt.Fprintf(os.Stderr, "labelctl: %v\n", err)
		os.Exit(exitError)
	}
}
