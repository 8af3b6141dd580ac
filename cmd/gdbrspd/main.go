// The gdbrspd command is the daemon entry point: it loads a target
// descriptor, binds a TCP listener, and serves the GDB Remote Serial
// Protocol against a target.Controller (the built-in simulated driver
// until a real probe backend is wired in).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gdbrspd",
		Short: "GDB Remote Serial Protocol bridge for embedded debug probes",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newShowTargetCmd())
	return root
}
