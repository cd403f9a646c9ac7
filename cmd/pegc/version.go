package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pegkit/pegc"
)

func newVersionCommand(gp *globalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of pegc",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(gp.stdout, "Version: "+pegc.Version)
			fmt.Fprintln(gp.stdout, "Go Version: "+runtime.Version())
		},
	}
}
