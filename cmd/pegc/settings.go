package main

import (
	"github.com/spf13/cobra"
)

func newSettingsCommand(gp *globalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "List the compiler settings",
		Long:  "List the compiler settings after applying the config file and --set, sorted by name.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			gp.config.Write(gp.stdout)
		},
	}
}
