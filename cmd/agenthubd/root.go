package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "agenthubd",
		Short:         "agenthubd: multi-agent session hub",
		Long:          "agenthubd serves multi-client agent sessions over websockets, with orchestrated and handoff-routed agent profiles.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
