// Package cmd implements the agentcore command line.
package cmd

import "github.com/spf13/cobra"

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "agentcore",
		Short:         "Execution core for a coding agent",
		Long:          "agentcore serves the session file store, the file tools and resumable model turns over HTTP, WebSocket and MCP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (yaml, json or toml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(&configPath),
		newCheckpointCmd(&configPath),
	)

	return rootCmd
}
