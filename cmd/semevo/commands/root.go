package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the semevo command tree.
func NewRootCommand() *cobra.Command {
	var g GlobalOptions

	rootCmd := &cobra.Command{
		Use:   "semevo",
		Short: "Semantic evolution interval models",
		Long: `semevo simulates the generalization and specialization models of semantic
evolution on [0,1] and analyzes the rank-size and covering statistics of the
resulting interval populations.

Commands:
  generalize  Run the generalization model once
  specialize  Run the specialization model once
  sweep       Run the configured parameter grid in parallel
  cover       Analyze stored run records
  mcp         Serve the models over MCP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	g.Bind(rootCmd)

	rootCmd.AddCommand(
		NewGeneralizeCommand(&g),
		NewSpecializeCommand(&g),
		NewSweepCommand(&g),
		NewCoverCommand(&g),
		NewMCPCommand(&g),
		NewConfigCommand(&g),
		NewVersionCommand(),
	)

	return rootCmd
}
