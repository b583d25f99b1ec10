package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/semevo/pkg/mcp"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the interval models as tools that AI agents can
discover and invoke:
  - semevo_generalize: Run the generalization model
  - semevo_specialize: Run the specialization model
  - semevo_cover: Covering analysis of an interval population

Logs are written to stderr as JSON. Tool defaults come from the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mcpOpts := *g
			mcpOpts.LogJSON = true

			sess, err := openSession(cmd, &mcpOpts, observability.ModeMCP, false)
			if err != nil {
				return err
			}
			defer sess.close()

			red, err := observability.NewREDMetrics(sess.providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  sess.logger(),
				Metrics: red,
				Tracer:  sess.providers.Tracer,
				Config:  sess.cfg,
			})

			return srv.Run(cmd.Context())
		},
	}

	return cmd
}
