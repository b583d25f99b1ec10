package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/semevo/pkg/config"
)

// NewConfigCommand creates the command printing the effective configuration.
func NewConfigCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, the config file and
SEMEVO_* environment variables (e.g. SEMEVO_SWEEP_WORKERS=8).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}

			return cfg.Dump(cmd.OutOrStdout())
		},
	}
}
