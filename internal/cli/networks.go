package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/app"
	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/config"
)

// NewNetworksCmd creates the networks command
func NewNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the RPC endpoints of catapult.toml and their chain IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			uc, err := app.InitNetworks(config.SetupViper(projectRoot, cmd))
			if err != nil {
				return err
			}

			result, err := uc.Run(cmd.Context())
			if err != nil {
				return err
			}

			render.NewNetworksRenderer(cmd.OutOrStdout()).RenderNetworks(result)
			return nil
		},
	}
}
