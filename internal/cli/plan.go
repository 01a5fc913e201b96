package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/cli/render"
)

// NewPlanCmd creates the plan command
func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what deploy would do for each unit",
		Long: `Load the units file, order the units by dependency and compare them with the
address registry. Nothing is sent to the network.`,
		Example: `  catapult plan --network sepolia
  catapult plan --network sepolia --tags market`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			_, steps, err := app.DeployUnits.Plan(cmd.Context(), app.Config.Tags)
			if err != nil {
				return err
			}

			render.NewDeployRenderer(cmd.OutOrStdout()).RenderPlan(app.Config.Network.Name, steps)
			return nil
		},
	}

	cmd.Flags().StringSlice("tags", nil, "Only plan units with these tags (and their dependencies)")

	return cmd
}
