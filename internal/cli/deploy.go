package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// NewDeployCmd creates the deploy command
func NewDeployCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy, reuse or upgrade every declared unit",
		Long: `Bring every unit of the units file to its declared state on the selected network.

Units are processed one at a time in dependency order:
- a unit with no address record is deployed behind a new proxy and initialized
- a unit whose implementation changed is upgraded, keeping its proxy
- anything else is reused without sending a transaction

The first failure stops the run. Units completed before it stay recorded, so
running deploy again resumes where it stopped. Ctrl-C stops before the next
unit; a transaction already sent is waited for.`,
		Example: `  # Deploy everything to the sepolia endpoint from catapult.toml
  catapult deploy --network sepolia

  # Deploy the units tagged market and their dependencies
  catapult deploy --network sepolia --tags market

  # Show what would happen without sending anything
  catapult deploy --network sepolia --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			renderer := render.NewDeployRenderer(cmd.OutOrStdout())
			network := app.Config.Network.Name
			params := usecase.DeployParams{
				Tags:   app.Config.Tags,
				DryRun: app.Config.DryRun,
				Yes:    yes,
				OnPlan: func(steps []models.PlanStep) {
					renderer.RenderPlan(network, steps)
				},
			}

			result, err := app.DeployUnits.Run(ctx, params)
			renderer.RenderSummary(result, err)
			if errors.Is(err, usecase.ErrDeployDeclined) {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				app.Log.Warn("deployment interrupted", "network", network)
			}
			return err
		},
	}

	cmd.Flags().StringSlice("tags", nil, "Only deploy units with these tags (and their dependencies)")
	cmd.Flags().Bool("dry-run", false, "Show the plan without sending transactions")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
