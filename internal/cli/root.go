package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/adapters/progress"
	"github.com/trebuchet-org/catapult/internal/app"
	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// initApp wires the app for commands that need a network
var initApp = app.InitApp

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var cleanup func()

	// finalizers run after Execute whether or not the command failed
	cobra.OnFinalize(func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	})

	rootCmd := &cobra.Command{
		Use:   "catapult",
		Short: "Deploy interdependent upgradeable contracts behind transparent proxies",
		Long: `catapult deploys a set of interdependent deployment units, each behind a
transparent proxy, in dependency order. Units already deployed are reused,
units whose implementation changed are upgraded in place, and every proxy is
initialized exactly once, in the same transaction that creates it.

Deployed addresses are kept per network in .catapult/<network>/deployments.json.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsApp(cmd) {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}
			v := config.SetupViper(projectRoot, cmd)

			appInstance, done, err := initApp(v, sinkFor(cmd))
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			cleanup = done

			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to deploy to (name from [rpc_endpoints] or an RPC URL)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Units file (defaults to units in catapult.toml, then deploy.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "registry",
		Title: "Registry Commands",
	})

	deployCmd := NewDeployCmd()
	deployCmd.GroupID = "main"
	rootCmd.AddCommand(deployCmd)

	planCmd := NewPlanCmd()
	planCmd.GroupID = "main"
	rootCmd.AddCommand(planCmd)

	listCmd := NewListCmd()
	listCmd.GroupID = "registry"
	rootCmd.AddCommand(listCmd)

	showCmd := NewShowCmd()
	showCmd.GroupID = "registry"
	rootCmd.AddCommand(showCmd)

	networksCmd := NewNetworksCmd()
	networksCmd.GroupID = "registry"
	rootCmd.AddCommand(networksCmd)

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func skipsApp(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion", "__complete", "networks":
		return true
	}
	return false
}

// sinkFor picks how orchestrator progress is shown
func sinkFor(cmd *cobra.Command) usecase.ProgressSink {
	if cmd.Name() == "deploy" {
		return progress.NewDeployProgress(render.NewDeployRenderer(cmd.OutOrStdout()))
	}
	return progress.NewNopSink()
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	a, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return a, nil
}
