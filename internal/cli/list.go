package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var (
		contract string
		pending  bool
		verify   bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List address records of the selected network",
		Example: `  # List every deployed unit
  catapult list --network sepolia

  # Units whose contract name contains "module"
  catapult list --network sepolia --contract module

  # Units deployed but not yet marked initialized
  catapult list --network sepolia --pending

  # Check every proxy still has code, e.g. after restarting a local node
  catapult list --network anvil --verify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ListRecords.Run(cmd.Context(), usecase.ListRecordsParams{
				Contract: contract,
				Pending:  pending,
				Verify:   verify,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				data, err := json.MarshalIndent(result.Records, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal records: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			return render.NewRecordsRenderer(cmd.OutOrStdout()).RenderList(result.Network, result)
		},
	}

	cmd.Flags().StringVar(&contract, "contract", "", "Filter by contract or unit name (case insensitive)")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only show records not marked initialized")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check that every recorded proxy and implementation still has code on chain")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output records as JSON")

	return cmd
}
