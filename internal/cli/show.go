package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/cli/render"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show [unit]",
		Short: "Show the address record of one unit",
		Long: `Show every field of a unit's address record. Without an argument an
interactive picker with fuzzy search lists the recorded units.`,
		Example: `  catapult show AuctionModule --network sepolia
  catapult show --network sepolia`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var unit string
			if len(args) > 0 {
				unit = args[0]
			}

			record, err := app.ShowRecord.Run(cmd.Context(), unit)
			if err != nil {
				return err
			}

			if jsonOut {
				data, err := json.MarshalIndent(record, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal record: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			return render.NewRecordsRenderer(cmd.OutOrStdout()).RenderRecord(record)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the record as JSON")

	return cmd
}
