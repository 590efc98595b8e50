package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func ensureCommand(deps *Deps) *cobra.Command {
	var locationID int64
	var all bool
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create missing action override rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (locationID > 0) {
				return errors.New("ensure: pass exactly one of --location or --all")
			}
			ids := []int64{locationID}
			if all {
				var err error
				ids, err = deps.Locations.ActiveIDs(cmd.Context())
				if err != nil {
					return fmt.Errorf("ensure: list locations: %w", err)
				}
			}
			var total int64
			for _, id := range ids {
				n, err := deps.Actions.Ensure(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("ensure: location %d: %w", id, err)
				}
				total += n
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "location %d: %d inserted\n", id, n)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "total inserted: %d\n", total)
			return nil
		},
	}
	cmd.Flags().Int64Var(&locationID, "location", 0, "location id")
	cmd.Flags().BoolVar(&all, "all", false, "every active location")
	return cmd
}
