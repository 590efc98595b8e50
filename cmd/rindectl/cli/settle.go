package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/money"
	"github.com/rinde/rinde/internal/settlement"
)

func settleCommand(deps *Deps) *cobra.Command {
	var (
		locationID int64
		mode       string
		count      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Print the partner settlement table of a location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if locationID <= 0 {
				return errors.New("settle: --location is required and must be positive")
			}
			m, err := calendar.ParseMode(mode)
			if err != nil {
				return fmt.Errorf("settle: %w", err)
			}
			count = min(max(count, 1), settlement.MaxCount)
			dash, err := deps.Settlement.Build(cmd.Context(), locationID, m, count)
			if err != nil {
				return fmt.Errorf("settle: %w", err)
			}
			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(dash)
			}
			renderSettlement(cmd.OutOrStdout(), dash)
			return nil
		},
	}
	cmd.Flags().Int64Var(&locationID, "location", 0, "location id")
	cmd.Flags().StringVar(&mode, "mode", "week", "week or month")
	cmd.Flags().IntVar(&count, "count", settlement.DefaultCount, "number of periods")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	return cmd
}

func renderSettlement(w io.Writer, dash settlement.Dashboard) {
	_, _ = fmt.Fprintf(w, "mode %s anchored on %s, partner share %s\n",
		dash.Mode, calendar.FormatDate(dash.AnchorDate), dash.PartnerShareFraction.StringFixed(4))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "START\tEND\tNET\tCARRY IN\tBALANCE\tCARRY OUT\tPARTNER\tOWNER\t")
	for _, row := range dash.Series {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			calendar.FormatDate(row.Start),
			calendar.FormatDate(row.End),
			money.Format(row.NetResult),
			money.Format(row.CarryBefore),
			money.Format(row.Balance),
			money.Format(row.CarryAfter),
			money.Format(row.PartnerPart),
			money.Format(row.OwnerPart),
		)
	}
	_ = tw.Flush()
}
