package cli

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/rinde/rinde/internal/settlement"
	"github.com/rinde/rinde/jobs"
)

func enqueueCommand(deps *Deps) *cobra.Command {
	var (
		locationID int64
		mode       string
		count      int
	)
	cmd := &cobra.Command{
		Use:       "enqueue ensure|warmup",
		Short:     "Push a background task",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"ensure", "warmup"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				info *asynq.TaskInfo
				err  error
			)
			switch args[0] {
			case "ensure":
				info, err = deps.Jobs.EnqueueEnsure(cmd.Context(), jobs.EnsurePayload{LocationID: locationID})
			default:
				info, err = deps.Jobs.EnqueueWarmup(cmd.Context(), jobs.WarmupPayload{Mode: mode, Count: count})
			}
			if err != nil {
				return fmt.Errorf("enqueue %s: %w", args[0], err)
			}
			if info == nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s already queued\n", args[0])
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().Int64Var(&locationID, "location", 0, "location id for ensure; 0 means every location")
	cmd.Flags().StringVar(&mode, "mode", "week", "dashboard mode for warmup")
	cmd.Flags().IntVar(&count, "count", settlement.DefaultCount, "dashboard length for warmup")
	return cmd
}
