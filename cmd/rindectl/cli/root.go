package cli

import (
	"context"
	"io"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/locations"
	"github.com/rinde/rinde/internal/settlement"
	"github.com/rinde/rinde/jobs"
)

// Ensurer provisions override rows for a location.
type Ensurer interface {
	Ensure(ctx context.Context, locationID int64) (int64, error)
}

// LocationService lists and bootstraps locations.
type LocationService interface {
	ActiveIDs(ctx context.Context) ([]int64, error)
	Create(ctx context.Context, adminUserID int64, in locations.CreateInput) (locations.Created, error)
}

// UserFinder resolves accounts by email.
type UserFinder interface {
	FindUserID(ctx context.Context, email string) (int64, error)
}

// SettlementBuilder computes an uncached settlement dashboard.
type SettlementBuilder interface {
	Build(ctx context.Context, locationID int64, mode calendar.Mode, count int) (settlement.Dashboard, error)
}

// Enqueuer pushes background tasks.
type Enqueuer interface {
	EnqueueEnsure(ctx context.Context, payload jobs.EnsurePayload) (*asynq.TaskInfo, error)
	EnqueueWarmup(ctx context.Context, payload jobs.WarmupPayload) (*asynq.TaskInfo, error)
}

// Deps carries the collaborators the commands need.
type Deps struct {
	Actions    Ensurer
	Locations  LocationService
	Users      UserFinder
	Settlement SettlementBuilder
	Jobs       Enqueuer
	Stdout     io.Writer
}

// RootCommand builds the rindectl command tree.
func RootCommand(deps *Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "rindectl",
		Short:         "Operator tooling for the Rinde ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if deps.Stdout != nil {
		root.SetOut(deps.Stdout)
	}
	root.AddCommand(
		ensureCommand(deps),
		settleCommand(deps),
		bootstrapCommand(deps),
		enqueueCommand(deps),
	)
	return root
}
