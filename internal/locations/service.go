package locations

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/rbac"
)

// Service manages locations and the memberships binding users to them.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the location service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ActiveMembership implements rbac.MembershipReader.
func (s *Service) ActiveMembership(ctx context.Context, userID, locationID int64) (rbac.Membership, error) {
	return s.repo.ActiveMembership(ctx, userID, locationID)
}

// ListMine returns the caller's memberships.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]rbac.Membership, error) {
	return s.repo.ListMemberships(ctx, userID)
}

// ActiveIDs lists every active location.
func (s *Service) ActiveIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListActiveIDs(ctx)
}

// Create opens a location, makes adminUserID its ADMIN and provisions its
// action overrides, all in one transaction.
func (s *Service) Create(ctx context.Context, adminUserID int64, in CreateInput) (Created, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Created{}, httpx.Validation("BAD_REQUEST", "name is required")
	}
	var out Created
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		loc, err := tx.CreateLocation(ctx, name)
		if err != nil {
			return err
		}
		if err := tx.AddMembership(ctx, adminUserID, loc.ID, rbac.RoleAdmin); err != nil {
			return err
		}
		inserted, err := tx.EnsureLocation(ctx, loc.ID)
		if err != nil {
			return err
		}
		out = Created{Location: loc, ActionsInserted: inserted}
		return nil
	})
	if err != nil {
		return Created{}, err
	}
	s.logger.Info("location created",
		slog.Int64("location_id", out.Location.ID),
		slog.Int64("admin_user_id", adminUserID),
		slog.Int64("actions_inserted", out.ActionsInserted))
	return out, nil
}

// Deactivate hides a location. Only its ADMIN may do so, and never while it is
// the caller's active location.
func (s *Service) Deactivate(ctx context.Context, userID, activeLocationID, locationID int64) error {
	m, err := s.repo.ActiveMembership(ctx, userID, locationID)
	if err != nil {
		return err
	}
	if m.Role != rbac.RoleAdmin {
		return httpx.Forbidden("FORBIDDEN_ROLE")
	}
	if activeLocationID == locationID {
		return httpx.Conflict(CodeLocationInUse, "the active location cannot be deactivated")
	}
	if err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeactivateLocation(ctx, locationID)
	}); err != nil {
		return err
	}
	s.logger.Info("location deactivated", slog.Int64("location_id", locationID), slog.Int64("user_id", userID))
	return nil
}

// CanSelect checks that the user may bind the session to target. Switching
// away from another active location needs the ADMIN role there; current is
// zero when the session has none.
func (s *Service) CanSelect(ctx context.Context, userID, current, target int64) (rbac.Membership, error) {
	if current != 0 && current != target {
		m, err := s.repo.ActiveMembership(ctx, userID, current)
		if err != nil && !errors.Is(err, httpx.ErrNotFound) {
			return rbac.Membership{}, err
		}
		if err != nil || m.Role != rbac.RoleAdmin {
			return rbac.Membership{}, httpx.Conflict(CodeLocationSwitchDenied, "only an admin can switch locations without logging out")
		}
	}
	m, err := s.repo.ActiveMembership(ctx, userID, target)
	if errors.Is(err, httpx.ErrNotFound) {
		return rbac.Membership{}, httpx.Forbidden("FORBIDDEN")
	}
	return m, err
}
