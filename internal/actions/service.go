package actions

import (
	"context"
	"log/slog"
	"time"

	"github.com/rinde/rinde/internal/platform/httpx"
)

// Service exposes action resolution and override configuration.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the action service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the service clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// ListUsable returns the actions a location may record movements for: enabled,
// active and not PARTNER, in display order.
func (s *Service) ListUsable(ctx context.Context, locationID int64) ([]Effective, error) {
	all, err := LoadEffective(ctx, s.repo, locationID)
	if err != nil {
		return nil, err
	}
	usable := Usable(all)
	SortForDisplay(usable)
	return usable, nil
}

// Ensure provisions the missing override rows of a location and reports how many were inserted.
func (s *Service) Ensure(ctx context.Context, locationID int64) (int64, error) {
	var inserted int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.EnsureLocation(ctx, locationID)
		inserted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.logger.Info("location overrides ensured", slog.Int64("location_id", locationID), slog.Int64("inserted", inserted))
	}
	return inserted, nil
}

// Config lists every override row of the location for active actions.
func (s *Service) Config(ctx context.Context, locationID int64) ([]ConfigRow, error) {
	defs, err := s.repo.ListDefinitions(ctx, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	ovs, err := s.repo.ListOverrides(ctx, locationID)
	if err != nil {
		return nil, err
	}
	rows := make([]ConfigRow, 0, len(ovs))
	for i := range ovs {
		ov := ovs[i]
		def, ok := byID[ov.ActionID]
		if !ok {
			continue
		}
		rows = append(rows, configRow(def, ov))
	}
	return rows, nil
}

func configRow(def Definition, ov Override) ConfigRow {
	eff := Resolve(def, &ov)
	row := ConfigRow{
		ActionID:     def.ID,
		Name:         def.Name,
		Category:     def.Category,
		IsEnabled:    ov.IsEnabled,
		Order:        ov.DisplayOrder,
		Type:         eff.Type,
		UsesShift:    eff.UsesShift,
		UsesName:     eff.UsesName,
		ImpactsTotal: eff.ImpactsTotal,
		Defaults: Defaults{
			DefaultType:         def.DefaultType,
			ImpactsTotalDefault: def.ImpactsTotalDefault,
			UsesShift:           def.UsesShift,
			UsesName:            def.UsesName,
		},
		Overrides: RawOverrides{
			TypeOverride:      ov.TypeOverride,
			UsesShiftOverride: ov.UsesShiftOverride,
			UsesNameOverride:  ov.UsesNameOverride,
		},
	}
	if ov.ImpactsTotalSince != nil {
		since := ov.ImpactsTotalSince.Format("2006-01-02")
		row.ImpactsTotalSince = &since
	}
	return row
}

// SaveConfig applies a batch of override updates atomically. ImpactsTotalSince
// moves to today only on rows whose impacts-total flag actually changed.
func (s *Service) SaveConfig(ctx context.Context, locationID int64, inputs []SaveInput) error {
	if len(inputs) == 0 {
		return httpx.Validation("BAD_REQUEST", "at least one action is required")
	}
	today := s.today()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, in := range inputs {
			def, err := tx.GetDefinition(ctx, in.ActionID)
			if err != nil {
				return err
			}
			if !def.IsActive {
				return httpx.NotFound(CodeActionNotFound)
			}
			if def.Category == CategoryPartner && in.IsEnabled {
				return httpx.Conflict(CodePartnerDisabled, "partner actions cannot be enabled")
			}
			if err := tx.EnsureAction(ctx, locationID, in.ActionID); err != nil {
				return err
			}
			current, err := tx.GetOverride(ctx, locationID, in.ActionID)
			if err != nil {
				return err
			}
			if current == nil {
				return httpx.NotFound(CodeActionNotFound)
			}
			next := Override{
				LocationID:        locationID,
				ActionID:          in.ActionID,
				IsEnabled:         in.IsEnabled,
				DisplayOrder:      in.Order,
				TypeOverride:      in.TypeOverride,
				ImpactsTotal:      in.ImpactsTotal,
				ImpactsTotalSince: current.ImpactsTotalSince,
				UsesShiftOverride: in.UsesShiftOverride,
				UsesNameOverride:  in.UsesNameOverride,
			}
			if current.ImpactsTotal != in.ImpactsTotal {
				next.ImpactsTotalSince = &today
			}
			if err := tx.SaveOverride(ctx, next); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("location action config saved", slog.Int64("location_id", locationID), slog.Int("rows", len(inputs)))
	return nil
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
