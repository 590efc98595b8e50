package presets

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/ledger"
	"github.com/rinde/rinde/internal/platform/cache"
	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/shared"
)

// DayLocker serialises work on one location day.
type DayLocker interface {
	Obtain(ctx context.Context, key string) (func(), error)
}

// Service manages presets and applies them to days.
type Service struct {
	repo        Repository
	locker      DayLocker
	logger      *slog.Logger
	invalidator ledger.Invalidator
}

// NewService constructs the preset service. A nil locker disables day locking.
func NewService(repo Repository, locker DayLocker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, locker: locker, logger: logger}
}

// SetInvalidator injects the cache invalidation hook.
func (s *Service) SetInvalidator(inv ledger.Invalidator) {
	s.invalidator = inv
}

// List returns the presets visible to the location.
func (s *Service) List(ctx context.Context, locationID int64) ([]Preset, error) {
	return s.repo.ListVisible(ctx, locationID)
}

// Items returns the items of a preset visible to the location.
func (s *Service) Items(ctx context.Context, locationID, presetID int64) ([]Item, error) {
	if _, err := visiblePreset(ctx, s.repo, locationID, presetID); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, presetID)
}

func visiblePreset(ctx context.Context, r Reader, locationID, presetID int64) (Preset, error) {
	p, err := r.GetPreset(ctx, presetID)
	if err != nil {
		return Preset{}, err
	}
	if !p.VisibleTo(locationID) {
		return Preset{}, httpx.NotFound(CodePresetNotFound)
	}
	return p, nil
}

// editablePreset hides other locations' presets and refuses GLOBAL ones.
func editablePreset(ctx context.Context, r Reader, locationID, presetID int64) (Preset, error) {
	p, err := visiblePreset(ctx, r, locationID, presetID)
	if err != nil {
		return Preset{}, err
	}
	if !p.EditableBy(locationID) {
		return Preset{}, httpx.Forbidden(CodePresetNotEditable)
	}
	return p, nil
}

// Apply creates a zero-amount placeholder for every target of the preset that
// has no movement on the day yet. Re-applying creates nothing.
func (s *Service) Apply(ctx context.Context, locationID, userID, presetID int64, rawDate string) (ApplyResult, error) {
	day, err := ledger.ParseRequiredDate(rawDate)
	if err != nil {
		return ApplyResult{}, err
	}

	if s.locker != nil {
		release, err := s.locker.Obtain(ctx, shared.DayLockKey(locationID, day))
		switch {
		case errors.Is(err, cache.ErrLockBusy):
			return ApplyResult{}, httpx.Conflict(CodePresetApplyBusy, "preset apply already running for this day")
		case err != nil:
			s.logger.Warn("preset lock unavailable, applying without it",
				slog.Int64("location_id", locationID), slog.Any("error", err))
		default:
			defer release()
		}
	}

	var result ApplyResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := visiblePreset(ctx, tx, locationID, presetID); err != nil {
			return err
		}
		items, err := tx.ListItems(ctx, presetID)
		if err != nil {
			return err
		}
		effective, err := actions.LoadEffective(ctx, tx, locationID)
		if err != nil {
			return err
		}
		actions.SortForDisplay(effective)

		targets := ResolveTargets(items, effective)
		if len(targets) == 0 {
			result = ApplyResult{Note: NoteNoTargets}
			return nil
		}

		ids := make([]int64, 0, len(targets))
		for _, t := range targets {
			if err := tx.EnsureAction(ctx, locationID, t.ActionID); err != nil {
				return err
			}
			ids = append(ids, t.ActionID)
		}
		existing, err := tx.ListDayMovements(ctx, locationID, day, ids)
		if err != nil {
			return err
		}
		present := make(map[int64]struct{}, len(existing))
		for _, m := range existing {
			present[m.ActionID] = struct{}{}
		}

		for _, t := range targets {
			if _, ok := present[t.ActionID]; ok {
				continue
			}
			if _, err := tx.InsertMovement(ctx, ledger.Movement{
				LocationID: locationID,
				Date:       day,
				ActionID:   t.ActionID,
				ActionName: t.Name,
				Type:       t.Type,
				Amount:     decimal.Zero,
				CreatedBy:  userID,
			}); err != nil {
				return err
			}
			result.Created++
		}
		result.Skipped = len(targets) - result.Created
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}

	if result.Created > 0 && s.invalidator != nil {
		s.invalidator.Invalidate(ctx, locationID)
	}
	s.logger.Info("preset applied",
		slog.Int64("location_id", locationID),
		slog.Int64("preset_id", presetID),
		slog.String("date", day.Format(time.DateOnly)),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

// CreateLocal creates a preset owned by the location.
func (s *Service) CreateLocal(ctx context.Context, locationID int64, in CreatePresetInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, httpx.Validation("BAD_REQUEST", "name is required")
	}
	order := 0
	if in.Order != nil {
		order = *in.Order
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.CreatePreset(ctx, Preset{
			Scope:        ScopeLocal,
			LocationID:   &locationID,
			Name:         name,
			DisplayOrder: order,
			IsActive:     true,
		})
		return err
	})
	return id, err
}

// Update patches a preset owned by the location.
func (s *Service) Update(ctx context.Context, locationID, presetID int64, in UpdatePresetInput) error {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return httpx.Validation("BAD_REQUEST", "name cannot be blank")
		}
		in.Name = &trimmed
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := editablePreset(ctx, tx, locationID, presetID); err != nil {
			return err
		}
		return tx.UpdatePreset(ctx, presetID, in)
	})
}

// Deactivate hides a preset owned by the location. Presets are never hard deleted.
func (s *Service) Deactivate(ctx context.Context, locationID, presetID int64) error {
	inactive := false
	return s.Update(ctx, locationID, presetID, UpdatePresetInput{IsActive: &inactive})
}

// AddItem appends an item to a preset owned by the location. Items naming the
// partner action or category are refused.
func (s *Service) AddItem(ctx context.Context, locationID, presetID int64, in CreateItemInput) (int64, error) {
	it := Item{PresetID: presetID, Kind: in.Kind}
	if in.Order != nil {
		it.DisplayOrder = *in.Order
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := editablePreset(ctx, tx, locationID, presetID); err != nil {
			return err
		}
		switch in.Kind {
		case KindAction:
			if in.ActionID == nil {
				return httpx.Validation(CodeItemActionRequired, "actionId is required for ACTION items")
			}
			def, err := tx.GetDefinition(ctx, *in.ActionID)
			if err != nil {
				return err
			}
			if !def.IsActive {
				return httpx.NotFound(actions.CodeActionNotFound)
			}
			if def.Category == actions.CategoryPartner {
				return httpx.Conflict(actions.CodePartnerDisabled, "partner actions cannot be preset")
			}
			it.ActionID = in.ActionID
		case KindCategory:
			if in.Category == nil || strings.TrimSpace(*in.Category) == "" {
				return httpx.Validation(CodeItemCategoryRequired, "category is required for CATEGORY items")
			}
			c := actions.Category(strings.ToUpper(strings.TrimSpace(*in.Category)))
			if !c.Valid() {
				return httpx.Validation("BAD_REQUEST", "unknown category")
			}
			if c == actions.CategoryPartner {
				return httpx.Conflict(actions.CodePartnerDisabled, "partner category cannot be preset")
			}
			it.Category = &c
		default:
			return httpx.Validation("BAD_REQUEST", "unknown item kind")
		}
		var err error
		id, err = tx.InsertItem(ctx, it)
		return err
	})
	return id, err
}

// DeleteItem removes an item from a preset owned by the location.
func (s *Service) DeleteItem(ctx context.Context, locationID, presetID, itemID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := editablePreset(ctx, tx, locationID, presetID); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, presetID, itemID)
	})
}
