package ledger

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/money"
	"github.com/rinde/rinde/internal/platform/httpx"
)

// Invalidator is notified after writes that change a location's movements.
type Invalidator interface {
	Invalidate(ctx context.Context, locationID int64)
}

// Service coordinates ledger reads and movement writes.
type Service struct {
	repo        Repository
	logger      *slog.Logger
	invalidator Invalidator
}

// NewService constructs the ledger service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// SetInvalidator injects the cache invalidation hook.
func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

func (s *Service) invalidate(ctx context.Context, locationID int64) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, locationID)
	}
}

// ParseRequiredDate parses a mandatory ISO date, reporting DATE_REQUIRED when blank.
func ParseRequiredDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, httpx.Validation(CodeDateRequired, "date is required")
	}
	return calendar.ParseDate(raw)
}

// View builds the ledger for a scope. The date is required unless scope is all.
func (s *Service) View(ctx context.Context, locationID int64, rawScope, rawDate string) (View, error) {
	scope, err := calendar.ParseScope(rawScope)
	if err != nil {
		return View{}, err
	}
	var bounds *calendar.Bounds
	if scope != calendar.ScopeAll {
		ref, err := ParseRequiredDate(rawDate)
		if err != nil {
			return View{}, err
		}
		b, err := calendar.BoundsFor(scope, ref)
		if err != nil {
			return View{}, err
		}
		bounds = &b
	}

	impacts, err := actions.LoadIndex(ctx, s.repo, locationID)
	if err != nil {
		return View{}, err
	}
	movements, err := s.repo.ListMovements(ctx, locationID, bounds)
	if err != nil {
		return View{}, err
	}
	last, err := s.repo.LastMovementDate(ctx, locationID)
	if err != nil {
		return View{}, err
	}

	agg := Aggregate(movements, impacts)
	view := View{
		Scope:            scope,
		Bounds:           bounds,
		Days:             agg.Days,
		Totals:           agg.Totals,
		LastMovementDate: last,
	}
	if scope == calendar.ScopeMonth || scope == calendar.ScopeAll {
		view.Weeks = calendar.GroupIntoWeeks(agg.DayTotals())
	}
	return view, nil
}

// CreateMovement validates and records one movement. A non-empty idempotency
// key makes the call replay-safe: repeating it returns the original id.
func (s *Service) CreateMovement(ctx context.Context, locationID, userID int64, in CreateMovementInput, idempotencyKey string) (int64, error) {
	day, err := ParseRequiredDate(in.Date)
	if err != nil {
		return 0, err
	}
	amount, err := money.ParseAmount(in.Amount)
	if err != nil {
		return 0, err
	}
	var shift *Shift
	if in.Shift != nil && strings.TrimSpace(*in.Shift) != "" {
		sh := Shift(strings.ToUpper(strings.TrimSpace(*in.Shift)))
		if !sh.Valid() {
			return 0, httpx.Validation("BAD_REQUEST", "shift must be MORNING, AFTERNOON or NIGHT")
		}
		shift = &sh
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)

	var id int64
	replayed := false
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if idempotencyKey != "" {
			existing, ok, err := tx.LookupIdempotency(ctx, locationID, idempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				id, replayed = existing, true
				return nil
			}
		}
		if err := tx.EnsureAction(ctx, locationID, in.ActionID); err != nil {
			return err
		}
		eff, err := actions.RequireUsable(ctx, tx, locationID, in.ActionID)
		if err != nil {
			return err
		}
		m, err := buildMovement(eff, locationID, userID, day, amount, shift, in.Name)
		if err != nil {
			return err
		}
		id, err = tx.InsertMovement(ctx, m)
		if err != nil {
			return err
		}
		if idempotencyKey != "" {
			return tx.RecordIdempotency(ctx, locationID, idempotencyKey, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if replayed {
		s.logger.Info("movement replayed", slog.Int64("location_id", locationID), slog.Int64("movement_id", id))
		return id, nil
	}
	s.invalidate(ctx, locationID)
	s.logger.Info("movement created",
		slog.Int64("location_id", locationID),
		slog.Int64("movement_id", id),
		slog.Int64("action_id", in.ActionID),
		slog.String("date", calendar.FormatDate(day)))
	return id, nil
}

func buildMovement(eff actions.Effective, locationID, userID int64, day time.Time, amount decimal.Decimal, shift *Shift, name *string) (Movement, error) {
	if eff.UsesShift && shift == nil {
		return Movement{}, httpx.Validation(CodeShiftRequired, "shift is required for this action")
	}
	if !eff.UsesShift && shift != nil {
		return Movement{}, httpx.Validation(CodeShiftNotAllowed, "this action does not take a shift")
	}
	m := Movement{
		LocationID: locationID,
		Date:       day,
		ActionID:   eff.ActionID,
		ActionName: eff.Name,
		Type:       eff.Type,
		Amount:     amount,
		CreatedBy:  userID,
	}
	if eff.UsesShift {
		m.Shift = shift
	}
	if eff.UsesName {
		trimmed := ""
		if name != nil {
			trimmed = strings.TrimSpace(*name)
		}
		if trimmed == "" {
			return Movement{}, httpx.Validation(CodeNameRequired, "name is required for this action")
		}
		m.PersonName = &trimmed
	}
	return m, nil
}

// DaySlots returns the day-editor amounts. When an action has several untagged
// movements on the day the first inserted one is the slot.
func (s *Service) DaySlots(ctx context.Context, locationID int64, rawDate string) (DaySlots, error) {
	day, err := ParseRequiredDate(rawDate)
	if err != nil {
		return DaySlots{}, err
	}
	movements, err := s.repo.ListDayMovements(ctx, locationID, day, nil)
	if err != nil {
		return DaySlots{}, err
	}
	values := make(map[int64]decimal.Decimal)
	for _, m := range firstSlots(movements) {
		values[m.ActionID] = m.Amount
	}
	return DaySlots{Date: day, Values: values}, nil
}

func firstSlots(movements []Movement) map[int64]Movement {
	out := make(map[int64]Movement)
	for _, m := range movements {
		if !m.IsSlot() {
			continue
		}
		if _, seen := out[m.ActionID]; !seen {
			out[m.ActionID] = m
		}
	}
	return out
}

type slotWrite struct {
	actionID int64
	amount   decimal.Decimal
}

// SaveDaySlots writes day-editor values in one transaction. Existing slots are
// updated even to zero and take the action's current effective type; missing
// slots are created only for non-zero values. Concurrent saves are last write wins.
func (s *Service) SaveDaySlots(ctx context.Context, locationID, userID int64, in SaveDayInput) (SaveDayResult, error) {
	day, err := ParseRequiredDate(in.Date)
	if err != nil {
		return SaveDayResult{}, err
	}
	if len(in.Values) == 0 {
		return SaveDayResult{}, nil
	}
	writes := make([]slotWrite, 0, len(in.Values))
	ids := make([]int64, 0, len(in.Values))
	for rawID, rawValue := range in.Values {
		actionID, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil || actionID <= 0 {
			return SaveDayResult{}, httpx.Validation("BAD_REQUEST", "invalid action id "+rawID)
		}
		amount, err := money.ParseSlotAmount(string(rawValue))
		if err != nil {
			return SaveDayResult{}, err
		}
		writes = append(writes, slotWrite{actionID: actionID, amount: amount})
		ids = append(ids, actionID)
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].actionID < writes[j].actionID })

	var result SaveDayResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		effective := make(map[int64]actions.Effective, len(writes))
		for _, w := range writes {
			if err := tx.EnsureAction(ctx, locationID, w.actionID); err != nil {
				return err
			}
			eff, err := actions.RequireUsable(ctx, tx, locationID, w.actionID)
			if err != nil {
				return err
			}
			effective[w.actionID] = eff
		}
		existing, err := tx.ListDayMovements(ctx, locationID, day, ids)
		if err != nil {
			return err
		}
		slots := firstSlots(existing)
		for _, w := range writes {
			eff := effective[w.actionID]
			if slot, ok := slots[w.actionID]; ok {
				if err := tx.UpdateSlot(ctx, slot.ID, w.amount, eff.Type); err != nil {
					return err
				}
				result.Updated++
				continue
			}
			if w.amount.IsZero() {
				continue
			}
			if _, err := tx.InsertMovement(ctx, Movement{
				LocationID: locationID,
				Date:       day,
				ActionID:   w.actionID,
				ActionName: eff.Name,
				Type:       eff.Type,
				Amount:     w.amount,
				CreatedBy:  userID,
			}); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return SaveDayResult{}, err
	}
	if result.Created+result.Updated > 0 {
		s.invalidate(ctx, locationID)
	}
	s.logger.Info("day slots saved",
		slog.Int64("location_id", locationID),
		slog.String("date", calendar.FormatDate(day)),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated))
	return result, nil
}
