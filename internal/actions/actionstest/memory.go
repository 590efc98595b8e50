// Package actionstest provides an in-memory action store for tests.
package actionstest

import (
	"context"
	"sort"
	"sync"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/platform/httpx"
)

// Store is an in-memory actions.Repository. WithTx restores the previous state
// when the callback fails.
type Store struct {
	mu        sync.Mutex
	defs      map[int64]actions.Definition
	overrides map[[2]int64]actions.Override
}

var _ actions.Repository = (*Store)(nil)

// New returns a store seeded with defs.
func New(defs ...actions.Definition) *Store {
	s := &Store{defs: map[int64]actions.Definition{}, overrides: map[[2]int64]actions.Override{}}
	for _, d := range defs {
		s.defs[d.ID] = d
	}
	return s
}

// PutOverride stores ov as is.
func (s *Store) PutOverride(ov actions.Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[[2]int64{ov.LocationID, ov.ActionID}] = ov
}

// Deactivate soft-deletes a catalog action.
func (s *Store) Deactivate(actionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.defs[actionID]; ok {
		d.IsActive = false
		s.defs[actionID] = d
	}
}

// OverrideCount reports how many rows exist for the location.
func (s *Store) OverrideCount(locationID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.overrides {
		if k[0] == locationID {
			n++
		}
	}
	return n
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, actions.TxRepository) error) error {
	s.mu.Lock()
	snapshot := make(map[[2]int64]actions.Override, len(s.overrides))
	for k, v := range s.overrides {
		snapshot[k] = v
	}
	s.mu.Unlock()
	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.overrides = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) ListDefinitions(_ context.Context, activeOnly bool) ([]actions.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]actions.Definition, 0, len(s.defs))
	for _, d := range s.defs {
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetDefinition(_ context.Context, actionID int64) (actions.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[actionID]
	if !ok {
		return actions.Definition{}, httpx.NotFound(actions.CodeActionNotFound)
	}
	return d, nil
}

func (s *Store) ListOverrides(_ context.Context, locationID int64) ([]actions.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []actions.Override
	for k, v := range s.overrides {
		if k[0] == locationID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ActionID < out[j].ActionID
	})
	return out, nil
}

func (s *Store) GetOverride(_ context.Context, locationID, actionID int64) (*actions.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ov, ok := s.overrides[[2]int64{locationID, actionID}]
	if !ok {
		return nil, nil
	}
	return &ov, nil
}

func (s *Store) EnsureLocation(_ context.Context, locationID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int64
	for id, d := range s.defs {
		if s.ensureLocked(locationID, id, d) {
			inserted++
		}
	}
	return inserted, nil
}

func (s *Store) EnsureAction(_ context.Context, locationID, actionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.defs[actionID]; ok {
		s.ensureLocked(locationID, actionID, d)
	}
	return nil
}

func (s *Store) ensureLocked(locationID, actionID int64, d actions.Definition) bool {
	key := [2]int64{locationID, actionID}
	if !d.IsActive {
		return false
	}
	if _, ok := s.overrides[key]; ok {
		return false
	}
	s.overrides[key] = actions.Override{
		LocationID:   locationID,
		ActionID:     actionID,
		IsEnabled:    true,
		ImpactsTotal: d.ImpactsTotalDefault,
	}
	return true
}

func (s *Store) SaveOverride(_ context.Context, ov actions.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{ov.LocationID, ov.ActionID}
	if _, ok := s.overrides[key]; !ok {
		return httpx.NotFound(actions.CodeActionNotFound)
	}
	s.overrides[key] = ov
	return nil
}

// Catalog returns the default catalog used across tests: three SHIFT entries,
// one ELECTRONIC entry, a DEPOSIT exit, an OTHER exit and the PARTNER action.
func Catalog() []actions.Definition {
	return []actions.Definition{
		{ID: 1, Name: "Turno mañana", Category: actions.CategoryShift, DefaultType: actions.TypeEntry, ImpactsTotalDefault: true, UsesShift: true, IsActive: true},
		{ID: 2, Name: "Turno tarde", Category: actions.CategoryShift, DefaultType: actions.TypeEntry, ImpactsTotalDefault: true, UsesShift: true, IsActive: true},
		{ID: 3, Name: "Turno noche", Category: actions.CategoryShift, DefaultType: actions.TypeEntry, ImpactsTotalDefault: true, UsesShift: true, IsActive: true},
		{ID: 4, Name: "Pagos electrónicos", Category: actions.CategoryElectronic, DefaultType: actions.TypeEntry, ImpactsTotalDefault: true, IsActive: true},
		{ID: 5, Name: "Pago depósito", Category: actions.CategoryDeposit, DefaultType: actions.TypeExit, ImpactsTotalDefault: true, UsesName: true, IsActive: true},
		{ID: 6, Name: "Pagos virtuales", Category: actions.CategoryOther, DefaultType: actions.TypeExit, IsActive: true},
		{ID: 7, Name: "Socio", Category: actions.CategoryPartner, DefaultType: actions.TypeExit, IsActive: true},
	}
}
