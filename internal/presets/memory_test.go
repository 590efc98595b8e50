package presets

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/actions/actionstest"
	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/ledger"
	"github.com/rinde/rinde/internal/platform/httpx"
)

type memRepo struct {
	*actionstest.Store

	mu        sync.Mutex
	nextID    int64
	presets   map[int64]Preset
	items     []Item
	movements []ledger.Movement
}

var (
	_ Repository   = (*memRepo)(nil)
	_ TxRepository = (*memRepo)(nil)
)

func newMemRepo(defs ...actions.Definition) *memRepo {
	if len(defs) == 0 {
		defs = actionstest.Catalog()
	}
	return &memRepo{Store: actionstest.New(defs...), presets: map[int64]Preset{}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	savedPresets := make(map[int64]Preset, len(r.presets))
	for k, v := range r.presets {
		savedPresets[k] = v
	}
	savedItems := append([]Item(nil), r.items...)
	savedMovements := append([]ledger.Movement(nil), r.movements...)
	r.mu.Unlock()

	err := r.Store.WithTx(ctx, func(ctx context.Context, _ actions.TxRepository) error {
		return fn(ctx, r)
	})
	if err != nil {
		r.mu.Lock()
		r.presets, r.items, r.movements = savedPresets, savedItems, savedMovements
		r.mu.Unlock()
	}
	return err
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) ListVisible(_ context.Context, locationID int64) ([]Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Preset
	for _, p := range r.presets {
		if p.VisibleTo(locationID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *memRepo) GetPreset(_ context.Context, presetID int64) (Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presets[presetID]
	if !ok {
		return Preset{}, httpx.NotFound(CodePresetNotFound)
	}
	return p, nil
}

func (r *memRepo) ListItems(_ context.Context, presetID int64) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Item
	for _, it := range r.items {
		if it.PresetID == presetID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r *memRepo) CreatePreset(_ context.Context, p Preset) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.presets[p.ID] = p
	return p.ID, nil
}

func (r *memRepo) UpdatePreset(_ context.Context, presetID int64, in UpdatePresetInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presets[presetID]
	if !ok {
		return httpx.NotFound(CodePresetNotFound)
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Order != nil {
		p.DisplayOrder = *in.Order
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	r.presets[presetID] = p
	return nil
}

func (r *memRepo) InsertItem(_ context.Context, it Item) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.ID = r.id()
	r.items = append(r.items, it)
	return it.ID, nil
}

func (r *memRepo) DeleteItem(_ context.Context, presetID, itemID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, it := range r.items {
		if it.ID == itemID && it.PresetID == presetID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return httpx.NotFound(CodePresetItemNotFound)
}

func (r *memRepo) ListDayMovements(_ context.Context, locationID int64, day time.Time, actionIDs []int64) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range actionIDs {
		want[id] = true
	}
	var out []ledger.Movement
	for _, m := range r.movements {
		if m.LocationID == locationID && m.Date.Equal(day) && (actionIDs == nil || want[m.ActionID]) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) InsertMovement(_ context.Context, m ledger.Movement) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.id()
	r.movements = append(r.movements, m)
	return m.ID, nil
}

func (r *memRepo) dayMovements(locationID int64, day time.Time) []ledger.Movement {
	list, _ := r.ListDayMovements(context.Background(), locationID, day, nil)
	return list
}

// seedPreset stores a preset with items directly.
func (r *memRepo) seedPreset(p Preset, items ...Item) int64 {
	id, _ := r.CreatePreset(context.Background(), p)
	for _, it := range items {
		it.PresetID = id
		_, _ = r.InsertItem(context.Background(), it)
	}
	return id
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls []int64
}

func (c *countingInvalidator) Invalidate(_ context.Context, locationID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, locationID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, locker DayLocker) (*Service, *memRepo, *countingInvalidator) {
	t.Helper()
	repo := newMemRepo()
	svc := NewService(repo, locker, discardLogger())
	inv := &countingInvalidator{}
	svc.SetInvalidator(inv)
	return svc, repo, inv
}

func actionItem(id int64) Item {
	return Item{Kind: KindAction, ActionID: &id}
}

func categoryItem(c actions.Category) Item {
	return Item{Kind: KindCategory, Category: &c}
}

func globalPreset(name string) Preset {
	return Preset{Scope: ScopeGlobal, Name: name, IsActive: true}
}

func localPreset(locationID int64, name string) Preset {
	return Preset{Scope: ScopeLocal, LocationID: &locationID, Name: name, IsActive: true}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
