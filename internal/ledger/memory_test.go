package ledger

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/actions/actionstest"
	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/platform/httpx"
)

type idemKey struct {
	location int64
	key      string
}

type memRepo struct {
	*actionstest.Store

	mu        sync.Mutex
	nextID    int64
	movements []Movement
	idem      map[idemKey]int64
}

var (
	_ Repository   = (*memRepo)(nil)
	_ TxRepository = (*memRepo)(nil)
)

func newMemRepo() *memRepo {
	return &memRepo{Store: actionstest.New(actionstest.Catalog()...), idem: map[idemKey]int64{}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	saved := append([]Movement(nil), r.movements...)
	savedNext := r.nextID
	r.mu.Unlock()
	if err := fn(ctx, r); err != nil {
		r.mu.Lock()
		r.movements, r.nextID = saved, savedNext
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) ListMovements(_ context.Context, locationID int64, bounds *calendar.Bounds) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Movement
	for _, m := range r.movements {
		if m.LocationID != locationID {
			continue
		}
		if bounds != nil && !bounds.Contains(m.Date) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memRepo) LastMovementDate(_ context.Context, locationID int64) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *time.Time
	for _, m := range r.movements {
		if m.LocationID != locationID {
			continue
		}
		if last == nil || m.Date.After(*last) {
			d := m.Date
			last = &d
		}
	}
	return last, nil
}

func (r *memRepo) ListDayMovements(_ context.Context, locationID int64, day time.Time, actionIDs []int64) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range actionIDs {
		want[id] = true
	}
	var out []Movement
	for _, m := range r.movements {
		if m.LocationID != locationID || !m.Date.Equal(day) {
			continue
		}
		if actionIDs != nil && !want[m.ActionID] {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memRepo) InsertMovement(_ context.Context, m Movement) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	r.movements = append(r.movements, m)
	return m.ID, nil
}

func (r *memRepo) UpdateSlot(_ context.Context, movementID int64, amount decimal.Decimal, typ actions.MovementType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.movements {
		if r.movements[i].ID == movementID {
			r.movements[i].Amount = amount
			r.movements[i].Type = typ
			return nil
		}
	}
	return httpx.NotFound("MOVEMENT_NOT_FOUND")
}

func (r *memRepo) LookupIdempotency(_ context.Context, locationID int64, key string) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.idem[idemKey{locationID, key}]
	return id, ok, nil
}

func (r *memRepo) RecordIdempotency(_ context.Context, locationID int64, key string, movementID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idem[idemKey{locationID, key}] = movementID
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.movements)
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

func newTestService(t *testing.T) (*Service, *memRepo, *countingInvalidator) {
	t.Helper()
	repo := newMemRepo()
	svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	inv := &countingInvalidator{}
	svc.SetInvalidator(inv)
	return svc, repo, inv
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
