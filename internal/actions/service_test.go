package actions_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/actions/actionstest"
	"github.com/rinde/rinde/internal/platform/httpx"
)

func newService(t *testing.T) (*actions.Service, *actionstest.Store) {
	t.Helper()
	store := actionstest.New(actionstest.Catalog()...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return time.Date(2024, 5, 12, 15, 0, 0, 0, time.UTC) }
	return actions.NewService(store, logger).WithClock(clock), store
}

func TestEnsureIsIdempotentAndKeepsCustomisations(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	n, err := svc.Ensure(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, int64(7), n)

	require.NoError(t, svc.SaveConfig(ctx, 10, []actions.SaveInput{{ActionID: 6, IsEnabled: false, Order: 3}}))

	n, err = svc.Ensure(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 7, store.OverrideCount(10))

	ov, err := store.GetOverride(ctx, 10, 6)
	require.NoError(t, err)
	require.False(t, ov.IsEnabled)
	require.Equal(t, 3, ov.DisplayOrder)
}

func TestListUsableDoesNotProvision(t *testing.T) {
	svc, store := newService(t)
	list, err := svc.ListUsable(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 6)
	for _, a := range list {
		require.NotEqual(t, actions.CategoryPartner, a.Category)
	}
	require.Zero(t, store.OverrideCount(10))
}

func TestListUsableHonoursDisabledRows(t *testing.T) {
	svc, store := newService(t)
	store.PutOverride(actions.Override{LocationID: 10, ActionID: 4, IsEnabled: false, ImpactsTotal: true})
	list, err := svc.ListUsable(context.Background(), 10)
	require.NoError(t, err)
	for _, a := range list {
		require.NotEqual(t, int64(4), a.ActionID)
	}
}

func TestSaveConfigTracksImpactsTotalSinceOnlyOnChange(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.Ensure(ctx, 10)
	require.NoError(t, err)

	entry := actions.TypeEntry
	err = svc.SaveConfig(ctx, 10, []actions.SaveInput{
		{ActionID: 6, IsEnabled: true, ImpactsTotal: false},
		{ActionID: 5, IsEnabled: true, ImpactsTotal: true, TypeOverride: &entry},
	})
	require.NoError(t, err)

	changed, err := store.GetOverride(ctx, 10, 6)
	require.NoError(t, err)
	require.NotNil(t, changed.ImpactsTotalSince)
	require.Equal(t, "2024-05-12", changed.ImpactsTotalSince.Format("2006-01-02"))

	unchanged, err := store.GetOverride(ctx, 10, 5)
	require.NoError(t, err)
	require.Nil(t, unchanged.ImpactsTotalSince)
	require.Equal(t, actions.TypeEntry, *unchanged.TypeOverride)

	rows, err := svc.Config(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	for _, row := range rows {
		if row.ActionID == 6 {
			require.Equal(t, "2024-05-12", *row.ImpactsTotalSince)
			require.False(t, row.ImpactsTotal)
			require.True(t, row.Defaults.ImpactsTotalDefault)
		}
	}
}

func TestSaveConfigIsAtomic(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.Ensure(ctx, 10)
	require.NoError(t, err)

	err = svc.SaveConfig(ctx, 10, []actions.SaveInput{
		{ActionID: 4, IsEnabled: false},
		{ActionID: 99, IsEnabled: true},
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Equal(t, actions.CodeActionNotFound, httpx.CodeOf(err))

	ov, err := store.GetOverride(ctx, 10, 4)
	require.NoError(t, err)
	require.True(t, ov.IsEnabled)
}

func TestSaveConfigRejectsEnablingPartner(t *testing.T) {
	svc, _ := newService(t)
	err := svc.SaveConfig(context.Background(), 10, []actions.SaveInput{{ActionID: 7, IsEnabled: true}})
	require.ErrorIs(t, err, httpx.ErrConflict)
	require.Equal(t, actions.CodePartnerDisabled, httpx.CodeOf(err))
}

func TestRequireUsable(t *testing.T) {
	_, store := newService(t)
	ctx := context.Background()

	eff, err := actions.RequireUsable(ctx, store, 10, 1)
	require.NoError(t, err)
	require.Equal(t, actions.TypeEntry, eff.Type)

	_, err = actions.RequireUsable(ctx, store, 10, 7)
	require.Equal(t, actions.CodePartnerDisabled, httpx.CodeOf(err))

	store.PutOverride(actions.Override{LocationID: 10, ActionID: 2, IsEnabled: false})
	_, err = actions.RequireUsable(ctx, store, 10, 2)
	require.Equal(t, actions.CodeActionNotEnabled, httpx.CodeOf(err))

	_, err = actions.RequireUsable(ctx, store, 10, 404)
	require.Equal(t, actions.CodeActionNotFound, httpx.CodeOf(err))
}
