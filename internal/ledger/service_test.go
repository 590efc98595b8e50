package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/platform/httpx"
)

func strPtr(s string) *string { return &s }

func TestCreateMovementAndAggregateDay(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateMovement(ctx, 10, 1, CreateMovementInput{
		Date: "2024-01-10", ActionID: 1, Amount: "1000", Shift: strPtr("MORNING"),
	}, "")
	require.NoError(t, err)
	require.NotZero(t, id)
	require.Equal(t, []int64{10}, inv.calls)

	view, err := svc.View(ctx, 10, "day", "2024-01-10")
	require.NoError(t, err)
	require.True(t, view.Totals.Entries.Equal(dec("1000")))
	require.True(t, view.Totals.Exits.IsZero())
	require.True(t, view.Totals.Net.Equal(dec("1000")))
	require.True(t, view.Totals.Impacted.Equal(dec("1000")))
	require.Equal(t, "2024-01-10", calendar.FormatDate(*view.LastMovementDate))
	require.Equal(t, ShiftMorning, *view.Days[0].Movements[0].Shift)
}

func TestCreateMovementValidation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateMovementInput
		code string
	}{
		{name: "missing date", in: CreateMovementInput{ActionID: 4, Amount: "10"}, code: CodeDateRequired},
		{name: "bad date", in: CreateMovementInput{Date: "10/01/2024", ActionID: 4, Amount: "10"}, code: "DATE_INVALID"},
		{name: "bad amount", in: CreateMovementInput{Date: "2024-01-10", ActionID: 4, Amount: "1e5"}, code: "AMOUNT_INVALID"},
		{name: "zero amount", in: CreateMovementInput{Date: "2024-01-10", ActionID: 4, Amount: "0"}, code: "AMOUNT_INVALID"},
		{name: "shift required", in: CreateMovementInput{Date: "2024-01-10", ActionID: 1, Amount: "10"}, code: CodeShiftRequired},
		{name: "shift not allowed", in: CreateMovementInput{Date: "2024-01-10", ActionID: 4, Amount: "10", Shift: strPtr("NIGHT")}, code: CodeShiftNotAllowed},
		{name: "unknown shift", in: CreateMovementInput{Date: "2024-01-10", ActionID: 1, Amount: "10", Shift: strPtr("DAWN")}, code: "BAD_REQUEST"},
		{name: "name required", in: CreateMovementInput{Date: "2024-01-10", ActionID: 5, Amount: "10", Name: strPtr("   ")}, code: CodeNameRequired},
		{name: "unknown action", in: CreateMovementInput{Date: "2024-01-10", ActionID: 99, Amount: "10"}, code: actions.CodeActionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMovement(ctx, 10, 1, tt.in, "")
			require.Error(t, err)
			require.Equal(t, tt.code, httpx.CodeOf(err))
		})
	}
	require.Zero(t, repo.count())
}

func TestCreateMovementRejectsPartnerAction(t *testing.T) {
	svc, repo, _ := newTestService(t)
	_, err := svc.CreateMovement(context.Background(), 10, 1, CreateMovementInput{
		Date: "2024-01-10", ActionID: 7, Amount: "500",
	}, "")
	require.ErrorIs(t, err, httpx.ErrConflict)
	require.Equal(t, actions.CodePartnerDisabled, httpx.CodeOf(err))
	require.Zero(t, repo.count())
}

func TestCreateMovementRejectsDisabledAction(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.PutOverride(actions.Override{LocationID: 10, ActionID: 4, IsEnabled: false, ImpactsTotal: true})
	_, err := svc.CreateMovement(context.Background(), 10, 1, CreateMovementInput{
		Date: "2024-01-10", ActionID: 4, Amount: "500",
	}, "")
	require.Equal(t, actions.CodeActionNotEnabled, httpx.CodeOf(err))
}

func TestCreateMovementStoresNameOnlyWhenUsed(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateMovement(ctx, 10, 1, CreateMovementInput{
		Date: "2024-01-10", ActionID: 5, Amount: "15.000,50", Name: strPtr("  Eva "),
	}, "")
	require.NoError(t, err)
	_, err = svc.CreateMovement(ctx, 10, 1, CreateMovementInput{
		Date: "2024-01-10", ActionID: 4, Amount: "20", Name: strPtr("ignored"),
	}, "")
	require.NoError(t, err)

	list, err := repo.ListDayMovements(ctx, 10, day(t, "2024-01-10"), nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Eva", *list[0].PersonName)
	require.True(t, list[0].Amount.Equal(dec("15000.50")))
	require.Equal(t, actions.TypeExit, list[0].Type)
	require.Nil(t, list[1].PersonName)
}

func TestCreateMovementIdempotencyKeyReplays(t *testing.T) {
	svc, repo, inv := newTestService(t)
	ctx := context.Background()
	in := CreateMovementInput{Date: "2024-01-10", ActionID: 4, Amount: "20"}

	first, err := svc.CreateMovement(ctx, 10, 1, in, "key-1")
	require.NoError(t, err)
	second, err := svc.CreateMovement(ctx, 10, 1, in, "key-1")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.count())
	require.Len(t, inv.calls, 1)

	third, err := svc.CreateMovement(ctx, 11, 1, in, "key-1")
	require.NoError(t, err)
	require.NotEqual(t, first, third)
}

func TestCreateMovementUsesOverriddenType(t *testing.T) {
	svc, repo, _ := newTestService(t)
	exit := actions.TypeExit
	repo.PutOverride(actions.Override{LocationID: 10, ActionID: 4, IsEnabled: true, TypeOverride: &exit})
	_, err := svc.CreateMovement(context.Background(), 10, 1, CreateMovementInput{Date: "2024-01-10", ActionID: 4, Amount: "20"}, "")
	require.NoError(t, err)

	view, err := svc.View(context.Background(), 10, "day", "2024-01-10")
	require.NoError(t, err)
	require.True(t, view.Totals.Exits.Equal(dec("20")))
	require.True(t, view.Totals.Impacted.IsZero())
}

func TestViewScopes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, d := range []string{"2024-01-06", "2024-01-07", "2024-01-10", "2024-02-04"} {
		_, err := svc.CreateMovement(ctx, 10, 1, CreateMovementInput{Date: d, ActionID: 4, Amount: "10"}, "")
		require.NoError(t, err)
	}

	week, err := svc.View(ctx, 10, "week", "2024-01-10")
	require.NoError(t, err)
	require.Len(t, week.Days, 2)
	require.Equal(t, "2024-01-07", calendar.FormatDate(week.Bounds.Start))
	require.Nil(t, week.Weeks)

	month, err := svc.View(ctx, 10, "month", "2024-01-20")
	require.NoError(t, err)
	require.Len(t, month.Days, 2)
	require.Len(t, month.Weeks, 1)

	all, err := svc.View(ctx, 10, "all", "")
	require.NoError(t, err)
	require.Len(t, all.Days, 4)
	require.Nil(t, all.Bounds)
	require.Equal(t, "2024-02-04", calendar.FormatDate(*all.LastMovementDate))
	require.Len(t, all.Weeks, 3)

	_, err = svc.View(ctx, 10, "", "")
	require.Equal(t, CodeDateRequired, httpx.CodeOf(err))
	_, err = svc.View(ctx, 10, "year", "2024-01-01")
	require.Equal(t, "SCOPE_INVALID", httpx.CodeOf(err))
}

func TestDaySlotsFirstUntaggedMovementWins(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	d := day(t, "2024-01-10")
	_, _ = repo.InsertMovement(ctx, Movement{LocationID: 10, Date: d, ActionID: 4, Type: actions.TypeEntry, Amount: dec("5")})
	_, _ = repo.InsertMovement(ctx, Movement{LocationID: 10, Date: d, ActionID: 4, Type: actions.TypeEntry, Amount: dec("7")})
	shift := ShiftNight
	_, _ = repo.InsertMovement(ctx, Movement{LocationID: 10, Date: d, ActionID: 1, Type: actions.TypeEntry, Amount: dec("9"), Shift: &shift})

	slots, err := svc.DaySlots(ctx, 10, "2024-01-10")
	require.NoError(t, err)
	require.Len(t, slots.Values, 1)
	require.True(t, slots.Values[4].Equal(dec("5")))
}

func TestSaveDaySlots(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	d := day(t, "2024-01-10")
	slotID, _ := repo.InsertMovement(ctx, Movement{LocationID: 10, Date: d, ActionID: 4, Type: actions.TypeEntry, Amount: dec("5")})

	exit := actions.TypeExit
	repo.PutOverride(actions.Override{LocationID: 10, ActionID: 4, IsEnabled: true, TypeOverride: &exit})

	res, err := svc.SaveDaySlots(ctx, 10, 1, SaveDayInput{
		Date: "2024-01-10",
		Values: map[string]SlotValue{
			"4": "0",
			"6": "1.500",
			"5": "",
		},
	})
	require.NoError(t, err)
	require.Equal(t, SaveDayResult{Created: 1, Updated: 1}, res)

	list, err := repo.ListDayMovements(ctx, 10, d, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, slotID, list[0].ID)
	require.True(t, list[0].Amount.IsZero())
	require.Equal(t, actions.TypeExit, list[0].Type)
	require.Equal(t, int64(6), list[1].ActionID)
	require.True(t, list[1].Amount.Equal(dec("1500")))
}

func TestSaveDaySlotsIsAtomic(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveDaySlots(ctx, 10, 1, SaveDayInput{
		Date:   "2024-01-10",
		Values: map[string]SlotValue{"4": "10", "7": "10"},
	})
	require.Equal(t, actions.CodePartnerDisabled, httpx.CodeOf(err))
	require.Zero(t, repo.count())

	_, err = svc.SaveDaySlots(ctx, 10, 1, SaveDayInput{
		Date:   "2024-01-10",
		Values: map[string]SlotValue{"4": "10", "6": "-3"},
	})
	require.Equal(t, "AMOUNT_INVALID", httpx.CodeOf(err))
	require.Zero(t, repo.count())

	res, err := svc.SaveDaySlots(ctx, 10, 1, SaveDayInput{Date: "2024-01-10"})
	require.NoError(t, err)
	require.Equal(t, SaveDayResult{}, res)
}

func TestViewKeepsImpactOfDeactivatedActions(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	// action 6 only impacts through its override row; action 4 through the catalog default
	repo.PutOverride(actions.Override{LocationID: 10, ActionID: 6, IsEnabled: true, ImpactsTotal: true})
	_, err := svc.CreateMovement(ctx, 10, 1, CreateMovementInput{Date: "2024-01-10", ActionID: 4, Amount: "500"}, "")
	require.NoError(t, err)
	_, err = svc.CreateMovement(ctx, 10, 1, CreateMovementInput{Date: "2024-01-10", ActionID: 6, Amount: "120"}, "")
	require.NoError(t, err)

	repo.Deactivate(4)
	repo.Deactivate(6)

	view, err := svc.View(ctx, 10, "day", "2024-01-10")
	require.NoError(t, err)
	require.True(t, view.Totals.Entries.Equal(dec("500")))
	require.True(t, view.Totals.Exits.Equal(dec("120")))
	require.True(t, view.Totals.Impacted.Equal(dec("380")), view.Totals.Impacted.String())
}
