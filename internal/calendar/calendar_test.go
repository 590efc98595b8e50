package calendar

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rinde/rinde/internal/platform/httpx"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseDate(t *testing.T) {
	d := date(t, "2024-01-10")
	require.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "2024-1-10", "10/01/2024", "2024-02-30", "2024-13-01"} {
		_, err := ParseDate(bad)
		require.ErrorIs(t, err, httpx.ErrValidation, bad)
		require.Equal(t, "DATE_INVALID", httpx.CodeOf(err), bad)
	}
}

func TestWeekBoundsStartOnSunday(t *testing.T) {
	b, err := BoundsFor(ScopeWeek, date(t, "2024-01-10"))
	require.NoError(t, err)
	require.Equal(t, "2024-01-07", FormatDate(b.Start))
	require.Equal(t, "2024-01-14", FormatDate(b.End))

	b, err = BoundsFor(ScopeWeek, date(t, "2024-01-07"))
	require.NoError(t, err)
	require.Equal(t, "2024-01-07", FormatDate(b.Start))
}

func TestWeekBoundsAlwaysSpanSevenDays(t *testing.T) {
	ref := date(t, "2023-12-20")
	for i := 0; i < 60; i++ {
		day := ref.AddDate(0, 0, i)
		b, err := BoundsFor(ScopeWeek, day)
		require.NoError(t, err)
		require.Equal(t, time.Sunday, b.Start.Weekday())
		require.Equal(t, 7*24*time.Hour, b.End.Sub(b.Start))
		require.True(t, b.Contains(day))
	}
}

func TestDayBounds(t *testing.T) {
	b, err := BoundsFor(ScopeDay, time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "2024-03-05", FormatDate(b.Start))
	require.Equal(t, "2024-03-06", FormatDate(b.End))
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		ref, start, end string
	}{
		{ref: "2024-03-15", start: "2024-03-03", end: "2024-04-07"},
		{ref: "2024-12-20", start: "2024-12-01", end: "2025-01-05"},
		{ref: "2024-09-01", start: "2024-09-01", end: "2024-10-06"},
		// before the first Sunday the calendar month still decides
		{ref: "2024-03-01", start: "2024-03-03", end: "2024-04-07"},
	}
	for _, tt := range tests {
		b, err := BoundsFor(ScopeMonth, date(t, tt.ref))
		require.NoError(t, err)
		require.Equal(t, tt.start, FormatDate(b.Start), tt.ref)
		require.Equal(t, tt.end, FormatDate(b.End), tt.ref)
		require.Equal(t, time.Sunday, b.Start.Weekday())
	}
}

func TestBoundsForAllIsRejected(t *testing.T) {
	_, err := BoundsFor(ScopeAll, date(t, "2024-01-01"))
	require.Equal(t, "SCOPE_INVALID", httpx.CodeOf(err))
}

func TestParseScopeAndMode(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	require.Equal(t, ScopeDay, s)
	_, err = ParseScope("year")
	require.Equal(t, "SCOPE_INVALID", httpx.CodeOf(err))

	m, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeWeek, m)
	m, err = ParseMode("month")
	require.NoError(t, err)
	require.Equal(t, ModeMonth, m)
	_, err = ParseMode("day")
	require.Equal(t, "MODE_INVALID", httpx.CodeOf(err))
}

func TestSeriesWeeksOldestFirst(t *testing.T) {
	got := Series(ModeWeek, date(t, "2024-01-10"), 3)
	require.Len(t, got, 3)
	require.Equal(t, "2023-12-24", FormatDate(got[0].Start))
	require.Equal(t, "2023-12-31", FormatDate(got[1].Start))
	require.Equal(t, "2024-01-07", FormatDate(got[2].Start))
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1].End, got[i].Start)
	}
}

func TestSeriesMonthsRollOverYear(t *testing.T) {
	got := Series(ModeMonth, date(t, "2025-01-20"), 3)
	require.Len(t, got, 3)
	require.Equal(t, "2024-11-03", FormatDate(got[0].Start))
	require.Equal(t, "2024-12-01", FormatDate(got[1].Start))
	require.Equal(t, "2025-01-05", FormatDate(got[2].Start))
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1].End, got[i].Start)
	}
	require.Empty(t, Series(ModeMonth, date(t, "2025-01-20"), 0))
}

func TestSeriesMonthContainsAnchorBeforeFirstSunday(t *testing.T) {
	anchor := date(t, "2025-03-01")
	got := Series(ModeMonth, anchor, 1)
	require.Len(t, got, 1)
	require.Equal(t, "2025-02-02", FormatDate(got[0].Start))
	require.Equal(t, "2025-03-02", FormatDate(got[0].End))
	require.True(t, got[0].Contains(anchor))

	got = Series(ModeMonth, date(t, "2025-01-04"), 2)
	require.Equal(t, "2024-11-03", FormatDate(got[0].Start))
	require.Equal(t, "2024-12-01", FormatDate(got[1].Start))
	require.True(t, got[1].Contains(date(t, "2025-01-04")))
}

func TestGroupIntoWeeksMostRecentFirst(t *testing.T) {
	mk := func(d string, entries int64) DayTotals {
		tot := ZeroTotals().Add(Totals{
			Entries:  decimal.NewFromInt(entries),
			Exits:    decimal.Zero,
			Impacted: decimal.NewFromInt(entries),
			Count:    1,
		})
		return DayTotals{Date: date(t, d), Totals: tot}
	}
	days := []DayTotals{
		mk("2024-01-13", 10),
		mk("2024-01-07", 5),
		mk("2024-01-06", 1),
		mk("2024-01-14", 2),
	}
	weeks := GroupIntoWeeks(days)
	require.Len(t, weeks, 3)
	require.Equal(t, "2024-01-14", FormatDate(weeks[0].Start))
	require.Equal(t, "2024-01-07", FormatDate(weeks[1].Start))
	require.Equal(t, "2023-12-31", FormatDate(weeks[2].Start))
	require.True(t, weeks[1].Entries.Equal(decimal.NewFromInt(15)))
	require.True(t, weeks[1].Net.Equal(decimal.NewFromInt(15)))
	require.Equal(t, 2, weeks[1].Count)
	require.Empty(t, GroupIntoWeeks(nil))
}
