// Package calendar computes business-calendar period boundaries. Business weeks
// run Sunday to Saturday; a business month starts on the first Sunday on or after
// the 1st of its calendar month. All dates are UTC midnights and every End is exclusive.
package calendar

import (
	"regexp"
	"sort"
	"time"

	"github.com/rinde/rinde/internal/platform/httpx"
)

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Scope selects the period a ledger view covers.
type Scope string

const (
	ScopeDay   Scope = "day"
	ScopeWeek  Scope = "week"
	ScopeMonth Scope = "month"
	ScopeAll   Scope = "all"
)

// Mode selects the period length of a settlement series.
type Mode string

const (
	ModeWeek  Mode = "week"
	ModeMonth Mode = "month"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Bounds is a half-open [Start, End) date range.
type Bounds struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls inside b.
func (b Bounds) Contains(day time.Time) bool {
	return !day.Before(b.Start) && day.Before(b.End)
}

// ParseDate parses YYYY-MM-DD into a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	if !isoDate.MatchString(s) {
		return time.Time{}, httpx.Validation("DATE_INVALID", "date must be YYYY-MM-DD")
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, httpx.Validation("DATE_INVALID", err.Error())
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to the UTC midnight of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseScope validates a ledger scope; empty means day.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeDay, nil
	case ScopeDay, ScopeWeek, ScopeMonth, ScopeAll:
		return Scope(s), nil
	}
	return "", httpx.Validation("SCOPE_INVALID", "scope must be day, week, month or all")
}

// ParseMode validates a settlement mode; empty means week.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeWeek, nil
	case ModeWeek, ModeMonth:
		return Mode(s), nil
	}
	return "", httpx.Validation("MODE_INVALID", "mode must be week or month")
}

// WeekStart returns the Sunday at or before ref.
func WeekStart(ref time.Time) time.Time {
	d := Day(ref)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// FirstSunday returns the first Sunday on or after the 1st of the given month.
// Out-of-range months normalise, so month 13 is January of the next year.
func FirstSunday(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 0, (7-int(first.Weekday()))%7)
}

// MonthBounds returns the business month belonging to ref's calendar month.
// Days before that month's first Sunday still report the same month.
func MonthBounds(ref time.Time) Bounds {
	y, m, _ := ref.Date()
	return Bounds{Start: FirstSunday(y, m), End: FirstSunday(y, m+1)}
}

// BoundsFor computes the period of scope containing ref.
func BoundsFor(scope Scope, ref time.Time) (Bounds, error) {
	switch scope {
	case ScopeDay:
		start := Day(ref)
		return Bounds{Start: start, End: start.AddDate(0, 0, 1)}, nil
	case ScopeWeek:
		start := WeekStart(ref)
		return Bounds{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case ScopeMonth:
		return MonthBounds(ref), nil
	}
	return Bounds{}, httpx.Validation("SCOPE_INVALID", "scope has no bounds: "+string(scope))
}

// Series returns count consecutive periods ending with the one that holds
// anchor, ordered oldest to newest.
func Series(mode Mode, anchor time.Time, count int) []Bounds {
	if count <= 0 {
		return nil
	}
	out := make([]Bounds, 0, count)
	switch mode {
	case ModeMonth:
		y, m, _ := anchor.Date()
		// days before the first Sunday belong to the previous business month
		if Day(anchor).Before(FirstSunday(y, m)) {
			m--
		}
		for i := count - 1; i >= 0; i-- {
			pivot := time.Date(y, m-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
			out = append(out, MonthBounds(pivot))
		}
	default:
		base := WeekStart(anchor)
		for i := count - 1; i >= 0; i-- {
			start := base.AddDate(0, 0, -7*i)
			out = append(out, Bounds{Start: start, End: start.AddDate(0, 0, 7)})
		}
	}
	return out
}

// WeekTotals is one Sunday-aligned bucket produced by GroupIntoWeeks.
type WeekTotals struct {
	Bounds
	Totals
}

// GroupIntoWeeks buckets day totals by the business week containing each day
// and returns the buckets most recent first.
func GroupIntoWeeks(days []DayTotals) []WeekTotals {
	byStart := make(map[time.Time]*WeekTotals)
	for _, d := range days {
		start := WeekStart(d.Date)
		bucket, ok := byStart[start]
		if !ok {
			bucket = &WeekTotals{
				Bounds: Bounds{Start: start, End: start.AddDate(0, 0, 7)},
				Totals: ZeroTotals(),
			}
			byStart[start] = bucket
		}
		bucket.Totals = bucket.Totals.Add(d.Totals)
	}
	out := make([]WeekTotals, 0, len(byStart))
	for _, b := range byStart {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out
}
