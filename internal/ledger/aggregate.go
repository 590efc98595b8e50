package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/calendar"
)

// ImpactLookup answers whether an action counts toward the impacted total.
// actions.Index satisfies it.
type ImpactLookup interface {
	ImpactsTotal(actionID int64) bool
}

var _ ImpactLookup = actions.Index(nil)

type noImpact struct{}

func (noImpact) ImpactsTotal(int64) bool { return false }

// TotalsOf sums movements by their stored type. A nil lookup leaves the impacted total at zero.
func TotalsOf(movements []Movement, impacts ImpactLookup) calendar.Totals {
	if impacts == nil {
		impacts = noImpact{}
	}
	entries, exits, impacted := decimal.Zero, decimal.Zero, decimal.Zero
	for _, m := range movements {
		switch m.Type {
		case actions.TypeEntry:
			entries = entries.Add(m.Amount)
			if impacts.ImpactsTotal(m.ActionID) {
				impacted = impacted.Add(m.Amount)
			}
		case actions.TypeExit:
			exits = exits.Add(m.Amount)
			if impacts.ImpactsTotal(m.ActionID) {
				impacted = impacted.Sub(m.Amount)
			}
		}
	}
	return calendar.Totals{
		Entries:  entries,
		Exits:    exits,
		Net:      entries.Sub(exits),
		Impacted: impacted,
		Count:    len(movements),
	}
}

// Aggregate partitions movements by date, most recent day first, keeping the
// input order of movements inside each day.
func Aggregate(movements []Movement, impacts ImpactLookup) Aggregation {
	byDay := make(map[time.Time]*DayGroup)
	var order []time.Time
	for _, m := range movements {
		day := calendar.Day(m.Date)
		g, ok := byDay[day]
		if !ok {
			g = &DayGroup{Date: day}
			byDay[day] = g
			order = append(order, day)
		}
		g.Movements = append(g.Movements, m)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].After(order[j]) })

	out := Aggregation{Days: make([]DayGroup, 0, len(order)), Totals: TotalsOf(movements, impacts)}
	for _, day := range order {
		g := byDay[day]
		g.Totals = TotalsOf(g.Movements, impacts)
		out.Days = append(out.Days, *g)
	}
	return out
}

// DayTotals flattens an aggregation into per-day totals for weekly grouping.
func (a Aggregation) DayTotals() []calendar.DayTotals {
	out := make([]calendar.DayTotals, 0, len(a.Days))
	for _, d := range a.Days {
		out = append(out, calendar.DayTotals{Date: d.Date, Totals: d.Totals})
	}
	return out
}

// SummarizePeriods sums movements into each of the given periods. Movements
// outside every period are ignored; empty periods report zero totals.
func SummarizePeriods(movements []Movement, periods []calendar.Bounds) []PeriodAggregate {
	buckets := make([][]Movement, len(periods))
	for _, m := range movements {
		day := calendar.Day(m.Date)
		for i, p := range periods {
			if p.Contains(day) {
				buckets[i] = append(buckets[i], m)
				break
			}
		}
	}
	out := make([]PeriodAggregate, len(periods))
	for i, p := range periods {
		out[i] = PeriodAggregate{Bounds: p, Totals: TotalsOf(buckets[i], nil)}
	}
	return out
}
