package calendar

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals are the additive sums of a set of movements.
type Totals struct {
	Entries  decimal.Decimal `json:"totalEntries"`
	Exits    decimal.Decimal `json:"totalExits"`
	Net      decimal.Decimal `json:"netResult"`
	Impacted decimal.Decimal `json:"totalImpacted"`
	Count    int             `json:"movementCount"`
}

// ZeroTotals returns totals with every sum at zero.
func ZeroTotals() Totals {
	return Totals{Entries: decimal.Zero, Exits: decimal.Zero, Net: decimal.Zero, Impacted: decimal.Zero}
}

// Add sums two totals. Net is recomputed so it always equals Entries - Exits.
func (t Totals) Add(o Totals) Totals {
	out := Totals{
		Entries:  t.Entries.Add(o.Entries),
		Exits:    t.Exits.Add(o.Exits),
		Impacted: t.Impacted.Add(o.Impacted),
		Count:    t.Count + o.Count,
	}
	out.Net = out.Entries.Sub(out.Exits)
	return out
}

// DayTotals are the totals of a single calendar day.
type DayTotals struct {
	Date time.Time
	Totals
}
