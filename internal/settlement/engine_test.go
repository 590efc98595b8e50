package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rinde/rinde/internal/calendar"
	"github.com/rinde/rinde/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func period(net string) ledger.PeriodAggregate {
	n := dec(net)
	t := calendar.ZeroTotals()
	if n.Sign() >= 0 {
		t.Entries = n
	} else {
		t.Exits = n.Neg()
	}
	t.Net = n
	return ledger.PeriodAggregate{Totals: t}
}

func TestSettleCarriesLossIntoNextPeriod(t *testing.T) {
	rows := Settle([]ledger.PeriodAggregate{period("-500"), period("800")}, dec("0.5"))
	require.Len(t, rows, 2)

	require.True(t, rows[0].CarryBefore.IsZero())
	require.True(t, rows[0].CarryAfter.Equal(dec("-500")))
	require.True(t, rows[0].Divisible.IsZero())
	require.True(t, rows[0].PartnerPart.IsZero())
	require.True(t, rows[0].OwnerPart.IsZero())

	require.True(t, rows[1].CarryBefore.Equal(dec("-500")))
	require.True(t, rows[1].Balance.Equal(dec("300")))
	require.True(t, rows[1].Divisible.Equal(dec("300")))
	require.True(t, rows[1].PartnerPart.Equal(dec("150")))
	require.True(t, rows[1].OwnerPart.Equal(dec("150")))
	require.True(t, rows[1].CarryAfter.IsZero())
}

func TestSettleLossesAccumulate(t *testing.T) {
	rows := Settle([]ledger.PeriodAggregate{period("-100"), period("-50"), period("120"), period("40")}, dec("0.3"))
	require.True(t, rows[1].CarryAfter.Equal(dec("-150")))
	require.True(t, rows[2].CarryAfter.Equal(dec("-30")))
	require.True(t, rows[2].Divisible.IsZero())
	require.True(t, rows[3].Divisible.Equal(dec("10")))
	require.True(t, rows[3].PartnerPart.Equal(dec("3")))
	require.True(t, rows[3].OwnerPart.Equal(dec("7")))
}

func TestSettleZeroBalanceIsNotDivisible(t *testing.T) {
	rows := Settle([]ledger.PeriodAggregate{period("-10"), period("10")}, dec("0.5"))
	require.True(t, rows[1].Divisible.IsZero())
	require.True(t, rows[1].CarryAfter.IsZero())
}

func TestSettlePartsAlwaysAddUp(t *testing.T) {
	fractions := []string{"0", "0.01", "0.3333", "0.5", "0.99"}
	nets := []string{"100.01", "-3.33", "0.07", "999.99", "-1000", "1234.56"}
	for _, f := range fractions {
		var periods []ledger.PeriodAggregate
		for _, n := range nets {
			periods = append(periods, period(n))
		}
		for _, r := range Settle(periods, dec(f)) {
			require.True(t, r.PartnerPart.Add(r.OwnerPart).Equal(r.Divisible), "fraction %s", f)
			require.True(t, r.CarryAfter.Sign() <= 0)
			require.True(t, r.PartnerPart.Equal(r.PartnerPart.Round(2)))
		}
	}
}

func TestSettleDisabledSharingGivesOwnerEverything(t *testing.T) {
	rows := Settle([]ledger.PeriodAggregate{period("250")}, decimal.Zero)
	require.True(t, rows[0].PartnerPart.IsZero())
	require.True(t, rows[0].OwnerPart.Equal(dec("250")))
}

func TestSettleIsStateless(t *testing.T) {
	in := []ledger.PeriodAggregate{period("-500"), period("800")}
	first := Settle(in, dec("0.5"))
	second := Settle(in, dec("0.25"))
	require.True(t, second[0].CarryBefore.IsZero())
	require.True(t, first[1].PartnerPart.Equal(dec("150")))
	require.True(t, second[1].PartnerPart.Equal(dec("75")))
	require.Empty(t, Settle(nil, dec("0.5")))
}
