// Package settlement splits period profits between the owner and a partner,
// carrying losses forward until later profits absorb them.
package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/ledger"
	"github.com/rinde/rinde/internal/money"
)

// Row is the settlement of one period.
type Row struct {
	Start                time.Time       `json:"start"`
	End                  time.Time       `json:"end"`
	Entries              decimal.Decimal `json:"entries"`
	Exits                decimal.Decimal `json:"exits"`
	NetResult            decimal.Decimal `json:"netResult"`
	MovementCount        int             `json:"movementCount"`
	CarryBefore          decimal.Decimal `json:"carryBefore"`
	Balance              decimal.Decimal `json:"balanceBeforeSplit"`
	CarryAfter           decimal.Decimal `json:"carryAfter"`
	Divisible            decimal.Decimal `json:"divisible"`
	PartnerShareFraction decimal.Decimal `json:"partnerShareFraction"`
	PartnerPart          decimal.Decimal `json:"partnerPart"`
	OwnerPart            decimal.Decimal `json:"ownerPart"`
}

// Settle folds periods, oldest first, into settlement rows. A running carry
// starts at zero; a non-positive balance is carried whole into the next period,
// a positive one is split and resets the carry. The partner part is rounded to
// cents and the owner receives the remainder, so the parts always add up.
func Settle(periods []ledger.PeriodAggregate, fraction decimal.Decimal) []Row {
	rows := make([]Row, 0, len(periods))
	carry := decimal.Zero
	for _, p := range periods {
		row := Row{
			Start:                p.Start,
			End:                  p.End,
			Entries:              p.Entries,
			Exits:                p.Exits,
			NetResult:            p.Net,
			MovementCount:        p.Count,
			CarryBefore:          carry,
			PartnerShareFraction: fraction,
			Divisible:            decimal.Zero,
			PartnerPart:          decimal.Zero,
			OwnerPart:            decimal.Zero,
		}
		balance := carry.Add(p.Net)
		row.Balance = balance
		if balance.Sign() <= 0 {
			carry = balance
		} else {
			row.Divisible = balance
			row.PartnerPart = money.Round2(balance.Mul(fraction))
			row.OwnerPart = balance.Sub(row.PartnerPart)
			carry = decimal.Zero
		}
		row.CarryAfter = carry
		rows = append(rows, row)
	}
	return rows
}
