// Package ledger records cash movements and aggregates them into day and
// period totals.
package ledger

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/calendar"
)

// Shift tags a movement with the part of the day it belongs to.
type Shift string

const (
	ShiftMorning   Shift = "MORNING"
	ShiftAfternoon Shift = "AFTERNOON"
	ShiftNight     Shift = "NIGHT"
)

// Valid reports whether s is a known shift.
func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftNight:
		return true
	}
	return false
}

// Error codes reported by this package.
const (
	CodeDateRequired    = "DATE_REQUIRED"
	CodeShiftRequired   = "SHIFT_REQUIRED"
	CodeShiftNotAllowed = "SHIFT_NOT_ALLOWED"
	CodeNameRequired    = "NAME_REQUIRED"
)

// Movement is a single cash entry or exit. Type is captured when the movement
// is created and later override changes do not rewrite it.
type Movement struct {
	ID         int64
	LocationID int64
	Date       time.Time
	ActionID   int64
	ActionName string
	Type       actions.MovementType
	Amount     decimal.Decimal
	Shift      *Shift
	PersonName *string
	CreatedBy  int64
	CreatedAt  time.Time
}

// IsSlot reports whether the movement is an untagged day-editor slot.
func (m Movement) IsSlot() bool {
	return m.Shift == nil && m.PersonName == nil
}

// DayGroup holds the movements of one day in insertion order.
type DayGroup struct {
	Date      time.Time
	Movements []Movement
	Totals    calendar.Totals
}

// Aggregation is the grouped form of a set of movements.
type Aggregation struct {
	Days   []DayGroup
	Totals calendar.Totals
}

// PeriodAggregate sums the movements of one settlement period.
type PeriodAggregate struct {
	calendar.Bounds
	calendar.Totals
}

// View is the ledger for a scope and reference date.
type View struct {
	Scope            calendar.Scope
	Bounds           *calendar.Bounds
	Days             []DayGroup
	Weeks            []calendar.WeekTotals
	Totals           calendar.Totals
	LastMovementDate *time.Time
}

// CreateMovementInput is the request to record one movement.
type CreateMovementInput struct {
	Date     string  `json:"date"`
	ActionID int64   `json:"actionId" validate:"required,gt=0"`
	Amount   string  `json:"amount" validate:"required"`
	Shift    *string `json:"shift,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// SlotValue is a day-editor amount sent either as a JSON string or number.
type SlotValue string

func (v *SlotValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = SlotValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	// JSON numbers always use a dot decimal mark, even with three fraction digits
	*v = SlotValue(bytes.ReplaceAll([]byte(n.String()), []byte("."), []byte(",")))
	return nil
}

// SaveDayInput carries day-editor values keyed by action id.
type SaveDayInput struct {
	Date   string               `json:"date"`
	Values map[string]SlotValue `json:"values"`
}

// SaveDayResult counts the slots written by a save.
type SaveDayResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// DaySlots is the day-editor state: one amount per action.
type DaySlots struct {
	Date   time.Time
	Values map[int64]decimal.Decimal
}
