// Package locations manages business locations and user memberships.
package locations

import "time"

// Error codes reported by this package.
const (
	CodeLocationNotFound     = "LOCATION_NOT_FOUND"
	CodeLocationInUse        = "LOCATION_IN_USE"
	CodeLocationSwitchDenied = "LOCATION_SWITCH_DENIED"
)

// Location is a business site with its own ledger.
type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInput names a new location.
type CreateInput struct {
	Name string `json:"name" validate:"required,max=120"`
}

// Created reports a new location and how many override rows were provisioned.
type Created struct {
	Location        Location `json:"location"`
	ActionsInserted int64    `json:"actionsInserted"`
}
