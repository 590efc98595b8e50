// Package actions owns the global action catalog and the per-location overrides
// that decide how each action behaves at a location.
package actions

import (
	"time"
)

// Category groups catalog actions.
type Category string

const (
	CategoryShift      Category = "SHIFT"
	CategoryDeposit    Category = "DEPOSIT"
	CategoryElectronic Category = "ELECTRONIC"
	CategoryPartner    Category = "PARTNER"
	CategoryOther      Category = "OTHER"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryShift, CategoryDeposit, CategoryElectronic, CategoryPartner, CategoryOther:
		return true
	}
	return false
}

// MovementType is the direction of a cash movement.
type MovementType string

const (
	TypeEntry MovementType = "ENTRY"
	TypeExit  MovementType = "EXIT"
)

// Error codes reported by this package.
const (
	CodeActionNotFound   = "ACTION_NOT_FOUND"
	CodeActionNotEnabled = "ACTION_NOT_ENABLED"
	CodePartnerDisabled  = "PARTNER_DISABLED"
)

// Definition is a catalog action shared by every location.
type Definition struct {
	ID                  int64        `json:"id"`
	Name                string       `json:"name"`
	Category            Category     `json:"category"`
	DefaultType         MovementType `json:"defaultType"`
	ImpactsTotalDefault bool         `json:"impactsTotalDefault"`
	UsesShift           bool         `json:"usesShift"`
	UsesName            bool         `json:"usesName"`
	IsActive            bool         `json:"isActive"`
}

// Override is the per-location row customising a catalog action. Nil pointer
// fields mean "no override" and fall back to the catalog default.
type Override struct {
	LocationID        int64         `json:"locationId"`
	ActionID          int64         `json:"actionId"`
	IsEnabled         bool          `json:"isEnabled"`
	DisplayOrder      int           `json:"order"`
	TypeOverride      *MovementType `json:"typeOverride"`
	ImpactsTotal      bool          `json:"impactsTotal"`
	ImpactsTotalSince *time.Time    `json:"impactsTotalSince"`
	UsesShiftOverride *bool         `json:"usesShiftOverride"`
	UsesNameOverride  *bool         `json:"usesNameOverride"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// Effective is the merged view of a definition and its optional override.
type Effective struct {
	ActionID     int64        `json:"actionId"`
	Name         string       `json:"name"`
	Category     Category     `json:"category"`
	Type         MovementType `json:"type"`
	UsesShift    bool         `json:"usesShift"`
	UsesName     bool         `json:"usesName"`
	ImpactsTotal bool         `json:"impactsTotal"`
	Enabled      bool         `json:"-"`
	Order        int          `json:"-"`
}

// Usable reports whether movements may be written for the action from user flows.
func (e Effective) Usable() bool {
	return e.Enabled && e.Category != CategoryPartner
}

// Defaults mirrors the catalog values shown next to an override.
type Defaults struct {
	DefaultType         MovementType `json:"defaultType"`
	ImpactsTotalDefault bool         `json:"impactsTotalDefault"`
	UsesShift           bool         `json:"usesShift"`
	UsesName            bool         `json:"usesName"`
}

// RawOverrides are the nullable override columns as stored.
type RawOverrides struct {
	TypeOverride      *MovementType `json:"typeOverride"`
	UsesShiftOverride *bool         `json:"usesShiftOverride"`
	UsesNameOverride  *bool         `json:"usesNameOverride"`
}

// ConfigRow is one line of the location's action configuration.
type ConfigRow struct {
	ActionID          int64        `json:"actionId"`
	Name              string       `json:"name"`
	Category          Category     `json:"category"`
	IsEnabled         bool         `json:"isEnabled"`
	Order             int          `json:"order"`
	Type              MovementType `json:"type"`
	UsesShift         bool         `json:"usesShift"`
	UsesName          bool         `json:"usesName"`
	ImpactsTotal      bool         `json:"impactsTotal"`
	ImpactsTotalSince *string      `json:"impactsTotalSince"`
	Defaults          Defaults     `json:"defaults"`
	Overrides         RawOverrides `json:"overrides"`
}

// SaveInput updates one override row within a batch.
type SaveInput struct {
	ActionID          int64         `json:"actionId" validate:"required,gt=0"`
	IsEnabled         bool          `json:"isEnabled"`
	Order             int           `json:"order" validate:"gte=0"`
	TypeOverride      *MovementType `json:"typeOverride" validate:"omitempty,oneof=ENTRY EXIT"`
	UsesShiftOverride *bool         `json:"usesShiftOverride"`
	UsesNameOverride  *bool         `json:"usesNameOverride"`
	ImpactsTotal      bool          `json:"impactsTotal"`
}
