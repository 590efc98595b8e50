// Package presets expands named bundles of actions into placeholder movements
// so a day can be pre-filled before amounts are typed in.
package presets

import (
	"time"

	"github.com/rinde/rinde/internal/actions"
)

// Scope tells whether a preset is shared by every location or owned by one.
type Scope string

const (
	ScopeGlobal Scope = "GLOBAL"
	ScopeLocal  Scope = "LOCAL"
)

// ItemKind selects how a preset item names its targets.
type ItemKind string

const (
	KindAction   ItemKind = "ACTION"
	KindCategory ItemKind = "CATEGORY"
)

// Error codes reported by this package.
const (
	CodePresetNotFound       = "PRESET_NOT_FOUND"
	CodePresetNotEditable    = "PRESET_NOT_EDITABLE"
	CodePresetItemNotFound   = "PRESET_ITEM_NOT_FOUND"
	CodePresetApplyBusy      = "PRESET_APPLY_BUSY"
	CodeItemActionRequired   = "ITEM_ACTION_REQUIRED"
	CodeItemCategoryRequired = "ITEM_CATEGORY_REQUIRED"
)

// NoteNoTargets marks an apply that resolved to nothing.
const NoteNoTargets = "NO_TARGETS"

// Preset is a named, ordered bundle of items.
type Preset struct {
	ID           int64     `json:"id"`
	Scope        Scope     `json:"scope"`
	LocationID   *int64    `json:"locationId"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"order"`
	IsActive     bool      `json:"isActive"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VisibleTo reports whether the location may list and apply the preset.
func (p Preset) VisibleTo(locationID int64) bool {
	if !p.IsActive {
		return false
	}
	switch p.Scope {
	case ScopeGlobal:
		return p.LocationID == nil
	case ScopeLocal:
		return p.LocationID != nil && *p.LocationID == locationID
	}
	return false
}

// EditableBy reports whether the location owns the preset.
func (p Preset) EditableBy(locationID int64) bool {
	return p.Scope == ScopeLocal && p.VisibleTo(locationID)
}

// Item names either a single action or a whole category.
type Item struct {
	ID           int64             `json:"id"`
	PresetID     int64             `json:"presetId"`
	Kind         ItemKind          `json:"kind"`
	ActionID     *int64            `json:"actionId"`
	Category     *actions.Category `json:"category"`
	DisplayOrder int               `json:"order"`
}

// ApplyResult reports how many placeholders an apply created.
type ApplyResult struct {
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Note    string `json:"note,omitempty"`
}

// CreatePresetInput creates a LOCAL preset.
type CreatePresetInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	Order *int   `json:"order" validate:"omitempty,gte=0"`
}

// UpdatePresetInput patches a LOCAL preset. Nil fields are left untouched.
type UpdatePresetInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Order    *int    `json:"order" validate:"omitempty,gte=0"`
	IsActive *bool   `json:"isActive"`
}

// CreateItemInput adds an item to a LOCAL preset.
type CreateItemInput struct {
	Kind     ItemKind `json:"kind" validate:"required,oneof=ACTION CATEGORY"`
	ActionID *int64   `json:"actionId" validate:"omitempty,gt=0"`
	Category *string  `json:"category"`
	Order    *int     `json:"order" validate:"omitempty,gte=0"`
}

// ApplyInput selects the day a preset is applied to.
type ApplyInput struct {
	Date string `json:"date"`
}
