package actions

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Resolve merges a catalog definition with the location's override row.
// ov == nil means the row does not exist, which is distinct from a present row
// whose nullable fields are unset: impacts-total and enabled come from the row
// whenever it exists.
func Resolve(def Definition, ov *Override) Effective {
	eff := Effective{
		ActionID:     def.ID,
		Name:         def.Name,
		Category:     def.Category,
		Type:         def.DefaultType,
		UsesShift:    def.UsesShift,
		UsesName:     def.UsesName,
		ImpactsTotal: def.ImpactsTotalDefault,
		Enabled:      true,
	}
	if ov == nil {
		return eff
	}
	if ov.TypeOverride != nil {
		eff.Type = *ov.TypeOverride
	}
	if ov.UsesShiftOverride != nil {
		eff.UsesShift = *ov.UsesShiftOverride
	}
	if ov.UsesNameOverride != nil {
		eff.UsesName = *ov.UsesNameOverride
	}
	eff.ImpactsTotal = ov.ImpactsTotal
	eff.Enabled = ov.IsEnabled
	eff.Order = ov.DisplayOrder
	return eff
}

// ResolveAll resolves every definition against overrides keyed by action id.
func ResolveAll(defs []Definition, overrides map[int64]Override) []Effective {
	out := make([]Effective, 0, len(defs))
	for _, def := range defs {
		if ov, ok := overrides[def.ID]; ok {
			out = append(out, Resolve(def, &ov))
			continue
		}
		out = append(out, Resolve(def, nil))
	}
	return out
}

// SortForDisplay orders actions by display order, then by name using Spanish
// collation so accented names sort where readers expect them.
func SortForDisplay(list []Effective) {
	col := collate.New(language.Spanish, collate.IgnoreCase)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Order != list[j].Order {
			return list[i].Order < list[j].Order
		}
		return col.CompareString(list[i].Name, list[j].Name) < 0
	})
}

// Index maps effective actions by id.
type Index map[int64]Effective

// NewIndex builds an Index from a resolved list.
func NewIndex(list []Effective) Index {
	idx := make(Index, len(list))
	for _, e := range list {
		idx[e.ActionID] = e
	}
	return idx
}

// ImpactsTotal reports the effective impacts-total flag; unknown actions do not impact.
func (idx Index) ImpactsTotal(actionID int64) bool {
	e, ok := idx[actionID]
	return ok && e.ImpactsTotal
}

// Usable lists the actions usable from user flows, preserving order.
func Usable(list []Effective) []Effective {
	out := make([]Effective, 0, len(list))
	for _, e := range list {
		if e.Usable() {
			out = append(out, e)
		}
	}
	return out
}
