package presets

import (
	"github.com/rinde/rinde/internal/actions"
)

// ResolveTargets turns preset items into the actions they name at a location.
// Direct items survive only when the action is usable there; category items
// expand to every usable action of the category in the order of effective.
// PARTNER never resolves. The first occurrence of an action wins.
func ResolveTargets(items []Item, effective []actions.Effective) []actions.Effective {
	usable := actions.Usable(effective)
	byID := actions.NewIndex(usable)

	seen := make(map[int64]struct{}, len(usable))
	out := make([]actions.Effective, 0, len(items))
	add := func(e actions.Effective) {
		if _, dup := seen[e.ActionID]; dup {
			return
		}
		seen[e.ActionID] = struct{}{}
		out = append(out, e)
	}

	for _, it := range items {
		switch it.Kind {
		case KindAction:
			if it.ActionID == nil {
				continue
			}
			if e, ok := byID[*it.ActionID]; ok {
				add(e)
			}
		case KindCategory:
			if it.Category == nil || *it.Category == actions.CategoryPartner {
				continue
			}
			for _, e := range usable {
				if e.Category == *it.Category {
					add(e)
				}
			}
		}
	}
	return out
}
