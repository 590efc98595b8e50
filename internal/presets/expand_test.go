package presets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rinde/rinde/internal/actions"
)

func ids(list []actions.Effective) []int64 {
	out := make([]int64, 0, len(list))
	for _, e := range list {
		out = append(out, e.ActionID)
	}
	return out
}

func effectiveCatalog() []actions.Effective {
	return []actions.Effective{
		{ActionID: 1, Category: actions.CategoryShift, Enabled: true},
		{ActionID: 4, Category: actions.CategoryElectronic, Enabled: true},
		{ActionID: 8, Category: actions.CategoryElectronic, Enabled: true},
		{ActionID: 9, Category: actions.CategoryElectronic, Enabled: false},
		{ActionID: 6, Category: actions.CategoryOther, Enabled: true},
		{ActionID: 7, Category: actions.CategoryPartner, Enabled: true},
	}
}

func TestResolveTargetsCategoryIsDeduplicated(t *testing.T) {
	items := []Item{
		categoryItem(actions.CategoryElectronic),
		categoryItem(actions.CategoryElectronic),
		categoryItem(actions.CategoryElectronic),
	}
	got := ResolveTargets(items, effectiveCatalog())
	require.Equal(t, []int64{4, 8}, ids(got))
}

func TestResolveTargetsKeepsItemOrder(t *testing.T) {
	items := []Item{
		actionItem(6),
		categoryItem(actions.CategoryElectronic),
		actionItem(4),
		actionItem(1),
	}
	require.Equal(t, []int64{6, 4, 8, 1}, ids(ResolveTargets(items, effectiveCatalog())))
}

func TestResolveTargetsDropsUnusableActions(t *testing.T) {
	items := []Item{
		actionItem(9),
		actionItem(7),
		actionItem(404),
		categoryItem(actions.CategoryPartner),
		{Kind: KindAction},
		{Kind: KindCategory},
	}
	require.Empty(t, ResolveTargets(items, effectiveCatalog()))
}
