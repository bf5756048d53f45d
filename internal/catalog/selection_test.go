package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/byteaxis/byteaxis-api/internal/catalog"
)

func TestToggleIsFunctional(t *testing.T) {
	original := catalog.Selection{"website": true}
	next := catalog.Toggle(original, "webapp")

	require.True(t, next.Selected("webapp"))
	require.True(t, next.Selected("website"))
	require.False(t, original.Selected("webapp"), "input selection must not change")
	require.Len(t, original, 1)

	off := catalog.Toggle(next, "website")
	require.False(t, off.Selected("website"))
	require.True(t, next.Selected("website"))
}

func TestToggleTwiceRestoresState(t *testing.T) {
	states := []catalog.Selection{
		nil,
		{},
		{"website": true},
		{"website": true, "mobile": false},
	}
	for _, state := range states {
		for _, id := range []string{"website", "mobile", "unknown"} {
			round := catalog.Toggle(catalog.Toggle(state, id), id)
			require.True(t, catalog.Equal(state, round), "state %v id %s", state, id)
		}
	}
}

func TestSelectedItemsFollowsCatalogOrder(t *testing.T) {
	c := catalog.Default()
	sel := catalog.SelectionFromIDs([]string{"maintenance", "website", "ghost"})

	items := catalog.SelectedItems(c, sel)
	require.Len(t, items, 2)
	require.Equal(t, "website", items[0].ID)
	require.Equal(t, "maintenance", items[1].ID)
	require.Equal(t, []string{"Business website (5-7 pages)", "Maintenance retainer (monthly)"}, catalog.Labels(items))
}

func TestEqualTreatsMissingAsFalse(t *testing.T) {
	require.True(t, catalog.Equal(catalog.Selection{"a": false}, nil))
	require.False(t, catalog.Equal(catalog.Selection{"a": true}, catalog.Selection{}))
}
