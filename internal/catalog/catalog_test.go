package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/byteaxis/byteaxis-api/internal/catalog"
)

func TestNewRejectsInvalidItems(t *testing.T) {
	_, err := catalog.New([]catalog.Item{{ID: "a", UnitPrice: 1}, {ID: "a", UnitPrice: 2}})
	require.ErrorContains(t, err, "duplicate")

	_, err = catalog.New([]catalog.Item{{ID: "a", UnitPrice: -1}})
	require.ErrorContains(t, err, "negative")

	_, err = catalog.New([]catalog.Item{{ID: "  "}})
	require.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	c := catalog.Default()
	require.Equal(t, 14, c.Len())

	item, ok := c.Lookup("webapp")
	require.True(t, ok)
	require.Equal(t, 3500.0, item.UnitPrice)

	_, ok = c.Lookup("missing")
	require.False(t, ok)

	require.Equal(t, []string{
		"Websites", "Web Apps", "Mobile", "Internal Systems",
		"Business Setup", "Marketing", "Hosting", "Support",
	}, c.Categories())
}

func TestItemsReturnsCopy(t *testing.T) {
	c := catalog.Default()
	items := c.Items()
	items[0].UnitPrice = 0

	item, _ := c.Lookup(items[0].ID)
	require.Equal(t, 950.0, item.UnitPrice)
}
