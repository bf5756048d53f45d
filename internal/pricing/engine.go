package pricing

import (
	"math"
	"strconv"

	"github.com/byteaxis/byteaxis-api/internal/catalog"
)

// VATRate is the flat value-added tax applied on top of the subtotal.
const VATRate = 0.15

// Totals aggregates computed pricing components at full float precision.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	VAT      float64 `json:"vat"`
	Total    float64 `json:"total"`
}

// DisplayTotals holds the two-decimal presentation of Totals.
type DisplayTotals struct {
	Subtotal string `json:"subtotal"`
	VAT      string `json:"vat"`
	Total    string `json:"total"`
}

// ComputeTotals sums the unit price of every selected catalog item and adds VAT.
// Ids in the selection that are not in the catalog are ignored.
func ComputeTotals(c *catalog.Catalog, sel catalog.Selection) Totals {
	var subtotal float64
	for _, it := range catalog.SelectedItems(c, sel) {
		subtotal += it.UnitPrice
	}
	vat := subtotal * VATRate
	return Totals{
		Subtotal: subtotal,
		VAT:      vat,
		Total:    subtotal + vat,
	}
}

// Display formats totals for presentation only.
func (t Totals) Display() DisplayTotals {
	return DisplayTotals{
		Subtotal: FormatAmount(t.Subtotal),
		VAT:      FormatAmount(t.VAT),
		Total:    FormatAmount(t.Total),
	}
}

// FormatAmount renders a monetary amount with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', 2, 64)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
