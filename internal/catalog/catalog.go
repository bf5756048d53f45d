package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Item describes a purchasable line item with a flat unit price.
type Item struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	UnitPrice float64 `json:"unitPrice"`
	Category  string  `json:"category"`
}

// Catalog is an immutable, ordered list of line items keyed by id.
type Catalog struct {
	items []Item
	index map[string]int
}

// New validates the provided items and freezes them into a Catalog.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return nil, errors.New("catalog: item id is required")
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate item id %q", id)
		}
		if it.UnitPrice < 0 {
			return nil, fmt.Errorf("catalog: item %q has negative price", id)
		}
		it.ID = id
		c.index[id] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

// MustNew behaves like New but panics on invalid input. Intended for static catalogs.
func MustNew(items []Item) *Catalog {
	c, err := New(items)
	if err != nil {
		panic(err)
	}
	return c
}

// Items returns a copy of the catalog items in definition order.
func (c *Catalog) Items() []Item {
	if c == nil {
		return nil
	}
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup returns the item registered under id.
func (c *Catalog) Lookup(id string) (Item, bool) {
	if c == nil {
		return Item{}, false
	}
	idx, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// Len reports the number of items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Categories lists distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(c.items))
	out := make([]string, 0, len(c.items))
	for _, it := range c.items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}

// Default returns the ByteAxis service catalog.
func Default() *Catalog {
	return MustNew([]Item{
		{ID: "website", Label: "Business website (5-7 pages)", UnitPrice: 950, Category: "Websites"},
		{ID: "webapp", Label: "Web application MVP", UnitPrice: 3500, Category: "Web Apps"},
		{ID: "mobile", Label: "Mobile app (iOS + Android)", UnitPrice: 4500, Category: "Mobile"},
		{ID: "internal", Label: "Internal system / dashboard", UnitPrice: 2800, Category: "Internal Systems"},
		{ID: "ecommerce", Label: "E-commerce store setup", UnitPrice: 3200, Category: "Websites"},
		{ID: "branding", Label: "Brand identity starter kit", UnitPrice: 220, Category: "Business Setup"},
		{ID: "registration", Label: "Business registration pack", UnitPrice: 150, Category: "Business Setup"},
		{ID: "compliance", Label: "Compliance & opening papers", UnitPrice: 200, Category: "Business Setup"},
		{ID: "social", Label: "Social media business pages", UnitPrice: 120, Category: "Marketing"},
		{ID: "ads", Label: "Ads boosting setup", UnitPrice: 180, Category: "Marketing"},
		{ID: "domain", Label: "Domain registration (annual)", UnitPrice: 25, Category: "Hosting"},
		{ID: "hosting", Label: "Hosting + SSL + backups (annual)", UnitPrice: 180, Category: "Hosting"},
		{ID: "email", Label: "Business email hosting (annual)", UnitPrice: 120, Category: "Hosting"},
		{ID: "maintenance", Label: "Maintenance retainer (monthly)", UnitPrice: 250, Category: "Support"},
	})
}
