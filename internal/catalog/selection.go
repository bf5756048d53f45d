package catalog

// Selection maps item ids to their selected flag. Missing keys are unselected.
type Selection map[string]bool

// SelectionFromIDs builds a selection with every provided id set.
func SelectionFromIDs(ids []string) Selection {
	sel := make(Selection, len(ids))
	for _, id := range ids {
		sel[id] = true
	}
	return sel
}

// Selected reports whether id is selected.
func (s Selection) Selected(id string) bool {
	return s[id]
}

// Toggle returns a copy of sel with the flag at id flipped. sel is left untouched.
func Toggle(sel Selection, id string) Selection {
	next := make(Selection, len(sel)+1)
	for k, v := range sel {
		next[k] = v
	}
	next[id] = !sel[id]
	return next
}

// Equal compares two selections treating absent keys as false.
func Equal(a, b Selection) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}

// SelectedItems returns the selected catalog items in catalog order. Unknown ids are ignored.
func SelectedItems(c *Catalog, sel Selection) []Item {
	if c == nil {
		return nil
	}
	out := make([]Item, 0, len(sel))
	for _, it := range c.items {
		if sel[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// Labels extracts the labels of items.
func Labels(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}
