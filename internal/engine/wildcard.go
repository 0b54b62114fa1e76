package engine

import "github.com/peak-solution/openatfx-sub003/internal/model"

// WildcardColumns returns the column names a "*" select expands to for
// elem, in projection order.
func WildcardColumns(elem *model.Element) []string {
	cols := expandWildcard(elem)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// expandWildcard lists every attribute of elem except the bulk values
// attribute, followed by every relation whose own range is bounded.
//
// To-many relations are never expanded, even though an explicit select may
// name them.
func expandWildcard(elem *model.Element) []column {
	cols := make([]column, 0, len(elem.Attributes)+len(elem.Relations))
	for _, a := range elem.Attributes {
		if elem.IsBulkValues(a) {
			continue
		}
		cols = append(cols, column{name: a.Name, attribute: a})
	}
	for _, r := range elem.Relations {
		if r.IsToMany() {
			continue
		}
		cols = append(cols, column{name: r.Name, relation: r})
	}
	return cols
}
