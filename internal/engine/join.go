package engine

import (
	"context"
	"fmt"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// join expands the projected results of the join's two elements into one
// row per (root, related) pair and reports whether it did so.
//
// A relation that is not many-to-many on both sides leaves results
// unchanged. Otherwise:
//  1. root rows are taken in filtered order
//  2. each root row's related ids are fetched in store order
//  3. related ids outside the target's filtered rows are dropped
//  4. every column of both elements is realigned to the pair sequence
//
// Root rows without related ids contribute no rows (inner join). Each
// joined element must select its id column so joined rows stay
// identifiable.
func (e *Engine) join(ctx context.Context, jp *joinPlan, plans []*elementPlan, ids [][]int64, results []ElementResult) (bool, error) {
	rel := jp.relation
	if !rel.IsManyToMany() {
		return false, nil
	}

	root, target := plans[jp.root].element, plans[jp.target].element
	if err := requireIDColumn(root, &results[jp.root]); err != nil {
		return false, err
	}
	if err := requireIDColumn(target, &results[jp.target]); err != nil {
		return false, err
	}
	rootRows := rowIndex(ids[jp.root])
	targetRows := rowIndex(ids[jp.target])

	var rootPick, targetPick []int
	for _, id := range ids[jp.root] {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		row := rootRows[id]
		related, err := e.store.RelatedIDs(ctx, root.ID, id, rel)
		if err != nil {
			return false, fmt.Errorf("related ids of %s %d over %s: %w", root.Name, id, rel.Name, err)
		}
		for _, rid := range related {
			t, ok := targetRows[rid]
			if !ok {
				continue // filtered out
			}
			rootPick = append(rootPick, row)
			targetPick = append(targetPick, t)
		}
	}

	results[jp.root] = realign(results[jp.root], rootPick)
	results[jp.target] = realign(results[jp.target], targetPick)
	return true, nil
}

// requireIDColumn reports a joined element whose id attribute is not among
// its projected columns.
func requireIDColumn(elem *model.Element, er *ElementResult) error {
	idAttr := elem.IDAttribute()
	if idAttr == nil {
		return queryerr.BadParameter("joined element has no id attribute").WithElement(elem.Name)
	}
	if er.Column(idAttr.Name) != nil {
		return nil
	}
	return queryerr.BadParameter("joined element must select its id attribute %q", idAttr.Name).
		WithColumn(elem.Name, idAttr.Name)
}

// rowIndex maps instance ids to their row in a projection over ids.
func rowIndex(ids []int64) map[int64]int {
	index := make(map[int64]int, len(ids))
	for row, id := range ids {
		index[id] = row
	}
	return index
}

// realign returns er with every column rebuilt from the given rows, in order.
func realign(er ElementResult, rows []int) ElementResult {
	cols := make([]Column, len(er.Columns))
	for i, c := range er.Columns {
		values := make([]value.Value, len(rows))
		for j, r := range rows {
			values[j] = c.Values[r]
		}
		c.Values = values
		cols[i] = c
	}
	er.Columns = cols
	return er
}
