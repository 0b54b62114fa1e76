package engine

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// projectAll loads the selected columns of every element for its filtered
// rows. Elements run concurrently.
func (e *Engine) projectAll(ctx context.Context, plans []*elementPlan, ids [][]int64) ([]ElementResult, error) {
	out := make([]ElementResult, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i, p := range plans {
		g.Go(func() error {
			er, err := e.project(gctx, p, ids[i])
			if err != nil {
				return err
			}
			out[i] = er
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) project(ctx context.Context, p *elementPlan, ids []int64) (ElementResult, error) {
	er := ElementResult{
		ElementID:   p.element.ID,
		ElementName: p.element.Name,
		Columns:     make([]Column, 0, len(p.columns)),
	}
	for _, col := range p.columns {
		if err := ctx.Err(); err != nil {
			return ElementResult{}, err
		}
		values, err := e.columnValues(ctx, p.element, col, ids)
		if err != nil {
			return ElementResult{}, err
		}
		er.Columns = append(er.Columns, newColumn(col.name, col.dataType(), values))
	}
	return er, nil
}

// columnValues returns one value per id for col.
func (e *Engine) columnValues(ctx context.Context, elem *model.Element, col column, ids []int64) ([]value.Value, error) {
	if col.relation != nil {
		return e.relationValues(ctx, elem, col.relation, ids)
	}
	values, err := e.store.Values(ctx, elem.ID, col.attribute.Name, ids)
	if err != nil {
		return nil, fmt.Errorf("values of %s.%s: %w", elem.Name, col.name, err)
	}
	if len(values) != len(ids) {
		return nil, queryerr.Invariant("store returned %d values for %d instances", len(values), len(ids)).
			WithColumn(elem.Name, col.name)
	}
	return values, nil
}

// relationValues returns the related ids of every row: a DT_LONGLONG (absent
// when unlinked) for bounded relations, a DS_LONGLONG for to-many ones.
//
// A bounded relation with several targets is a modeling error and is
// reported, never truncated.
func (e *Engine) relationValues(ctx context.Context, elem *model.Element, rel *model.Relation, ids []int64) ([]value.Value, error) {
	out := make([]value.Value, len(ids))
	for i, id := range ids {
		related, err := e.store.RelatedIDs(ctx, elem.ID, id, rel)
		if err != nil {
			return nil, fmt.Errorf("related ids of %s %d over %s: %w", elem.Name, id, rel.Name, err)
		}
		if rel.IsToMany() {
			out[i] = value.NewLongLongSeq(slices.Clone(related)...)
			continue
		}
		switch len(related) {
		case 0:
			out[i] = value.Absent(value.DTLongLong)
		case 1:
			out[i] = value.NewLongLong(related[0])
		default:
			return nil, queryerr.Invariant("to-one relation of instance %d has %d related instances", id, len(related)).
				WithColumn(elem.Name, rel.Name)
		}
	}
	return out, nil
}
