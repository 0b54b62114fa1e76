package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/peak-solution/openatfx-sub003/internal/query"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// Aggregate reduces values of a column declared as dt with fn.
//
// Only MAX is supported. Absent values are skipped; when none is present the
// result is an absent value of dt. The maximum is rebuilt from its text form
// so the result has exactly the column's kind.
func Aggregate(fn query.Aggregate, dt value.DataType, values []value.Value) (value.Value, error) {
	if fn != query.AggMax {
		return value.Value{}, queryerr.Unsupported("aggregate %s is not supported, only MAX", fn)
	}
	if !dt.IsNumeric() {
		return value.Value{}, queryerr.TypeMismatch("cannot aggregate %s column", dt)
	}

	var best value.Value
	for _, v := range values {
		if !v.Present() {
			continue
		}
		if !best.Present() {
			best = v
			continue
		}
		var err error
		if best, err = value.Max(best, v); err != nil {
			return value.Value{}, err
		}
	}
	if !best.Present() {
		return value.Absent(dt), nil
	}
	if best.Type != dt {
		return value.Value{}, queryerr.TypeMismatch("%s value in %s column", best.Type, dt)
	}
	return value.FromString(dt, value.ToString(best))
}

// aggregate evaluates the single aggregated select of p over ids. For a
// relation column the related ids of all rows are reduced as DT_LONGLONG.
func (e *Engine) aggregate(ctx context.Context, p *elementPlan, sel query.Select, ids []int64) (ElementResult, error) {
	col := p.columns[0]

	var (
		dt     value.DataType
		values []value.Value
	)
	if rel := col.relation; rel != nil {
		dt = value.DTLongLong
		for _, id := range ids {
			related, err := e.store.RelatedIDs(ctx, p.element.ID, id, rel)
			if err != nil {
				return ElementResult{}, fmt.Errorf("related ids of %s %d over %s: %w", p.element.Name, id, rel.Name, err)
			}
			for _, r := range related {
				values = append(values, value.NewLongLong(r))
			}
		}
	} else {
		dt = col.attribute.DataType
		var err error
		if values, err = e.columnValues(ctx, p.element, col, ids); err != nil {
			return ElementResult{}, err
		}
	}

	v, err := Aggregate(sel.Aggregate, dt, values)
	if err != nil {
		var qe *queryerr.Error
		if errors.As(err, &qe) {
			return ElementResult{}, qe.WithColumn(p.element.Name, col.name)
		}
		return ElementResult{}, err
	}

	c := newColumn(col.name, dt, []value.Value{v})
	c.Aggregate = sel.Aggregate
	return ElementResult{
		ElementID:   p.element.ID,
		ElementName: p.element.Name,
		Columns:     []Column{c},
	}, nil
}
