package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/query"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// DefaultParallelism is the default number of elements filtered and
// projected concurrently.
const DefaultParallelism = 4

// Engine evaluates queries against an InstanceStore.
//
// Thread-safety: Evaluate may be called from any goroutine. The engine holds
// no per-call state; everything an evaluation builds is local to it.
type Engine struct {
	store       InstanceStore
	logger      *slog.Logger
	parallelism int
	ids         IDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for evaluation debug output.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithParallelism bounds how many elements are filtered and projected at
// once. Values below 1 are treated as 1 (sequential).
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = max(n, 1)
	}
}

// WithIDGenerator sets the evaluation id source.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New creates an Engine reading from s.
func New(s InstanceStore, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		logger:      slog.Default(),
		parallelism: DefaultParallelism,
		ids:         UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// column is a resolved select or condition target: exactly one of attribute
// and relation is set.
type column struct {
	name      string
	attribute *model.Attribute
	relation  *model.Relation
}

// dataType is the kind of the column's cells. Relations yield related ids:
// one per row for bounded relations, a sequence per row otherwise.
func (c column) dataType() value.DataType {
	if c.attribute != nil {
		return c.attribute.DataType
	}
	if c.relation.IsToMany() {
		return value.DSLongLong
	}
	return value.DTLongLong
}

type condition struct {
	query.Condition
	col column
}

// elementPlan is the resolved per-element work of one evaluation.
type elementPlan struct {
	element    *model.Element
	columns    []column // projected columns, wildcard expanded, unique by name
	conditions []condition
}

type joinPlan struct {
	relation *model.Relation
	root     int // plan index of the join source
	target   int // plan index of the join target
}

// Evaluate runs q and returns its result.
//
// The query is validated and resolved against the meta-model before any
// instance data is read. On error no result is returned.
func (e *Engine) Evaluate(ctx context.Context, q *query.Query) (*Result, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}
	fingerprint, err := query.Fingerprint(q)
	if err != nil {
		return nil, err
	}
	evalID := e.ids.Generate()
	log := e.logger.With("eval_id", evalID)
	log.Debug("evaluating query",
		"fingerprint", fingerprint,
		"selects", len(q.Selects),
		"conditions", len(q.Conditions()),
		"joins", len(q.Joins))

	plans, jp, err := e.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := e.filterAll(ctx, plans)
	if err != nil {
		return nil, err
	}
	for i, p := range plans {
		log.Debug("filtered", "element", p.element.Name, "rows", len(ids[i]))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{EvalID: evalID, Fingerprint: fingerprint}

	if sel, ok := q.AggregateSelect(); ok {
		er, err := e.aggregate(ctx, plans[0], sel, ids[0])
		if err != nil {
			return nil, err
		}
		log.Debug("aggregated", "element", er.ElementName, "function", sel.Aggregate.String())
		res.Elements = []ElementResult{er}
		return res, nil
	}

	results, err := e.projectAll(ctx, plans, ids)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if jp != nil {
		joined, err := e.join(ctx, jp, plans, ids, results)
		if err != nil {
			return nil, err
		}
		if !joined {
			log.Debug("join relation is not many-to-many, results left unjoined", "relation", jp.relation.Name)
		} else {
			log.Debug("joined", "relation", jp.relation.Name, "rows", results[jp.root].Rows())
		}
		res.Joined = joined
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Elements = results
	return res, nil
}

// Check validates q and resolves it against the meta-model without
// reading instance data. It reports the errors Evaluate would raise before
// filtering.
func (e *Engine) Check(ctx context.Context, q *query.Query) error {
	if err := query.Validate(q); err != nil {
		return err
	}
	_, _, err := e.resolve(ctx, q)
	return err
}

// resolve maps the query's element ids and column names onto the
// meta-model. Only element lookups touch the store.
func (e *Engine) resolve(ctx context.Context, q *query.Query) ([]*elementPlan, *joinPlan, error) {
	elementIDs := q.Elements()
	plans := make([]*elementPlan, len(elementIDs))
	index := make(map[int64]int, len(elementIDs))

	for i, id := range elementIDs {
		elem, err := e.store.ElementByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		plans[i] = &elementPlan{element: elem}
		index[id] = i
	}

	for _, sel := range q.Selects {
		p := plans[index[sel.Element]]
		if sel.IsWildcard() {
			for _, col := range expandWildcard(p.element) {
				p.addColumn(col)
			}
			continue
		}
		col, err := resolveColumn(p.element, sel.Column)
		if err != nil {
			return nil, nil, err
		}
		if sel.Aggregate != query.AggNone && col.attribute != nil && !col.attribute.DataType.IsNumeric() {
			return nil, nil, queryerr.TypeMismatch("cannot aggregate %s column", col.attribute.DataType).
				WithColumn(p.element.Name, col.name)
		}
		p.addColumn(col)
	}

	for _, c := range q.Conditions() {
		p := plans[index[c.Element]]
		col, err := resolveColumn(p.element, c.Column)
		if err != nil {
			return nil, nil, err
		}
		if err := checkConditionColumn(c, col); err != nil {
			return nil, nil, err.WithColumn(p.element.Name, col.name)
		}
		p.conditions = append(p.conditions, condition{Condition: c, col: col})
	}

	if len(q.Joins) == 0 {
		return plans, nil, nil
	}
	j := q.Joins[0]
	jp := &joinPlan{root: index[j.Source], target: index[j.Target]}
	source := plans[jp.root].element
	jp.relation = source.Relation(j.Relation)
	if jp.relation == nil {
		return nil, nil, queryerr.NotFound("relation %q not found", j.Relation).WithColumn(source.Name, j.Relation)
	}
	if target := plans[jp.target].element; jp.relation.Target != target.ID {
		return nil, nil, queryerr.BadParameter("relation %q does not point at element %s", j.Relation, target.Name).
			WithColumn(source.Name, j.Relation)
	}
	return plans, jp, nil
}

func (p *elementPlan) addColumn(col column) {
	for _, c := range p.columns {
		if c.name == col.name {
			return
		}
	}
	p.columns = append(p.columns, col)
}

// resolveColumn finds an attribute, then a relation, named name.
func resolveColumn(elem *model.Element, name string) (column, error) {
	if a := elem.Attribute(name); a != nil {
		return column{name: name, attribute: a}, nil
	}
	if r := elem.Relation(name); r != nil {
		return column{name: name, relation: r}, nil
	}
	return column{}, queryerr.NotFound("no attribute or relation %q", name).WithColumn(elem.Name, name)
}

// filterAll narrows the instances of every element by its conditions.
// Elements are independent and run concurrently; results land in disjoint
// slots.
func (e *Engine) filterAll(ctx context.Context, plans []*elementPlan) ([][]int64, error) {
	out := make([][]int64, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i, p := range plans {
		g.Go(func() error {
			ids, err := e.filterElement(gctx, p)
			if err != nil {
				return err
			}
			out[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) filterElement(ctx context.Context, p *elementPlan) ([]int64, error) {
	ids, err := e.store.Instances(ctx, p.element.ID)
	if err != nil {
		return nil, fmt.Errorf("instances of %s: %w", p.element.Name, err)
	}
	for _, c := range p.conditions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, err = e.filter(ctx, p.element, ids, c)
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
