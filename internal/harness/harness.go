package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/peak-solution/openatfx-sub003/internal/engine"
	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/schema"
	"github.com/peak-solution/openatfx-sub003/internal/store"
	"github.com/peak-solution/openatfx-sub003/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenario steps with a fixed evaluation id against one store.
type Harness struct {
	store  engine.InstanceStore
	model  *model.Model
	engine *engine.Engine
	logger *slog.Logger
}

// Option configures a harness run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes engine and harness logs to l. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh store for isolation: an in-memory SQLite
// database, or the fixture store when the scenario asks for "memory".
//
// Execution flow:
// 1. Compile the CUE model and decode the instance data
// 2. Load both into a fresh store
// 3. Decode and evaluate every step's query
// 4. Check step expectations, then assertions
//
// Setup failures (model, data, store) are returned as errors; query
// failures are step outcomes.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := schema.LoadModelDir(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	data := &model.Dataset{}
	if scenario.Data != "" {
		if data, err = schema.ReadDataset(scenario.Data, m); err != nil {
			return nil, fmt.Errorf("failed to load data: %w", err)
		}
	}

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, scenario.Store, m, data)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	evalID := scenario.EvalID
	if evalID == "" {
		evalID = DefaultEvalID
	}

	h := &Harness{
		store: st,
		model: m,
		engine: engine.New(st,
			engine.WithLogger(o.logger),
			engine.WithIDGenerator(engine.NewFixedGenerator(evalID)),
		),
		logger: o.logger,
	}

	result := NewResult()
	for _, step := range scenario.Steps {
		outcome := h.executeStep(ctx, step)
		result.Steps = append(result.Steps, outcome)
		for _, msg := range checkExpect(step, outcome) {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// openStore creates the scenario's store and loads the model and data.
func openStore(ctx context.Context, backend string, m *model.Model, data *model.Dataset) (engine.InstanceStore, func(), error) {
	if backend == StoreMemory {
		ms := testutil.NewMemStore()
		for _, e := range m.Elements {
			ms.AddElement(e)
		}
		for _, e := range m.Enumerations {
			ms.AddEnumeration(e)
		}
		if err := ms.Load(data); err != nil {
			return nil, nil, fmt.Errorf("failed to load data: %w", err)
		}
		return ms, func() {}, nil
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	if err := st.Load(ctx, m, data); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to load data: %w", err)
	}
	return st, func() { st.Close() }, nil
}

// executeStep evaluates one step. Decode and evaluation errors become the
// outcome's Error.
func (h *Harness) executeStep(ctx context.Context, step Step) StepOutcome {
	outcome := StepOutcome{Step: step.Name}

	q, err := step.Query.Resolve(h.model)
	if err == nil {
		var res *engine.Result
		if res, err = h.engine.Evaluate(ctx, q); err == nil {
			outcome.Fingerprint = res.Fingerprint
			outcome.Joined = res.Joined
			outcome.Elements = snapshot(res)
		}
	}
	if err != nil {
		outcome.Error = errorText(err)
	}

	h.logger.Info("step completed",
		"step", step.Name,
		"error", outcome.Error,
		"elements", len(outcome.Elements),
	)
	return outcome
}

func errorText(err error) string {
	if code := queryerr.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}

// checkExpect compares an outcome with the step's expect clause.
func checkExpect(step Step, outcome StepOutcome) []string {
	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	if outcome.Error != expect.Error {
		if expect.Error == "" {
			return []string{fmt.Sprintf("step %s: unexpected error %s", step.Name, outcome.Error)}
		}
		return []string{fmt.Sprintf("step %s: expected error %s, got %q", step.Name, expect.Error, outcome.Error)}
	}

	var errs []string
	if expect.Joined != nil && *expect.Joined != outcome.Joined {
		errs = append(errs, fmt.Sprintf("step %s: expected joined=%t, got %t", step.Name, *expect.Joined, outcome.Joined))
	}
	for _, name := range sortedKeys(expect.Rows) {
		want := expect.Rows[name]
		es := outcome.Element(name)
		if es == nil {
			errs = append(errs, fmt.Sprintf("step %s: element %s not in result", step.Name, name))
			continue
		}
		if es.Rows() != want {
			errs = append(errs, fmt.Sprintf("step %s: expected %d rows of %s, got %d", step.Name, want, name, es.Rows()))
		}
	}
	return errs
}
