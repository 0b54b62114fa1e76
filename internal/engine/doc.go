// Package engine evaluates queries against an InstanceStore.
//
// ARCHITECTURE:
//
// Evaluate runs a fixed pipeline per call. No state survives between calls:
//
//	Validate → Resolve → Filter (per element) → barrier
//	         → Aggregate | Project (wildcard expansion) → Join → Result
//
// Validate and Resolve reject a query before any instance data is read.
// Filtering and projection are independent per element and fan out on an
// errgroup bounded by WithParallelism. Aggregation and join expansion only
// start after every per-element pass has finished.
//
// Errors:
// The first error wins. Every error is returned without a partial result.
// Query errors are *queryerr.Error values; store failures are wrapped and
// carry no code.
//
// Cancellation:
// The context is checked between stages and passed to every store call. A
// cancelled evaluation returns ctx.Err() and no result.
//
// CRITICAL PATTERNS:
//
// Presence: value.Value carries presence explicitly. The engine never
// treats a zero payload as "no value".
//
// Ordering: row order is the store's instance order, narrowed by filters.
// Join rows are emitted root-major, related ids in store order.
package engine
