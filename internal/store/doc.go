// Package store provides a SQLite-backed instance store for the query engine.
//
// The store holds:
//   - Elements and enumerations: the meta-model, as JSON definitions
//   - Instances: per element, in insertion order
//   - Attribute values: one row per present value, text encoded
//   - Links: relation edges in insertion order, both directions
//
// # Presence
//
// A value is present iff its attribute_values row exists. Present zero
// values ("", 0, empty sequences) are stored as rows like any other value,
// so "no value" and "zero" never collapse.
//
// # Deterministic Reads
//
//   - Instances and links are read ORDER BY seq (insertion order)
//   - Values are read ORDER BY instance_id and realigned to the caller's ids
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// *Store implements engine.InstanceStore and is safe for concurrent use.
package store
