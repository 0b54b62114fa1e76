// Package value provides the typed value representation shared by every
// attribute, relation id and query operand.
//
// This package depends only on queryerr. The engine, the store and the CLI
// all exchange data as value.Value.
//
// Key design constraints:
//   - Payload is a sealed interface: one Go type per scalar kind and one per
//     sequence kind. Type switches over Payload are exhaustive.
//   - Presence is carried by the Payload itself. A Value with a nil Payload
//     is "no value"; a zero payload (0, "", false) is a present value.
//   - The DataType table is a fixed bijection between symbolic name, numeric
//     code and payload kind, built once at init and never mutated.
//   - Unknown names or codes are TYPE_MISMATCH errors, never a fallback.
package value
