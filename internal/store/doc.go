// Package store provides SQLite-backed durable storage for bitemporal
// version chains.
//
// Each row of the versions table is one temporal.Version of one entity id:
//   - business_from / business_thru: when the payload is true in the world
//   - processing_from / processing_thru: when the row was believed
//   - payload: canonical JSON (see value.MarshalCanonical)
//   - tx_id: the write that produced the row (UUIDv7 by default)
//
// Rows are never deleted or edited in place. The only mutation of an
// existing row is closing its processing_thru, and it happens inside Apply
// together with the inserts that replace it.
//
// # Deterministic Query Results
//
// Every read has an ORDER BY, so repeated reads return identical slices.
// Instants are stored as fixed-width UTC text with nanosecond precision.
// Lexical order equals chronological order, and the Infinity sentinel
// (year 9999) is representable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: writers are serialized
//
// The sequences table backs sequence.Backend for persistent id allocation.
package store
