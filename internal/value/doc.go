// Package value defines the typed field values that entities expose to the
// query layer and that the store persists as payload.
//
// Value is a sealed interface: Null, String, Int, Float, Bool, Time, List and
// Object are the only implementations, so the executor can switch on them
// exhaustively. Ordering is defined by Compare, which gives sortable kinds a
// genuine total order instead of relying on hash codes.
//
// Payloads are persisted as canonical JSON (MarshalCanonical): sorted keys,
// NFC-normalized strings, and a tagged encoding for instants.
package value
