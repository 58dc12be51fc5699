// Package temporal implements the bitemporal versioning model.
//
// Every fact is recorded on two axes:
//   - Business time: when the fact is true in the world
//   - Processing time: when the system recorded that belief
//
// Both axes use half-open intervals [From, Thru). A Thru equal to Infinity
// marks an edge point, the row currently believed on that axis.
//
// # Chaining
//
// Versions are never changed in place. An update closes the processing
// interval of the affected edge points and inserts successors opened at the
// same instant (Supersede); a delete only closes them (Retire). The planning
// functions here are pure: they return a Transition, and the store applies
// it inside one transaction.
//
// # As-of lookups
//
// ActiveAt uses containment on both axes. A processing instant that is zero
// or at/after Infinity is normalized to "current" and selects the processing
// edge point.
package temporal
