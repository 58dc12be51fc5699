// Package executor evaluates a query.ParsedQuery against the rows of one
// entity type.
//
// Rows come from a Source and fields are read through an Accessor, so the
// executor is independent of storage and never uses reflection. The
// pipeline for every query type is:
//
//  1. Check the argument count against ParsedQuery.Arity
//  2. Bind arguments to conditions and check their shapes
//  3. Load candidates (as of the trailing business instant for AsOf)
//  4. Keep rows matching any AND-group
//  5. Stable sort by the OrderBy keys using value.Compare
//  6. Apply Limit, then Distinct
//
// Count, Exists and Delete then reduce that row set.
package executor
