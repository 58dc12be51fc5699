// Package query defines the predicate model shared by the method-name
// parser, the executor, and the SQL renderer.
//
// A ParsedQuery is plain data: a result Type, an ordered list of
// Conditions, OrderBy keys, an optional Limit, and the Distinct and AsOf
// flags. It carries no argument values; those are supplied positionally at
// execution time, and Arity tells how many are needed.
//
// # Evaluation Order
//
// Conditions are grouped left to right. Each Condition's Logical field says
// how it joins the condition before it; an OR starts a new group. A row
// matches when every condition of at least one group matches. This mirrors
// the textual grammar, which has no parentheses.
//
// # Errors
//
// The sentinel errors in this package are returned (wrapped) by both the
// parser and the executor, so callers test one set of values with errors.Is.
package query
