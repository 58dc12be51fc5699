package query

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Type is the shape of a query's result.
//
// The parser derives it from the method-name prefix:
//   - find, read, get, query, search: Find (matching rows)
//   - count: Count (number of matching rows)
//   - exists: Exists (whether any row matches)
//   - delete, remove: Delete (terminate matching rows)
type Type int

const (
	Find Type = iota
	Count
	Exists
	Delete
)

var typeNames = [...]string{"Find", "Count", "Exists", "Delete"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Operator is a predicate applied to one property.
//
// Each operator consumes a fixed number of positional arguments (Arity):
//   - BETWEEN: 2 (low, high; both inclusive)
//   - IS_NULL, IS_NOT_NULL, TRUE, FALSE: 0
//   - all others: 1
type Operator int

const (
	Equals Operator = iota
	NotEquals
	LessThan
	LessThanEqual
	GreaterThan
	GreaterThanEqual
	Between
	In
	NotIn
	Like
	NotLike
	Containing
	NotContaining
	StartingWith
	EndingWith
	IsNull
	IsNotNull
	True
	False
)

var operatorNames = [...]string{
	"EQUALS", "NOT_EQUALS", "LESS_THAN", "LESS_THAN_EQUAL", "GREATER_THAN",
	"GREATER_THAN_EQUAL", "BETWEEN", "IN", "NOT_IN", "LIKE", "NOT_LIKE",
	"CONTAINING", "NOT_CONTAINING", "STARTING_WITH", "ENDING_WITH",
	"IS_NULL", "IS_NOT_NULL", "TRUE", "FALSE",
}

// Operators lists every operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, len(operatorNames))
	for i := range ops {
		ops[i] = Operator(i)
	}
	return ops
}

// String renders the upper-snake name, e.g. GREATER_THAN_EQUAL.
func (o Operator) String() string {
	if o.Valid() {
		return operatorNames[o]
	}
	return "Operator(" + strconv.Itoa(int(o)) + ")"
}

func (o Operator) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Valid reports whether o is one of the declared operators.
func (o Operator) Valid() bool {
	return o >= 0 && int(o) < len(operatorNames)
}

// Arity returns the number of positional arguments the operator consumes.
func (o Operator) Arity() int {
	switch o {
	case Between:
		return 2
	case IsNull, IsNotNull, True, False:
		return 0
	default:
		return 1
	}
}

// ParseOperator resolves an upper-snake operator name.
func ParseOperator(name string) (Operator, error) {
	for i, n := range operatorNames {
		if strings.EqualFold(n, name) {
			return Operator(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedOperator, "unknown operator %q", name)
}

// Logical joins a condition to the one before it.
type Logical int

const (
	And Logical = iota
	Or
)

func (l Logical) String() string {
	if l == Or {
		return "OR"
	}
	return "AND"
}

func (l Logical) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Direction is the sort order of one OrderBy key.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Condition is one predicate of a query.
//
// Logical annotates the join to the PREVIOUS condition and is ignored on the
// first one. Conditions are evaluated strictly left to right: consecutive
// AND-joined conditions form a group and the groups are ORed, so
//
//	A AND B OR C AND D
//
// means (A AND B) OR (C AND D). There is no parenthesized grouping.
type Condition struct {
	Property string   `json:"property"`
	Operator Operator `json:"operator"`
	Logical  Logical  `json:"logical"`
}

// OrderBy is one sort key.
type OrderBy struct {
	Property  string    `json:"property"`
	Direction Direction `json:"direction"`
}

// ParsedQuery is the structured form of a query method name.
//
// Example:
//
//	findDistinctTop5ByStatusAndAmountGreaterThanOrderByCreatedAtDescAsOf
//
// parses to
//
//	ParsedQuery{
//	  Type:       Find,
//	  Conditions: []Condition{
//	    {Property: "status", Operator: Equals, Logical: And},
//	    {Property: "amount", Operator: GreaterThan, Logical: And},
//	  },
//	  OrderBy:  []OrderBy{{Property: "createdAt", Direction: Desc}},
//	  Limit:    5,
//	  Distinct: true,
//	  AsOf:     true,
//	}
//
// Limit 0 means no limit. AsOf adds one trailing business-instant argument
// when there are conditions; with no conditions the query simply selects
// every row as of that instant.
type ParsedQuery struct {
	Method     string      `json:"method,omitempty"`
	Type       Type        `json:"type"`
	Conditions []Condition `json:"conditions"`
	OrderBy    []OrderBy   `json:"orderBy"`
	Limit      int         `json:"limit"`
	Distinct   bool        `json:"distinct"`
	AsOf       bool        `json:"asOf"`
}

// Arity returns the number of positional arguments Execute requires: the
// sum of the condition operators' arities, plus one for the as-of instant
// when AsOf is set and there are conditions.
func (q ParsedQuery) Arity() int {
	n := 0
	for _, c := range q.Conditions {
		n += c.Operator.Arity()
	}
	if q.AsOf && len(q.Conditions) > 0 {
		n++
	}
	return n
}

// Groups splits the conditions into AND-groups: a new group starts at every
// condition joined by Or. The query matches when any group fully matches.
func (q ParsedQuery) Groups() [][]Condition {
	var groups [][]Condition
	for i, c := range q.Conditions {
		if i == 0 || c.Logical == Or {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], c)
	}
	return groups
}
