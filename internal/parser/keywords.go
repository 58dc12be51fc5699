package parser

import (
	"slices"

	"github.com/roach88/tempora/internal/query"
)

// Keyword maps a condition suffix to its operator.
type Keyword struct {
	Text     string
	Operator query.Operator
}

// operatorKeywords is scanned longest first; keywords of equal length keep
// their declaration order. Aliases (Is, Not, Contains, StartsWith, EndsWith,
// NotNull) share an operator with their canonical spelling.
var operatorKeywords = sortedByLength([]Keyword{
	{"GreaterThanEqual", query.GreaterThanEqual},
	{"LessThanEqual", query.LessThanEqual},
	{"GreaterThan", query.GreaterThan},
	{"LessThan", query.LessThan},
	{"NotEquals", query.NotEquals},
	{"Equals", query.Equals},
	{"Is", query.Equals},
	{"Not", query.NotEquals},
	{"Between", query.Between},
	{"NotIn", query.NotIn},
	{"In", query.In},
	{"NotLike", query.NotLike},
	{"Like", query.Like},
	{"NotContaining", query.NotContaining},
	{"Containing", query.Containing},
	{"Contains", query.Containing},
	{"StartingWith", query.StartingWith},
	{"StartsWith", query.StartingWith},
	{"EndingWith", query.EndingWith},
	{"EndsWith", query.EndingWith},
	{"IsNotNull", query.IsNotNull},
	{"NotNull", query.IsNotNull},
	{"IsNull", query.IsNull},
	{"True", query.True},
	{"False", query.False},
})

func sortedByLength(kws []Keyword) []Keyword {
	slices.SortStableFunc(kws, func(a, b Keyword) int {
		return len(b.Text) - len(a.Text)
	})
	return kws
}

// Keywords returns the condition keywords in scan order.
func Keywords() []Keyword {
	return slices.Clone(operatorKeywords)
}
