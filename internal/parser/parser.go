package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/tempora/internal/query"
)

var prefixes = []struct {
	words []string
	t     query.Type
}{
	{[]string{"find", "read", "get", "query", "search"}, query.Find},
	{[]string{"count"}, query.Count},
	{[]string{"exists"}, query.Exists},
	{[]string{"delete", "remove"}, query.Delete},
}

var (
	firstPattern = regexp.MustCompile(`First(\d*)`)
	topPattern   = regexp.MustCompile(`Top(\d+)`)
)

const (
	byToken      = "By"
	orderByToken = "OrderBy"
	asOfToken    = "AsOf"
)

// Parser turns query method names into query.ParsedQuery values.
//
// Parsing is deterministic and never backtracks: the same name always
// yields the same query or the same error.
//
// Thread-safety: Parser is immutable after construction and safe for
// concurrent use.
type Parser struct {
	log *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for debug output.
func WithLogger(log *zap.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a parser.
func New(opts ...Option) *Parser {
	p := &Parser{log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse parses method with a parser that does not log.
func Parse(method string) (query.ParsedQuery, error) {
	return defaultParser.Parse(method)
}

// Parse parses a method name of the form
//
//	<prefix>[Distinct][First<N>|Top<N>]By[<conditions>][OrderBy<keys>][AsOf]
//
// Errors wrap query.ErrMalformedMethodName.
func (p *Parser) Parse(method string) (query.ParsedQuery, error) {
	qt, err := queryType(method)
	if err != nil {
		return query.ParsedQuery{}, err
	}

	byIndex := strings.Index(method, byToken)
	if byIndex == -1 {
		return query.ParsedQuery{}, errors.Wrapf(query.ErrMalformedMethodName, "%q has no %q", method, byToken)
	}
	modifiers := method[:byIndex]
	tail := method[byIndex+len(byToken):]

	limit, err := extractLimit(modifiers)
	if err != nil {
		return query.ParsedQuery{}, errors.Wrapf(err, "%q", method)
	}

	asOf := strings.HasSuffix(tail, asOfToken)
	if asOf {
		tail = strings.TrimSuffix(tail, asOfToken)
	}

	conditionPart, orderPart, hasOrder := strings.Cut(tail, orderByToken)

	q := query.ParsedQuery{
		Method:     method,
		Type:       qt,
		Conditions: []query.Condition{},
		OrderBy:    []query.OrderBy{},
		Limit:      limit,
		Distinct:   strings.Contains(modifiers, "Distinct"),
		AsOf:       asOf,
	}

	switch {
	case conditionPart != "":
		if q.Conditions, err = parseConditions(conditionPart); err != nil {
			return query.ParsedQuery{}, errors.Wrapf(err, "%q", method)
		}
	case !asOf:
		return query.ParsedQuery{}, errors.Wrapf(query.ErrMalformedMethodName,
			"%q has no conditions after %q", method, byToken)
	}

	if hasOrder {
		if q.OrderBy, err = parseOrderBy(orderPart); err != nil {
			return query.ParsedQuery{}, errors.Wrapf(err, "%q", method)
		}
	}

	p.log.Debug("method parsed",
		zap.String("method", method),
		zap.Stringer("type", q.Type),
		zap.Int("conditions", len(q.Conditions)),
		zap.Int("order_by", len(q.OrderBy)),
		zap.Int("limit", q.Limit),
		zap.Bool("as_of", q.AsOf),
	)
	return q, nil
}

func queryType(method string) (query.Type, error) {
	lower := strings.ToLower(method)
	for _, p := range prefixes {
		for _, w := range p.words {
			if strings.HasPrefix(lower, w) {
				return p.t, nil
			}
		}
	}
	return 0, errors.Wrapf(query.ErrMalformedMethodName, "%q has no recognized prefix", method)
}

// extractLimit reads First<N> (N optional, default 1) or Top<N>. First is
// checked before Top.
func extractLimit(modifiers string) (int, error) {
	if m := firstPattern.FindStringSubmatch(modifiers); m != nil {
		if m[1] == "" {
			return 1, nil
		}
		return atoiLimit(m[1])
	}
	if m := topPattern.FindStringSubmatch(modifiers); m != nil {
		return atoiLimit(m[1])
	}
	return 0, nil
}

func atoiLimit(digits string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, errors.Wrapf(query.ErrMalformedMethodName, "limit %s: %v", digits, err)
	}
	if n == 0 {
		return 0, errors.Wrapf(query.ErrMalformedMethodName, "limit %s must be positive", digits)
	}
	return n, nil
}

// parseConditions splits the segment at logical tokens, nearest first.
func parseConditions(segment string) ([]query.Condition, error) {
	var conditions []query.Condition
	remaining := segment
	logical := query.And

	for {
		andIndex := logicalIndex(remaining, "And")
		orIndex := logicalIndex(remaining, "Or")

		split := len(remaining)
		switch {
		case andIndex == -1 && orIndex == -1:
		case andIndex == -1:
			split = orIndex
		case orIndex == -1:
			split = andIndex
		default:
			split = min(andIndex, orIndex)
		}

		raw := remaining[:split]
		property, op := parseCondition(raw)
		conditions = append(conditions, query.Condition{Property: property, Operator: op, Logical: logical})

		if split == len(remaining) {
			return conditions, nil
		}

		if strings.HasPrefix(remaining[split:], "And") {
			logical = query.And
			remaining = remaining[split+len("And"):]
		} else {
			logical = query.Or
			remaining = remaining[split+len("Or"):]
		}
		if remaining == "" {
			return nil, errors.Wrapf(query.ErrMalformedMethodName,
				"%s is not followed by a condition", logical)
		}
	}
}

// logicalIndex finds the first occurrence of token that is not at position
// 0 and is followed by an upper-case letter or the end of the text. An
// occurrence inside an identifier ("Brand", "Color") never qualifies.
func logicalIndex(text, token string) int {
	from := 0
	for from < len(text) {
		i := strings.Index(text[from:], token)
		if i == -1 {
			return -1
		}
		i += from
		next := i + len(token)
		if i > 0 && (next == len(text) || upperAt(text, next)) {
			return i
		}
		from = i + 1
	}
	return -1
}

// parseCondition maps a raw condition to (property, operator) using the
// first occurrence of a keyword after position 0. No match means EQUALS on
// the whole condition.
func parseCondition(raw string) (string, query.Operator) {
	_, size := utf8.DecodeRuneInString(raw)
	for _, kw := range operatorKeywords {
		if i := strings.Index(raw[size:], kw.Text); i != -1 {
			return decapitalize(raw[:i+size]), kw.Operator
		}
	}
	return decapitalize(raw), query.Equals
}

// parseOrderBy splits the OrderBy segment into sort keys. A key ends right
// after an Asc/Desc (not at position 0) that is followed by an upper-case
// letter; Desc takes precedence when both qualify. When neither word occurs
// at all, the key ends at the next upper-case letter.
func parseOrderBy(segment string) ([]query.OrderBy, error) {
	keys := []query.OrderBy{}
	remaining := segment

	for remaining != "" {
		end := len(remaining)
		ascIndex := strings.Index(remaining, "Asc")
		descIndex := strings.Index(remaining, "Desc")

		if ascIndex > 0 {
			after := ascIndex + len("Asc")
			if after < len(remaining) && upperAt(remaining, after) {
				end = after
			}
		}
		if descIndex > 0 {
			after := descIndex + len("Desc")
			if after < len(remaining) && upperAt(remaining, after) {
				end = after
			}
		}
		if ascIndex == -1 && descIndex == -1 {
			if i := nextUpper(remaining); i != -1 {
				end = i
			}
		}

		clause := remaining[:end]
		dir := query.Asc
		property := clause
		switch {
		case strings.HasSuffix(clause, "Desc"):
			dir = query.Desc
			property = strings.TrimSuffix(clause, "Desc")
		case strings.HasSuffix(clause, "Asc"):
			property = strings.TrimSuffix(clause, "Asc")
		}
		if property == "" {
			return nil, errors.Wrapf(query.ErrMalformedMethodName, "order clause %q has no property", clause)
		}

		keys = append(keys, query.OrderBy{Property: decapitalize(property), Direction: dir})
		remaining = remaining[end:]
	}
	return keys, nil
}

func upperAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsUpper(r)
}

// nextUpper returns the byte index of the first upper-case letter after
// the first rune, or -1.
func nextUpper(s string) int {
	_, size := utf8.DecodeRuneInString(s)
	for i, r := range s[size:] {
		if unicode.IsUpper(r) {
			return i + size
		}
	}
	return -1
}

func decapitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || !unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
