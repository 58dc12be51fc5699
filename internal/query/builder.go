package query

// Builder assembles a ParsedQuery in code, for callers that want the
// executor without going through a method name.
//
//	q, err := query.NewBuilder(query.Find).
//		Where("status", query.Equals).
//		Or("priority", query.GreaterThan).
//		OrderBy("createdAt", query.Desc).
//		Limit(10).
//		Build()
//
// Builder methods return the builder so calls chain; Build validates.
type Builder struct {
	q ParsedQuery
}

// NewBuilder starts a query of the given type.
func NewBuilder(t Type) *Builder {
	return &Builder{q: ParsedQuery{Type: t, Conditions: []Condition{}, OrderBy: []OrderBy{}}}
}

// Where appends a condition joined by AND. On the first condition the join
// is irrelevant.
func (b *Builder) Where(property string, op Operator) *Builder {
	return b.And(property, op)
}

// And appends a condition joined to the previous one by AND.
func (b *Builder) And(property string, op Operator) *Builder {
	b.q.Conditions = append(b.q.Conditions, Condition{Property: property, Operator: op, Logical: And})
	return b
}

// Or appends a condition that starts a new OR-group.
func (b *Builder) Or(property string, op Operator) *Builder {
	b.q.Conditions = append(b.q.Conditions, Condition{Property: property, Operator: op, Logical: Or})
	return b
}

// OrderBy appends a sort key.
func (b *Builder) OrderBy(property string, dir Direction) *Builder {
	b.q.OrderBy = append(b.q.OrderBy, OrderBy{Property: property, Direction: dir})
	return b
}

// Limit caps the number of rows; 0 removes the cap.
func (b *Builder) Limit(n int) *Builder {
	b.q.Limit = n
	return b
}

// Distinct drops rows with an identity already seen.
func (b *Builder) Distinct() *Builder {
	b.q.Distinct = true
	return b
}

// AsOf makes the query take a trailing business-instant argument.
func (b *Builder) AsOf() *Builder {
	b.q.AsOf = true
	return b
}

// Build returns the assembled query after validating it.
func (b *Builder) Build() (ParsedQuery, error) {
	if err := Validate(b.q); err != nil {
		return ParsedQuery{}, err
	}
	q := b.q
	q.Conditions = append([]Condition{}, b.q.Conditions...)
	q.OrderBy = append([]OrderBy{}, b.q.OrderBy...)
	return q, nil
}
