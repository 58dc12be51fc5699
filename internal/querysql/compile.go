package querysql

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/store"
	"github.com/roach88/tempora/internal/temporal"
	"github.com/roach88/tempora/internal/value"
)

// Param stands in for an argument that was not supplied. Explaining a query
// without arguments yields SQL whose parameters are Params.
type Param struct {
	Name string
}

func (p Param) String() string { return ":" + p.Name }

// Statement is parameterized SQL plus its parameters, in placeholder order.
type Statement struct {
	SQL    string
	Params []any
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var pseudoColumns = map[string]string{
	query.FieldID:             "id",
	query.FieldBusinessFrom:   "business_from",
	query.FieldBusinessThru:   "business_thru",
	query.FieldProcessingFrom: "processing_from",
	query.FieldProcessingThru: "processing_thru",
}

// SQLCompiler renders parsed queries as SQLite SQL over the versions table.
//
// Payload fields are read with json_extract. Every statement selects the
// processing edge points whose business interval contains the query's
// business instant, so it returns what Execute would return.
//
// CRITICAL: ALL statements include ORDER BY with an id tiebreaker for
// deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	// Now supplies the business instant for queries without an as-of
	// argument. Nil renders it as Param{Name: "businessAt"}.
	Now func() time.Time
}

// NewSQLCompiler creates a compiler that leaves the business instant as a
// named parameter.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile renders q for entity. With no args, every condition argument is a
// Param named after its property; otherwise len(args) must equal q.Arity().
func (c *SQLCompiler) Compile(entity string, q query.ParsedQuery, args ...any) (Statement, error) {
	if err := query.Validate(q); err != nil {
		return Statement{}, err
	}

	placeholders := len(args) == 0 && q.Arity() > 0
	if placeholders {
		args = placeholderArgs(q)
	} else if len(args) != q.Arity() {
		return Statement{}, errors.Wrapf(query.ErrParameterArityMismatch,
			"expects %d arguments, got %d", q.Arity(), len(args))
	}

	var businessAt any = Param{Name: "businessAt"}
	if c.Now != nil {
		businessAt = store.EncodeTime(c.Now())
	}
	if q.AsOf && len(q.Conditions) > 0 {
		last := args[len(args)-1]
		args = args[:len(args)-1]
		if !placeholders {
			t, err := toTime(last)
			if err != nil {
				return Statement{}, err
			}
			last = store.EncodeTime(t)
		}
		businessAt = last
	}

	inner := sq.Select("id", "business_from", "business_thru", "processing_from", "processing_thru", "payload").
		From("versions").
		Where(sq.Eq{"entity": entity, "processing_thru": store.EncodeTime(temporal.Infinity)}).
		Where(sq.Expr("business_from <= ? AND business_thru > ?", businessAt, businessAt))

	filter, err := c.compileConditions(q, args)
	if err != nil {
		return Statement{}, err
	}
	if filter != nil {
		inner = inner.Where(filter)
	}

	for _, o := range q.OrderBy {
		expr, exprArgs, err := fieldExpr(o.Property)
		if err != nil {
			return Statement{}, err
		}
		inner = inner.OrderByClause(expr+" "+o.Direction.String(), exprArgs...)
	}
	// MANDATORY: deterministic tiebreaker
	inner = inner.OrderBy("id ASC")

	if q.Limit > 0 {
		inner = inner.Limit(uint64(q.Limit))
	}

	stmt := inner
	if q.Distinct {
		stmt = sq.Select("*").Distinct().FromSelect(inner, "q")
	}

	switch q.Type {
	case query.Count:
		stmt = sq.Select("COUNT(*)").FromSelect(stmt, "c")
	case query.Exists:
		sub, subArgs, err := stmt.ToSql()
		if err != nil {
			return Statement{}, errors.Wrap(err, "build exists")
		}
		stmt = sq.Select().Column(sq.Expr("EXISTS ("+sub+")", subArgs...))
	}

	sql, params, err := stmt.ToSql()
	if err != nil {
		return Statement{}, errors.Wrap(err, "build statement")
	}
	return Statement{SQL: sql, Params: params}, nil
}

// compileConditions turns AND-groups into (a AND b) OR (c ...).
func (c *SQLCompiler) compileConditions(q query.ParsedQuery, args []any) (sq.Sqlizer, error) {
	groups := q.Groups()
	if len(groups) == 0 {
		return nil, nil
	}

	next := 0
	or := sq.Or{}
	for _, group := range groups {
		and := sq.And{}
		for _, cond := range group {
			n := cond.Operator.Arity()
			pred, err := compileCondition(cond, args[next:next+n])
			if err != nil {
				return nil, err
			}
			and = append(and, pred)
			next += n
		}
		or = append(or, and)
	}
	return or, nil
}

func compileCondition(c query.Condition, args []any) (sq.Sqlizer, error) {
	expr, exprArgs, err := fieldExpr(c.Property)
	if err != nil {
		return nil, err
	}

	params := make([]any, len(args))
	for i, a := range args {
		if params[i], err = toParam(a); err != nil {
			return nil, errors.Wrapf(err, "%s %s", c.Property, c.Operator)
		}
	}

	// with expands the template's %[1]s field references; their arguments
	// precede the operator's parameters.
	with := func(template string, ps ...any) sq.Sqlizer {
		refs := strings.Count(template, "%[1]s")
		all := make([]any, 0, refs*len(exprArgs)+len(ps))
		for range refs {
			all = append(all, exprArgs...)
		}
		return sq.Expr(fmt.Sprintf(template, expr), append(all, ps...)...)
	}

	switch c.Operator {
	case query.Equals:
		return with("%[1]s IS ?", params[0]), nil
	case query.NotEquals:
		return with("%[1]s IS NOT ?", params[0]), nil
	case query.LessThan:
		return with("%[1]s < ?", params[0]), nil
	case query.LessThanEqual:
		return with("%[1]s <= ?", params[0]), nil
	case query.GreaterThan:
		return with("%[1]s > ?", params[0]), nil
	case query.GreaterThanEqual:
		return with("%[1]s >= ?", params[0]), nil
	case query.Between:
		return with("%[1]s BETWEEN ? AND ?", params[0], params[1]), nil
	case query.In, query.NotIn:
		list, err := toList(params[0])
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s", c.Property, c.Operator)
		}
		op := "IN"
		if c.Operator == query.NotIn {
			op = "NOT IN"
		}
		marks := strings.TrimSuffix(strings.Repeat("?,", len(list)), ",")
		return with("%[1]s "+op+" ("+marks+")", list...), nil
	case query.Like:
		return with("%[1]s LIKE ?", params[0]), nil
	case query.NotLike:
		return with("%[1]s NOT LIKE ?", params[0]), nil
	case query.Containing:
		return with("instr(%[1]s, ?) > 0", params[0]), nil
	case query.NotContaining:
		return with("instr(%[1]s, ?) = 0", params[0]), nil
	case query.StartingWith:
		return with("instr(%[1]s, ?) = 1", params[0]), nil
	case query.EndingWith:
		return with("substr(%[1]s, -length(?)) = ?", params[0], params[0]), nil
	case query.IsNull:
		return with("%[1]s IS NULL"), nil
	case query.IsNotNull:
		return with("%[1]s IS NOT NULL"), nil
	case query.True:
		return with("%[1]s = 1"), nil
	case query.False:
		return with("%[1]s = 0"), nil
	}
	return nil, errors.Wrapf(query.ErrUnsupportedOperator, "%s %s", c.Property, c.Operator)
}

// fieldExpr maps a property to a column or a json_extract over the payload.
// Payload instants are stored as {"$time": ...}, so the tagged form is tried
// first. JSON paths are parameters, never interpolated.
func fieldExpr(property string) (string, []any, error) {
	name := query.CanonicalField(property)
	if col, ok := pseudoColumns[name]; ok {
		return col, nil, nil
	}
	if !identifier.MatchString(name) {
		return "", nil, errors.Wrapf(query.ErrUnknownProperty, "%q is not a field name", property)
	}
	path := "$." + name
	return "coalesce(json_extract(payload, ?), json_extract(payload, ?))",
		[]any{path + `."$time"`, path}, nil
}

func placeholderArgs(q query.ParsedQuery) []any {
	var args []any
	for _, c := range q.Conditions {
		switch c.Operator.Arity() {
		case 1:
			args = append(args, Param{Name: c.Property})
		case 2:
			args = append(args, Param{Name: c.Property + "Low"}, Param{Name: c.Property + "High"})
		}
	}
	if q.AsOf && len(q.Conditions) > 0 {
		args = append(args, Param{Name: "asOf"})
	}
	return args
}

// toParam converts an argument to a driver value. Instants become the
// versions-table text format; lists stay lists for IN.
func toParam(arg any) (any, error) {
	if p, ok := arg.(Param); ok {
		return p, nil
	}
	v, err := value.From(arg)
	if err != nil {
		return nil, errors.Wrapf(query.ErrUnsupportedOperator, "%v", err)
	}
	switch val := v.(type) {
	case value.Time:
		return store.EncodeTime(val.T()), nil
	case value.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case value.List:
		out := make([]any, len(val))
		for i, elem := range val {
			if out[i], err = toParam(elem); err != nil {
				return nil, err
			}
		}
		return out, nil
	case value.Object:
		return nil, errors.Wrap(query.ErrUnsupportedOperator, "object argument")
	}
	return value.Native(v), nil
}

func toList(param any) ([]any, error) {
	switch p := param.(type) {
	case []any:
		return p, nil
	case Param:
		return []any{p}, nil
	}
	return nil, errors.Wrapf(query.ErrUnsupportedOperator, "argument must be a list, got %T", param)
}

func toTime(arg any) (time.Time, error) {
	switch t := arg.(type) {
	case time.Time:
		return t, nil
	case value.Time:
		return t.T(), nil
	}
	return time.Time{}, errors.Wrapf(query.ErrUnsupportedOperator, "as-of argument must be a time, got %T", arg)
}
