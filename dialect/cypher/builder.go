package cypher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/expr"
	"github.com/syssam/neogm/schema"
)

// A Query is compiled Cypher text plus its bound parameters. Building the
// same logical query twice yields identical text and parameter names.
type Query struct {
	Text   string
	Params map[string]any
}

// A Builder accumulates query state and compiles it into a Query with a
// fixed clause order: MATCH, filter WHERE, grouping WITH, aggregate WHERE,
// ordering and pagination, RETURN. Builders are immutable; every method
// returns a derived builder and the receiver stays valid.
type Builder struct {
	model   *schema.Model
	filter  expr.Expr
	keys    []string
	aggs    []expr.Aggregate
	having  expr.Expr
	orders  []expr.Order
	skip    *int
	limit   *int
	project []string
}

// NewBuilder returns a builder over the given model.
func NewBuilder(m *schema.Model) *Builder {
	return &Builder{model: m}
}

func (b *Builder) clone() *Builder {
	c := *b
	c.keys = append([]string(nil), b.keys...)
	c.aggs = append([]expr.Aggregate(nil), b.aggs...)
	c.orders = append([]expr.Order(nil), b.orders...)
	c.project = append([]string(nil), b.project...)
	return &c
}

// Where adds a predicate. Repeated calls combine conjunctively.
func (b *Builder) Where(e expr.Expr) *Builder {
	c := b.clone()
	if c.filter == nil {
		c.filter = e
	} else {
		c.filter = expr.And(c.filter, e)
	}
	return c
}

// GroupBy declares grouping keys by field storage name.
func (b *Builder) GroupBy(fields ...string) *Builder {
	c := b.clone()
	c.keys = append(c.keys, fields...)
	return c
}

// Aggregate declares aggregation terms computed per group, or globally
// when no grouping keys are declared.
func (b *Builder) Aggregate(aggs ...expr.Aggregate) *Builder {
	c := b.clone()
	c.aggs = append(c.aggs, aggs...)
	return c
}

// Having adds a predicate over aggregate aliases. Repeated calls combine
// conjunctively.
func (b *Builder) Having(e expr.Expr) *Builder {
	c := b.clone()
	if c.having == nil {
		c.having = e
	} else {
		c.having = expr.And(c.having, e)
	}
	return c
}

// OrderBy appends ordering keys. Keys apply in declaration order.
func (b *Builder) OrderBy(orders ...expr.Order) *Builder {
	c := b.clone()
	c.orders = append(c.orders, orders...)
	return c
}

// Skip discards the first n results.
func (b *Builder) Skip(n int) *Builder {
	c := b.clone()
	c.skip = &n
	return c
}

// Limit caps the number of results.
func (b *Builder) Limit(n int) *Builder {
	c := b.clone()
	c.limit = &n
	return c
}

// Project narrows the result to the named simple fields, returned as
// records instead of hydrated entities.
func (b *Builder) Project(fields ...string) *Builder {
	c := b.clone()
	c.project = append(c.project, fields...)
	return c
}

// alias is the variable the matched entity binds to.
func (b *Builder) alias() string {
	if b.model.Node {
		return "n"
	}
	return "r"
}

// matchClause renders the MATCH for the model. Relationship models match
// their endpoints too, so start and end identifiers can be returned.
func (b *Builder) matchClause() string {
	if b.model.Node {
		return fmt.Sprintf("MATCH (n:%s)", b.model.Label)
	}
	return fmt.Sprintf("MATCH (a)-[r:%s]->(b)", b.model.Label)
}

// Build compiles the accumulated state. Queries with grouping keys or
// aggregates return records keyed by alias; queries with a projection
// return records keyed by field name; all others return full entities.
func (b *Builder) Build() (Query, error) {
	if err := b.validate(); err != nil {
		return Query{}, err
	}
	p := params{}
	var clauses []string
	clauses = append(clauses, b.matchClause())

	if b.filter != nil {
		frag, err := CompileExpr(b.filter, b.model, b.alias(), p)
		if err != nil {
			return Query{}, err
		}
		clauses = append(clauses, "WHERE "+frag)
	}

	aggregated := len(b.keys) > 0 || len(b.aggs) > 0
	if aggregated {
		with, err := b.groupingClause()
		if err != nil {
			return Query{}, err
		}
		clauses = append(clauses, with)
		if b.having != nil {
			frag, err := CompileHaving(b.having, b.aggs, p)
			if err != nil {
				return Query{}, err
			}
			clauses = append(clauses, "WHERE "+frag)
		}
	}

	page, err := b.pageClause(aggregated, p)
	if err != nil {
		return Query{}, err
	}
	if page != "" {
		clauses = append(clauses, page)
	}

	ret, err := b.returnClause(aggregated)
	if err != nil {
		return Query{}, err
	}
	clauses = append(clauses, ret...)

	return Query{Text: strings.Join(clauses, "\n"), Params: p}, nil
}

// BuildCount compiles a counting variant of the query. Grouping,
// ordering, and pagination do not apply.
func (b *Builder) BuildCount() (Query, error) {
	return b.scalar("count(%s) AS count")
}

// BuildExists compiles an existence probe for the query.
func (b *Builder) BuildExists() (Query, error) {
	return b.scalar("count(%s) > 0 AS exists")
}

func (b *Builder) scalar(ret string) (Query, error) {
	p := params{}
	clauses := []string{b.matchClause()}
	if b.filter != nil {
		frag, err := CompileExpr(b.filter, b.model, b.alias(), p)
		if err != nil {
			return Query{}, err
		}
		clauses = append(clauses, "WHERE "+frag)
	}
	clauses = append(clauses, "RETURN "+fmt.Sprintf(ret, b.alias()))
	return Query{Text: strings.Join(clauses, "\n"), Params: p}, nil
}

func (b *Builder) validate() error {
	if b.skip != nil && *b.skip < 0 {
		return &neogm.ValidationError{Name: "skip", Err: errors.New("must not be negative")}
	}
	if b.limit != nil && *b.limit < 0 {
		return &neogm.ValidationError{Name: "limit", Err: errors.New("must not be negative")}
	}
	if b.having != nil && len(b.keys) == 0 {
		return &neogm.HavingWithoutGroupByError{}
	}
	if len(b.project) > 0 && (len(b.keys) > 0 || len(b.aggs) > 0) {
		return &neogm.ValidationError{Name: "project", Err: errors.New("cannot combine with grouping")}
	}
	seen := map[string]struct{}{}
	for _, a := range b.aggs {
		if !validIdentifier(a.Alias) {
			return &neogm.ValidationError{Name: "aggregate", Err: fmt.Errorf("illegal alias %q", a.Alias)}
		}
		if _, dup := seen[a.Alias]; dup {
			return &neogm.ValidationError{Name: "aggregate", Err: fmt.Errorf("duplicate alias %q", a.Alias)}
		}
		seen[a.Alias] = struct{}{}
	}
	return nil
}

// groupingClause renders the WITH carrying grouping keys and aggregate
// terms. Keys come first, in declaration order.
func (b *Builder) groupingClause() (string, error) {
	terms := make([]string, 0, len(b.keys)+len(b.aggs))
	for _, k := range b.keys {
		name, err := b.simpleProperty(k)
		if err != nil {
			return "", err
		}
		terms = append(terms, fmt.Sprintf("%s.%s AS %s", b.alias(), name, name))
	}
	for _, a := range b.aggs {
		term, err := b.aggregateTerm(a)
		if err != nil {
			return "", err
		}
		terms = append(terms, term)
	}
	return "WITH " + strings.Join(terms, ", "), nil
}

func (b *Builder) aggregateTerm(a expr.Aggregate) (string, error) {
	if a.Fn == expr.AggCount && a.Path.Field == "" {
		return fmt.Sprintf("count(%s) AS %s", b.alias(), a.Alias), nil
	}
	if len(a.Path.Member) > 0 {
		return "", &neogm.UnsupportedExpressionError{
			Expr: a.Path.String(),
			Msg:  "aggregates apply to direct properties",
		}
	}
	name, err := b.simpleProperty(a.Path.Field)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s.%s) AS %s", a.Fn, b.alias(), name, a.Alias), nil
}

// pageClause renders ordering and pagination as one WITH so they apply
// before related values are matched.
func (b *Builder) pageClause(aggregated bool, p params) (string, error) {
	if len(b.orders) == 0 && b.skip == nil && b.limit == nil {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("WITH *")
	if len(b.orders) > 0 {
		keys := make([]string, len(b.orders))
		for i, o := range b.orders {
			key, err := b.orderKey(o, aggregated)
			if err != nil {
				return "", err
			}
			keys[i] = key
		}
		sb.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}
	if b.skip != nil {
		sb.WriteString(" SKIP " + p.bind("skip", *b.skip))
	}
	if b.limit != nil {
		sb.WriteString(" LIMIT " + p.bind("limit", *b.limit))
	}
	return sb.String(), nil
}

func (b *Builder) orderKey(o expr.Order, aggregated bool) (string, error) {
	if len(o.Path.Member) > 0 {
		return "", &neogm.UnsupportedExpressionError{
			Expr: o.Path.String(),
			Msg:  "ordering applies to direct properties",
		}
	}
	var key string
	if aggregated {
		if !b.groupAlias(o.Path.Field) {
			return "", &neogm.UnsupportedExpressionError{
				Expr: o.Path.Field,
				Msg:  "ordering a grouped query names a key or aggregate alias",
			}
		}
		key = o.Path.Field
	} else {
		name, err := b.simpleProperty(o.Path.Field)
		if err != nil {
			return "", err
		}
		key = b.alias() + "." + name
	}
	if o.Desc {
		return key + " DESC", nil
	}
	return key + " ASC", nil
}

func (b *Builder) groupAlias(name string) bool {
	for _, k := range b.keys {
		if k == name {
			return true
		}
	}
	for _, a := range b.aggs {
		if a.Alias == name {
			return true
		}
	}
	return false
}

// simpleProperty resolves a field storage name to a direct property name.
func (b *Builder) simpleProperty(field string) (string, error) {
	if field == "id" {
		return "id", nil
	}
	f, ok := b.model.Field(field)
	if !ok {
		return "", &neogm.UnsupportedExpressionError{
			Expr: field,
			Msg:  fmt.Sprintf("%s declares no field %q", b.model.Label, field),
		}
	}
	if f.Storage != schema.StorageSimple {
		return "", &neogm.UnsupportedExpressionError{
			Expr: field,
			Msg:  "not a direct property",
		}
	}
	return f.Name, nil
}

// returnClause renders the trailing clauses: for entity queries the
// OPTIONAL MATCH per related field followed by RETURN, otherwise the
// record RETURN.
func (b *Builder) returnClause(aggregated bool) ([]string, error) {
	if aggregated {
		terms := make([]string, 0, len(b.keys)+len(b.aggs))
		terms = append(terms, b.keys...)
		for _, a := range b.aggs {
			terms = append(terms, a.Alias)
		}
		return []string{"RETURN " + strings.Join(terms, ", ")}, nil
	}
	if len(b.project) > 0 {
		terms := make([]string, len(b.project))
		for i, f := range b.project {
			name, err := b.simpleProperty(f)
			if err != nil {
				return nil, err
			}
			terms[i] = fmt.Sprintf("%s.%s AS %s", b.alias(), name, name)
		}
		return []string{"RETURN " + strings.Join(terms, ", ")}, nil
	}
	if !b.model.Node {
		return []string{"RETURN a.id AS start_id, r, b.id AS end_id"}, nil
	}

	var clauses []string
	returns := []string{"n"}
	for _, f := range b.model.RelatedFields() {
		rel := f.Name + "_rel"
		node := f.Name + "_node"
		clauses = append(clauses, fmt.Sprintf("OPTIONAL MATCH (n)-[%s:%s]->(%s)", rel, f.Token, node))
		returns = append(returns, rel, node)
	}
	clauses = append(clauses, "RETURN "+strings.Join(returns, ", "))
	return clauses, nil
}
