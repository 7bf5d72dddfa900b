package cypher

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/expr"
	"github.com/syssam/neogm/schema"
)

// params accumulates named query parameters. Names derive from the field a
// literal targets plus a running index, so repeated filters on one field
// never collide.
type params map[string]any

// bind registers a literal under a fresh name and returns its placeholder.
func (p params) bind(field string, v any) string {
	name := fmt.Sprintf("%s_%d", field, len(p))
	p[name] = v
	return "$" + name
}

// CompileExpr translates a predicate tree into a Cypher boolean fragment
// over the entity bound to alias, binding every literal into params.
func CompileExpr(e expr.Expr, m *schema.Model, alias string, p params) (string, error) {
	c := &exprCompiler{model: m, alias: alias, params: p}
	return c.compile(e)
}

type exprCompiler struct {
	model  *schema.Model
	alias  string
	params params
}

func (c *exprCompiler) compile(e expr.Expr) (string, error) {
	switch x := e.(type) {
	case expr.Comparison:
		return c.comparison(x)
	case expr.AndExpr:
		return c.nary(x.Xs, " AND ")
	case expr.OrExpr:
		return c.nary(x.Xs, " OR ")
	case expr.NotExpr:
		inner, err := c.compile(x.X)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case nil:
		return "", &neogm.UnsupportedExpressionError{Msg: "nil expression"}
	default:
		return "", &neogm.UnsupportedExpressionError{
			Expr: fmt.Sprintf("%T", e),
			Msg:  "unknown expression node",
		}
	}
}

func (c *exprCompiler) nary(xs []expr.Expr, sep string) (string, error) {
	frags := make([]string, len(xs))
	for i, x := range xs {
		f, err := c.compile(x)
		if err != nil {
			return "", err
		}
		frags[i] = "(" + f + ")"
	}
	return strings.Join(frags, sep), nil
}

func (c *exprCompiler) comparison(x expr.Comparison) (string, error) {
	if len(x.Path.Member) > 0 {
		return c.memberComparison(x)
	}
	if x.Path.Field == "id" {
		return c.property(c.alias, "id", x)
	}
	f, ok := c.model.Field(x.Path.Field)
	if !ok {
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  fmt.Sprintf("%s declares no field %q", c.model.Label, x.Path.Field),
		}
	}
	switch f.Storage {
	case schema.StorageSimple:
		if x.Op == expr.OpContains && isCollection(f.Type) {
			// Membership over a stored collection property.
			ph := c.params.bind(f.Name, x.Value)
			return fmt.Sprintf("%s IN %s.%s", ph, c.alias, f.Name), nil
		}
		return c.property(c.alias, f.Name, x)
	case schema.StorageEmbedded:
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  "embedded values are opaque to query translation",
		}
	case schema.StorageRelated:
		if x.Op == expr.OpIsNull || x.Op == expr.OpNotNull {
			pat := fmt.Sprintf("EXISTS { MATCH (%s)-[:%s]->() }", c.alias, f.Token)
			if x.Op == expr.OpIsNull {
				return "NOT " + pat, nil
			}
			return pat, nil
		}
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  "related values are compared through their members",
		}
	}
	return "", &neogm.UnsupportedExpressionError{Expr: x.Path.String(), Msg: "unsupported field storage"}
}

// memberComparison compiles dotted access into a related value as an
// existential pattern over its satellite node. For collections the
// predicate holds when any element satisfies it.
func (c *exprCompiler) memberComparison(x expr.Comparison) (string, error) {
	f, ok := c.model.Field(x.Path.Field)
	if !ok {
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  fmt.Sprintf("%s declares no field %q", c.model.Label, x.Path.Field),
		}
	}
	if f.Storage != schema.StorageRelated {
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  "member access requires a related field",
		}
	}
	if len(x.Path.Member) > 1 {
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  "members below the first level are embedded and opaque",
		}
	}
	target := f.Type
	if f.Ordinal {
		target = f.Elem
	}
	sat, err := schema.SatelliteOf(target)
	if err != nil {
		return "", err
	}
	member := x.Path.Member[0]
	mf, ok := sat.Field(member)
	if !ok {
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  fmt.Sprintf("%s declares no field %q", sat.Label, member),
		}
	}
	if mf.Storage != schema.StorageSimple {
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  "member is not a direct property",
		}
	}
	satAlias := x.Path.Field
	inner, err := c.property(satAlias, mf.Name, x)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EXISTS { MATCH (%s)-[:%s]->(%s) WHERE %s }",
		c.alias, f.Token, satAlias, inner), nil
}

// property renders a comparison against one direct property.
func (c *exprCompiler) property(alias, name string, x expr.Comparison) (string, error) {
	if !validIdentifier(name) {
		return "", &neogm.UnsupportedExpressionError{Expr: x.Path.String(), Msg: "illegal property name"}
	}
	lhs := alias + "." + name
	switch x.Op {
	case expr.OpIsNull:
		return lhs + " IS NULL", nil
	case expr.OpNotNull:
		return lhs + " IS NOT NULL", nil
	case expr.OpEQ, expr.OpNEQ, expr.OpLT, expr.OpLTE, expr.OpGT, expr.OpGTE,
		expr.OpContains, expr.OpHasPrefix, expr.OpHasSuffix, expr.OpIn:
		ph := c.params.bind(name, x.Value)
		return fmt.Sprintf("%s %s %s", lhs, x.Op, ph), nil
	default:
		return "", &neogm.UnsupportedExpressionError{
			Expr: x.Path.String(),
			Msg:  fmt.Sprintf("operator %v is not translatable", x.Op),
		}
	}
}

// CompileHaving translates a predicate over aggregate aliases. Paths must
// name an alias declared by the query's aggregates.
func CompileHaving(e expr.Expr, aggs []expr.Aggregate, p params) (string, error) {
	aliases := make(map[string]struct{}, len(aggs))
	for _, a := range aggs {
		aliases[a.Alias] = struct{}{}
	}
	c := &havingCompiler{aliases: aliases, params: p}
	return c.compile(e)
}

type havingCompiler struct {
	aliases map[string]struct{}
	params  params
}

func (c *havingCompiler) compile(e expr.Expr) (string, error) {
	switch x := e.(type) {
	case expr.Comparison:
		if len(x.Path.Member) > 0 {
			return "", &neogm.UnsupportedExpressionError{
				Expr: x.Path.String(),
				Msg:  "aggregate conditions address aliases, not members",
			}
		}
		if _, ok := c.aliases[x.Path.Field]; !ok {
			return "", &neogm.UnsupportedExpressionError{
				Expr: x.Path.Field,
				Msg:  "aggregate condition names no declared aggregate alias",
			}
		}
		if !validIdentifier(x.Path.Field) {
			return "", &neogm.UnsupportedExpressionError{Expr: x.Path.Field, Msg: "illegal alias"}
		}
		switch x.Op {
		case expr.OpIsNull:
			return x.Path.Field + " IS NULL", nil
		case expr.OpNotNull:
			return x.Path.Field + " IS NOT NULL", nil
		default:
			ph := c.params.bind(x.Path.Field, x.Value)
			return fmt.Sprintf("%s %s %s", x.Path.Field, x.Op, ph), nil
		}
	case expr.AndExpr:
		return c.nary(x.Xs, " AND ")
	case expr.OrExpr:
		return c.nary(x.Xs, " OR ")
	case expr.NotExpr:
		inner, err := c.compile(x.X)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		return "", &neogm.UnsupportedExpressionError{
			Expr: fmt.Sprintf("%T", e),
			Msg:  "unknown expression node",
		}
	}
}

func (c *havingCompiler) nary(xs []expr.Expr, sep string) (string, error) {
	frags := make([]string, len(xs))
	for i, x := range xs {
		f, err := c.compile(x)
		if err != nil {
			return "", err
		}
		frags[i] = "(" + f + ")"
	}
	return strings.Join(frags, sep), nil
}

func isCollection(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return false
	}
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}
