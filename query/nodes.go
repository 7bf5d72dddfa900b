package query

import (
	"context"
	"fmt"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/dialect"
	"github.com/syssam/neogm/dialect/cypher"
	"github.com/syssam/neogm/expr"
	"github.com/syssam/neogm/schema"
)

// NodeQuery is a typed, immutable query over nodes of type T. Builder
// methods return derived queries; terminal methods execute. T is the node
// struct type, and *T must satisfy neogm.Node.
type NodeQuery[T any] struct {
	g   *Graph
	m   *schema.Model
	b   *cypher.Builder
	err error
}

// Nodes starts a query over nodes of type T, registering the type on
// first use. A T whose pointer does not satisfy the node contract fails
// at execution.
func Nodes[T any](g *Graph) *NodeQuery[T] {
	q := &NodeQuery[T]{g: g}
	if _, ok := any((*T)(nil)).(neogm.Node); !ok {
		q.err = &neogm.ConfigurationError{
			Type: fmt.Sprintf("%T", (*T)(nil)),
			Msg:  "type does not satisfy the node contract",
		}
		return q
	}
	m, err := schema.Node(new(T))
	if err != nil {
		q.err = err
		return q
	}
	q.m = m
	q.b = cypher.NewBuilder(m)
	return q
}

func (q *NodeQuery[T]) derive(b *cypher.Builder) *NodeQuery[T] {
	return &NodeQuery[T]{g: q.g, m: q.m, b: b, err: q.err}
}

// Where adds a predicate. Repeated calls combine conjunctively.
func (q *NodeQuery[T]) Where(e expr.Expr) *NodeQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Where(e))
}

// OrderBy appends ordering keys.
func (q *NodeQuery[T]) OrderBy(orders ...expr.Order) *NodeQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.OrderBy(orders...))
}

// Skip discards the first n results.
func (q *NodeQuery[T]) Skip(n int) *NodeQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Skip(n))
}

// Limit caps the number of results.
func (q *NodeQuery[T]) Limit(n int) *NodeQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Limit(n))
}

// GroupBy declares grouping keys. Grouped queries return records through
// Records rather than entities.
func (q *NodeQuery[T]) GroupBy(fields ...string) *NodeQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.GroupBy(fields...))
}

// Aggregate declares aggregation terms.
func (q *NodeQuery[T]) Aggregate(aggs ...expr.Aggregate) *NodeQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Aggregate(aggs...))
}

// Having adds a predicate over aggregate aliases.
func (q *NodeQuery[T]) Having(e expr.Expr) *NodeQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Having(e))
}

// Project narrows the result to the named simple fields, returned through
// Records.
func (q *NodeQuery[T]) Project(fields ...string) *NodeQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Project(fields...))
}

// All executes the query and returns every matching entity.
func (q *NodeQuery[T]) All(ctx context.Context) ([]*T, error) {
	rows, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	var out []*T
	for _, batch := range groupRows(rows) {
		v := new(T)
		if err := decodeNodeRows(q.m, any(v).(neogm.Node), batch); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// First returns the first matching entity, or an error satisfying
// IsNotFound when nothing matches.
func (q *NodeQuery[T]) First(ctx context.Context) (*T, error) {
	all, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &neogm.NotFoundError{Label: q.m.Label}
	}
	return all[0], nil
}

// Single returns the only matching entity. No match fails with
// IsNotFound; more than one fails with IsNotSingular.
func (q *NodeQuery[T]) Single(ctx context.Context) (*T, error) {
	all, err := q.Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(all) {
	case 0:
		return nil, &neogm.NotFoundError{Label: q.m.Label}
	case 1:
		return all[0], nil
	default:
		return nil, &neogm.NotSingularError{Label: q.m.Label}
	}
}

// Count executes a counting variant of the query.
func (q *NodeQuery[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	cq, err := q.b.BuildCount()
	if err != nil {
		return 0, err
	}
	rows, err := q.g.collect(ctx, cq)
	if err != nil {
		return 0, neogm.NewQueryError(q.m.Label, "count", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := rows[0]["count"].(int64)
	return n, nil
}

// Exist reports whether anything matches the query.
func (q *NodeQuery[T]) Exist(ctx context.Context) (bool, error) {
	if q.err != nil {
		return false, q.err
	}
	eq, err := q.b.BuildExists()
	if err != nil {
		return false, err
	}
	rows, err := q.g.collect(ctx, eq)
	if err != nil {
		return false, neogm.NewQueryError(q.m.Label, "exist", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	ok, _ := rows[0]["exists"].(bool)
	return ok, nil
}

// Records executes the query and returns raw records. This is the result
// surface for grouped and projected queries.
func (q *NodeQuery[T]) Records(ctx context.Context) ([]dialect.Record, error) {
	return q.rows(ctx)
}

// Stream executes the query and returns a pull-based stream of entities.
// The caller owns the stream and must close it.
func (q *NodeQuery[T]) Stream(ctx context.Context) (*Stream[*T], error) {
	if q.err != nil {
		return nil, q.err
	}
	cq, err := q.b.Build()
	if err != nil {
		return nil, err
	}
	cur, err := q.g.drv.Query(ctx, cq.Text, cq.Params)
	if err != nil {
		return nil, neogm.NewQueryError(q.m.Label, "stream", err)
	}
	return newStream(cur, nodeKey, func(batch []dialect.Record) (*T, error) {
		v := new(T)
		if err := decodeNodeRows(q.m, any(v).(neogm.Node), batch); err != nil {
			return nil, err
		}
		return v, nil
	}), nil
}

func (q *NodeQuery[T]) rows(ctx context.Context) ([]dialect.Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	cq, err := q.b.Build()
	if err != nil {
		return nil, err
	}
	rows, err := q.g.collect(ctx, cq)
	if err != nil {
		return nil, neogm.NewQueryError(q.m.Label, "query", err)
	}
	return rows, nil
}

// groupRows splits entity rows into one batch per distinct node,
// preserving first-seen order.
func groupRows(rows []dialect.Record) [][]dialect.Record {
	var order []string
	batches := map[string][]dialect.Record{}
	for _, row := range rows {
		key := nodeKey(row)
		if _, ok := batches[key]; !ok {
			order = append(order, key)
		}
		batches[key] = append(batches[key], row)
	}
	out := make([][]dialect.Record, len(order))
	for i, key := range order {
		out[i] = batches[key]
	}
	return out
}
