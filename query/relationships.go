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

// RelationshipQuery is a typed, immutable query over relationships of
// type T. *T must satisfy neogm.Relationship.
type RelationshipQuery[T any] struct {
	g   *Graph
	m   *schema.Model
	b   *cypher.Builder
	err error
}

// Relationships starts a query over relationships of type T, registering
// the type on first use.
func Relationships[T any](g *Graph) *RelationshipQuery[T] {
	q := &RelationshipQuery[T]{g: g}
	if _, ok := any((*T)(nil)).(neogm.Relationship); !ok {
		q.err = &neogm.ConfigurationError{
			Type: fmt.Sprintf("%T", (*T)(nil)),
			Msg:  "type does not satisfy the relationship contract",
		}
		return q
	}
	m, err := schema.Relationship(new(T))
	if err != nil {
		q.err = err
		return q
	}
	q.m = m
	q.b = cypher.NewBuilder(m)
	return q
}

func (q *RelationshipQuery[T]) derive(b *cypher.Builder) *RelationshipQuery[T] {
	return &RelationshipQuery[T]{g: q.g, m: q.m, b: b, err: q.err}
}

// Where adds a predicate. Repeated calls combine conjunctively.
func (q *RelationshipQuery[T]) Where(e expr.Expr) *RelationshipQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Where(e))
}

// OrderBy appends ordering keys.
func (q *RelationshipQuery[T]) OrderBy(orders ...expr.Order) *RelationshipQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.OrderBy(orders...))
}

// Skip discards the first n results.
func (q *RelationshipQuery[T]) Skip(n int) *RelationshipQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Skip(n))
}

// Limit caps the number of results.
func (q *RelationshipQuery[T]) Limit(n int) *RelationshipQuery[T] {
	if q.err != nil {
		return q
	}
	return q.derive(q.b.Limit(n))
}

// All executes the query and returns every matching relationship with its
// endpoint identities set.
func (q *RelationshipQuery[T]) All(ctx context.Context) ([]*T, error) {
	rows, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		v := new(T)
		if err := decodeRelationshipRow(any(v).(neogm.Relationship), row); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// First returns the first matching relationship, or an error satisfying
// IsNotFound when nothing matches.
func (q *RelationshipQuery[T]) First(ctx context.Context) (*T, error) {
	all, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &neogm.NotFoundError{Label: q.m.Label}
	}
	return all[0], nil
}

// Single returns the only matching relationship. No match fails with
// IsNotFound; more than one fails with IsNotSingular.
func (q *RelationshipQuery[T]) Single(ctx context.Context) (*T, error) {
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
func (q *RelationshipQuery[T]) Count(ctx context.Context) (int64, error) {
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
func (q *RelationshipQuery[T]) Exist(ctx context.Context) (bool, error) {
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

// Stream executes the query and returns a pull-based stream of
// relationships. The caller owns the stream and must close it.
func (q *RelationshipQuery[T]) Stream(ctx context.Context) (*Stream[*T], error) {
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
	key := func(rec dialect.Record) string {
		if r, ok := rec["r"].(dialect.Relationship); ok {
			if id, ok := r.Props["id"].(string); ok {
				return id
			}
		}
		return ""
	}
	return newStream(cur, key, func(batch []dialect.Record) (*T, error) {
		v := new(T)
		if err := decodeRelationshipRow(any(v).(neogm.Relationship), batch[0]); err != nil {
			return nil, err
		}
		return v, nil
	}), nil
}

func (q *RelationshipQuery[T]) rows(ctx context.Context) ([]dialect.Record, error) {
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
