package query

import (
	"context"
	"fmt"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/codec"
	"github.com/syssam/neogm/dialect"
	"github.com/syssam/neogm/dialect/cypher"
	"github.com/syssam/neogm/expr"
	"github.com/syssam/neogm/schema"
)

// A Traversal walks typed relationship patterns from a set of start nodes
// of type S to target nodes of type T. Traversals are immutable; the
// configuring methods return derived traversals.
//
// Traversed entities are rehydrated from their direct properties only;
// satellite fields stay at their zero values.
type Traversal[S, T any] struct {
	g        *Graph
	pattern  cypher.Pattern
	startIDs []string
	start    *schema.Model
	target   *schema.Model
	filter   expr.Expr
	err      error
}

// A Segment is one traversal result row: the start entity, the chain of
// raw relationships walked, and the end entity.
type Segment[S, T any] struct {
	Start         *S
	Relationships []dialect.Relationship
	End           *T

	// raw id of the start node, in the same id space as the chain
	startRef string
}

// Traverse starts a traversal over the given relationship type from the
// given start node identities.
func Traverse[S, T any](g *Graph, token string, startIDs ...string) *Traversal[S, T] {
	t := &Traversal[S, T]{g: g, startIDs: startIDs}
	if _, ok := any((*S)(nil)).(neogm.Node); !ok {
		t.err = &neogm.ConfigurationError{
			Type: fmt.Sprintf("%T", (*S)(nil)),
			Msg:  "type does not satisfy the node contract",
		}
		return t
	}
	if _, ok := any((*T)(nil)).(neogm.Node); !ok {
		t.err = &neogm.ConfigurationError{
			Type: fmt.Sprintf("%T", (*T)(nil)),
			Msg:  "type does not satisfy the node contract",
		}
		return t
	}
	start, err := schema.Node(new(S))
	if err != nil {
		t.err = err
		return t
	}
	target, err := schema.Node(new(T))
	if err != nil {
		t.err = err
		return t
	}
	p, err := cypher.NewPattern(token)
	if err != nil {
		t.err = err
		return t
	}
	t.start, t.target, t.pattern = start, target, p
	return t
}

func (t *Traversal[S, T]) derive(p cypher.Pattern) *Traversal[S, T] {
	return &Traversal[S, T]{
		g: t.g, pattern: p, startIDs: t.startIDs,
		start: t.start, target: t.target, filter: t.filter, err: t.err,
	}
}

// Where adds a predicate over the reached entities. Repeated calls
// combine conjunctively.
func (t *Traversal[S, T]) Where(e expr.Expr) *Traversal[S, T] {
	if t.err != nil {
		return t
	}
	c := t.derive(t.pattern)
	if c.filter == nil {
		c.filter = e
	} else {
		c.filter = expr.And(c.filter, e)
	}
	return c
}

// Direction returns a traversal following the given direction.
func (t *Traversal[S, T]) Direction(d neogm.Direction) *Traversal[S, T] {
	if t.err != nil {
		return t
	}
	return t.derive(t.pattern.WithDirection(d))
}

// Ceiling returns a traversal with a different depth ceiling.
func (t *Traversal[S, T]) Ceiling(n int) *Traversal[S, T] {
	if t.err != nil {
		return t
	}
	return t.derive(t.pattern.WithCeiling(n))
}

// Depth returns a traversal spanning the given inclusive depth range.
// A max of 0 clamps to the depth ceiling. Explicit ranges beyond the
// ceiling surface as errors at execution.
func (t *Traversal[S, T]) Depth(min, max int) *Traversal[S, T] {
	if t.err != nil {
		return t
	}
	p, err := t.pattern.WithDepth(min, max)
	if err != nil {
		c := t.derive(t.pattern)
		c.err = err
		return c
	}
	return t.derive(p)
}

// Segments executes the traversal and returns every walked segment.
func (t *Traversal[S, T]) Segments(ctx context.Context) ([]Segment[S, T], error) {
	if t.err != nil {
		return nil, t.err
	}
	q, err := cypher.BuildTraversal(t.pattern, t.start.Label, t.target, t.startIDs, t.filter)
	if err != nil {
		return nil, err
	}
	rows, err := t.g.collect(ctx, q)
	if err != nil {
		return nil, neogm.NewQueryError(t.start.Label, "traverse", err)
	}
	out := make([]Segment[S, T], 0, len(rows))
	for _, row := range rows {
		seg := Segment[S, T]{Relationships: relChain(row["r"])}
		sn, ok := row["start"].(dialect.Node)
		if !ok {
			return nil, neogm.NewQueryError(t.start.Label, "traverse", fmt.Errorf("row carries no start node"))
		}
		seg.startRef = sn.ID
		seg.Start = new(S)
		if err := codec.DecodeNode(any(seg.Start).(neogm.Node), sn.Props, nil); err != nil {
			return nil, err
		}
		tn, ok := row["target"].(dialect.Node)
		if !ok {
			return nil, neogm.NewQueryError(t.target.Label, "traverse", fmt.Errorf("row carries no target node"))
		}
		seg.End = new(T)
		if err := codec.DecodeNode(any(seg.End).(neogm.Node), tn.Props, nil); err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}

// Nodes executes the traversal and returns the distinct reached entities,
// in first-reached order. It is a projection of Segments.
func (t *Traversal[S, T]) Nodes(ctx context.Context) ([]*T, error) {
	segs, err := t.Segments(ctx)
	if err != nil {
		return nil, err
	}
	var out []*T
	seen := map[string]struct{}{}
	for _, seg := range segs {
		id := any(seg.End).(neogm.Node).EntityID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, seg.End)
	}
	return out, nil
}

// A Path is the ordered walk of one segment: the node identities visited
// and the relationships between them. A path always holds one more node
// than relationships.
type Path struct {
	NodeIDs       []string
	Relationships []dialect.Relationship
}

// Paths executes the traversal and returns one path per walked segment.
// Node identities carry the driver's id space. Intermediate nodes are
// reconstructed from the relationship chain, so a hop against the arrow
// still advances the walk.
func (t *Traversal[S, T]) Paths(ctx context.Context) ([]Path, error) {
	segs, err := t.Segments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Path, 0, len(segs))
	for _, seg := range segs {
		p := Path{
			NodeIDs:       []string{seg.startRef},
			Relationships: seg.Relationships,
		}
		for _, rel := range seg.Relationships {
			cur := p.NodeIDs[len(p.NodeIDs)-1]
			next := rel.EndID
			if next == cur {
				next = rel.StartID
			}
			p.NodeIDs = append(p.NodeIDs, next)
		}
		out = append(out, p)
	}
	return out, nil
}

// Relationships executes the traversal and returns the distinct walked
// relationships, in first-walked order. It is a projection of Segments.
func (t *Traversal[S, T]) Relationships(ctx context.Context) ([]dialect.Relationship, error) {
	segs, err := t.Segments(ctx)
	if err != nil {
		return nil, err
	}
	var out []dialect.Relationship
	seen := map[string]struct{}{}
	for _, seg := range segs {
		for _, rel := range seg.Relationships {
			if _, dup := seen[rel.ID]; dup {
				continue
			}
			seen[rel.ID] = struct{}{}
			out = append(out, rel)
		}
	}
	return out, nil
}

// relChain normalizes the relationship column: single hops come back as
// one relationship, variable-length hops as a chain.
func relChain(v any) []dialect.Relationship {
	switch x := v.(type) {
	case dialect.Relationship:
		return []dialect.Relationship{x}
	case []dialect.Relationship:
		return x
	case []any:
		out := make([]dialect.Relationship, 0, len(x))
		for _, e := range x {
			if rel, ok := e.(dialect.Relationship); ok {
				out = append(out, rel)
			}
		}
		return out
	default:
		return nil
	}
}
