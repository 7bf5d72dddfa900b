package cypher

import (
	"fmt"
	"strings"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/expr"
	"github.com/syssam/neogm/schema"
)

// DefaultDepthCeiling caps variable-length traversal depth unless a
// pattern is configured otherwise.
const DefaultDepthCeiling = 10

// A Pattern describes one traversal hop: a relationship type, a direction,
// and a depth range. Patterns are immutable values; the With methods
// return derived patterns.
type Pattern struct {
	token   string
	dir     neogm.Direction
	min     int
	max     int
	ceiling int
}

// NewPattern returns a single-hop outgoing pattern over the given
// relationship type. Private storage tokens never traverse; they carry
// field values, not domain edges.
func NewPattern(token string) (Pattern, error) {
	if schema.IsPrivateToken(token) {
		return Pattern{}, &neogm.InvalidTraversalError{Token: token}
	}
	if !schema.ValidToken(token) {
		return Pattern{}, &neogm.NamingError{Token: token, Msg: "illegal relationship type name"}
	}
	return Pattern{token: token, dir: neogm.Outgoing, min: 1, max: 1, ceiling: DefaultDepthCeiling}, nil
}

// Token returns the relationship type the pattern follows.
func (p Pattern) Token() string { return p.token }

// Direction returns the traversal direction.
func (p Pattern) Direction() neogm.Direction { return p.dir }

// Depth returns the inclusive depth range.
func (p Pattern) Depth() (min, max int) { return p.min, p.max }

// WithDirection returns a copy following the given direction.
func (p Pattern) WithDirection(d neogm.Direction) Pattern {
	p.dir = d
	return p
}

// WithCeiling returns a copy with a different depth ceiling. Values below
// 1 keep the default.
func (p Pattern) WithCeiling(n int) Pattern {
	if n >= 1 {
		p.ceiling = n
	}
	return p
}

// WithDepth returns a copy spanning the given inclusive depth range.
// A max of 0 means unbounded intent and clamps to the ceiling. Explicit
// depths beyond the ceiling fail rather than silently truncate.
func (p Pattern) WithDepth(min, max int) (Pattern, error) {
	if max == 0 {
		max = p.ceiling
	}
	if min < 1 || max < min {
		return Pattern{}, &neogm.ValidationError{
			Name: "depth",
			Err:  fmt.Errorf("range %d..%d is not ascending from 1", min, max),
		}
	}
	if max > p.ceiling {
		return Pattern{}, &neogm.DepthLimitExceededError{Requested: max, Ceiling: p.ceiling}
	}
	p.min, p.max = min, max
	return p, nil
}

// Render produces the relationship pattern between two node
// placeholders, binding the relationship to alias r: a bare single hop,
// `*N` for one exact depth, `*min..max` for a range.
func (p Pattern) Render() string {
	var depth string
	switch {
	case p.min == 1 && p.max == 1:
		depth = ""
	case p.min == p.max:
		depth = fmt.Sprintf("*%d", p.min)
	default:
		depth = fmt.Sprintf("*%d..%d", p.min, p.max)
	}
	body := fmt.Sprintf("[r:%s%s]", p.token, depth)
	switch p.dir {
	case neogm.Incoming:
		return "<-" + body + "-"
	case neogm.Both:
		return "-" + body + "-"
	default:
		return "-" + body + "->"
	}
}

// BuildTraversal compiles the query walking a pattern from a set of start
// nodes to a target label. Rows carry the start node, the relationship
// chain, and the target node. A non-nil filter is compiled against the
// target model over the target alias and conjoined with the start set.
func BuildTraversal(p Pattern, startLabel string, target *schema.Model, startIDs []string, filter expr.Expr) (Query, error) {
	if !validIdentifier(startLabel) {
		return Query{}, &neogm.NamingError{Token: startLabel, Msg: "illegal node label"}
	}
	if !validIdentifier(target.Label) {
		return Query{}, &neogm.NamingError{Token: target.Label, Msg: "illegal node label"}
	}
	prms := params{}
	where := "WHERE start.id IN $start_ids"
	if filter != nil {
		frag, err := CompileExpr(filter, target, "target", prms)
		if err != nil {
			return Query{}, err
		}
		where = fmt.Sprintf("WHERE (start.id IN $start_ids) AND (%s)", frag)
	}
	prms["start_ids"] = startIDs
	text := strings.Join([]string{
		fmt.Sprintf("MATCH (start:%s)%s(target:%s)", startLabel, p.Render(), target.Label),
		where,
		"RETURN start, r, target",
	}, "\n")
	return Query{Text: text, Params: prms}, nil
}
