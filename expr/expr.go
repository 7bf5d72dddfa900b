// Package expr defines the typed expression tree the query surface hands
// to the Cypher compiler. Expressions are plain data: building one never
// touches storage, and every literal inside one is bound as a query
// parameter during compilation, never spliced into query text.
package expr

import "strings"

// An Expr is a node of the predicate tree.
type Expr interface {
	isExpr()
}

// Op is a comparison operator.
type Op int

const (
	OpEQ Op = iota
	OpNEQ
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpContains
	OpHasPrefix
	OpHasSuffix
	OpIn
	OpIsNull
	OpNotNull
)

// String returns the operator name.
func (o Op) String() string {
	switch o {
	case OpEQ:
		return "="
	case OpNEQ:
		return "<>"
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpContains:
		return "CONTAINS"
	case OpHasPrefix:
		return "STARTS WITH"
	case OpHasSuffix:
		return "ENDS WITH"
	case OpIn:
		return "IN"
	case OpIsNull:
		return "IS NULL"
	case OpNotNull:
		return "IS NOT NULL"
	default:
		return "?"
	}
}

// A Path names a field, optionally reaching into a related value with
// dotted member access, e.g. "home.street".
type Path struct {
	Field  string   // root field storage name
	Member []string // member chain below the root, may be empty
}

// ParsePath splits a dotted path into its root field and member chain.
func ParsePath(s string) Path {
	parts := strings.Split(s, ".")
	p := Path{Field: parts[0]}
	if len(parts) > 1 {
		p.Member = parts[1:]
	}
	return p
}

// String renders the path back to dotted form.
func (p Path) String() string {
	if len(p.Member) == 0 {
		return p.Field
	}
	return p.Field + "." + strings.Join(p.Member, ".")
}

// A Comparison compares a field path against a literal value. For OpIsNull
// and OpNotNull the value is ignored.
type Comparison struct {
	Path  Path
	Op    Op
	Value any
}

func (Comparison) isExpr() {}

// AndExpr is the conjunction of its operands.
type AndExpr struct {
	Xs []Expr
}

func (AndExpr) isExpr() {}

// OrExpr is the disjunction of its operands.
type OrExpr struct {
	Xs []Expr
}

func (OrExpr) isExpr() {}

// NotExpr negates its operand.
type NotExpr struct {
	X Expr
}

func (NotExpr) isExpr() {}

// And combines predicates conjunctively. And of a single predicate is that
// predicate; And of none is nil.
func And(xs ...Expr) Expr {
	switch len(xs) {
	case 0:
		return nil
	case 1:
		return xs[0]
	}
	return AndExpr{Xs: xs}
}

// Or combines predicates disjunctively, with the same degenerate cases as
// And.
func Or(xs ...Expr) Expr {
	switch len(xs) {
	case 0:
		return nil
	case 1:
		return xs[0]
	}
	return OrExpr{Xs: xs}
}

// Not negates a predicate.
func Not(x Expr) Expr {
	return NotExpr{X: x}
}

// AggFn is an aggregation function.
type AggFn int

const (
	AggCount AggFn = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// String returns the Cypher function name.
func (f AggFn) String() string {
	switch f {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggAvg:
		return "avg"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	default:
		return "?"
	}
}

// An Aggregate applies an aggregation function over a field and exposes
// the result under an alias, addressable from Having predicates and
// result records.
type Aggregate struct {
	Fn    AggFn
	Path  Path
	Alias string
}

// Count aggregates the number of grouped entities. An empty path counts
// entities rather than a property.
func Count(alias string) Aggregate {
	return Aggregate{Fn: AggCount, Alias: alias}
}

// Sum aggregates the sum of a field across the group.
func Sum(path, alias string) Aggregate {
	return Aggregate{Fn: AggSum, Path: ParsePath(path), Alias: alias}
}

// Avg aggregates the mean of a field across the group.
func Avg(path, alias string) Aggregate {
	return Aggregate{Fn: AggAvg, Path: ParsePath(path), Alias: alias}
}

// Min aggregates the minimum of a field across the group.
func Min(path, alias string) Aggregate {
	return Aggregate{Fn: AggMin, Path: ParsePath(path), Alias: alias}
}

// Max aggregates the maximum of a field across the group.
func Max(path, alias string) Aggregate {
	return Aggregate{Fn: AggMax, Path: ParsePath(path), Alias: alias}
}

// An Order is one ordering key. Keys apply in the sequence they were
// declared.
type Order struct {
	Path Path
	Desc bool
}

// Asc orders ascending by the given field path.
func Asc(path string) Order {
	return Order{Path: ParsePath(path)}
}

// Desc orders descending by the given field path.
func Desc(path string) Order {
	return Order{Path: ParsePath(path), Desc: true}
}
