// Package dialect defines the storage collaborator boundary of the engine.
//
// The engine core emits (query text, named-parameter map, optional
// transaction handle) and receives a row cursor. Everything below that
// line (connectivity, sessions, routing, retries) belongs to the Driver
// implementation.
//
// # Driver Interface
//
//	type Driver interface {
//	    Query(ctx context.Context, query string, params map[string]any) (Cursor, error)
//	    Tx(ctx context.Context) (Tx, error)
//	    Close(ctx context.Context) error
//	}
//
// # Cursor Interface
//
// Cursor is a pull-based row iterator: one fetch operation per row, with
// suspension only at the fetch boundary. Consumer cancellation flows to the
// cursor's Close synchronously.
//
//	type Cursor interface {
//	    Next(ctx context.Context) bool
//	    Record() Record
//	    Err() error
//	    Close(ctx context.Context) error
//	}
//
// # Sub-packages
//
//   - dialect/cypher: query text generation (naming scheme, expression
//     compiler, clause builder, traversal patterns)
//   - dialect/neo4j: Driver implementation over neo4j-go-driver
package dialect
