package dialect

import "context"

// Querier is the minimal query surface shared by Driver and Tx. The engine
// hands it a query text and a named-parameter map and receives a row cursor;
// it never builds query text from user values directly.
type Querier interface {
	// Query runs a query with named parameters and returns a cursor over
	// the matching rows. The cursor must be closed by the caller.
	Query(ctx context.Context, query string, params map[string]any) (Cursor, error)
}

// Driver is the storage collaborator boundary. Implementations own
// connectivity, sessions, and retry policy; the engine core performs no I/O
// outside this interface.
type Driver interface {
	Querier

	// Tx starts a transaction. Commit and rollback mechanics belong to the
	// implementation; the engine only threads the handle through.
	Tx(ctx context.Context) (Tx, error)

	// Close releases the underlying connections.
	Close(ctx context.Context) error
}

// Tx is a transaction handle returned by Driver.Tx.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Cursor is a pull-based iterator over result rows. Each Next call may block
// on the underlying store; suspension happens only at that boundary.
// Close releases the cursor and stops further fetches.
type Cursor interface {
	// Next advances to the next row. It returns false when the rows are
	// exhausted, an error occurred, or ctx was canceled; Err distinguishes
	// the cases.
	Next(ctx context.Context) bool

	// Record returns the current row. Valid only after Next returned true.
	Record() Record

	// Err returns the first error encountered during iteration, if any.
	Err() error

	// Close releases the cursor. Safe to call more than once.
	Close(ctx context.Context) error
}

// Record is one result row: a mapping from return alias to a primitive
// value, a Node, or a Relationship.
type Record map[string]any

// Node is a raw node value inside a Record: property map plus labels and
// identity, exactly as returned by the store.
type Node struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// Relationship is a raw relationship value inside a Record.
type Relationship struct {
	ID      string
	Type    string
	StartID string
	EndID   string
	Props   map[string]any
}
