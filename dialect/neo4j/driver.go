// Package neo4j adapts the official Neo4j driver to the dialect storage
// boundary. It owns session lifecycle and the mapping between driver
// value types and the dialect's neutral graph values.
package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/syssam/neogm/dialect"
)

// Driver is a dialect.Driver backed by a Neo4j connection pool.
type Driver struct {
	drv      neo4j.DriverWithContext
	database string
}

// Option configures the driver.
type Option func(*Driver)

// WithDatabase routes sessions to a named database instead of the
// server default.
func WithDatabase(name string) Option {
	return func(d *Driver) { d.database = name }
}

// Open connects to a Neo4j server with basic auth.
func Open(uri, username, password string, opts ...Option) (*Driver, error) {
	drv, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}
	d := &Driver{drv: drv}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewDriver wraps an existing Neo4j driver.
func NewDriver(drv neo4j.DriverWithContext, opts ...Option) *Driver {
	d := &Driver{drv: drv}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) session(ctx context.Context) neo4j.SessionWithContext {
	return d.drv.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database})
}

// Query runs a single auto-commit query. The returned cursor owns the
// session and releases it on Close.
func (d *Driver) Query(ctx context.Context, query string, params map[string]any) (dialect.Cursor, error) {
	sess := d.session(ctx)
	res, err := sess.Run(ctx, query, params)
	if err != nil {
		_ = sess.Close(ctx)
		return nil, err
	}
	return &cursor{res: res, release: sess.Close}, nil
}

// Tx opens an explicit transaction. The transaction owns its session.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	sess := d.session(ctx)
	tx, err := sess.BeginTransaction(ctx)
	if err != nil {
		_ = sess.Close(ctx)
		return nil, err
	}
	return &txn{tx: tx, sess: sess}, nil
}

// Close shuts down the connection pool.
func (d *Driver) Close(ctx context.Context) error {
	return d.drv.Close(ctx)
}

type txn struct {
	tx   neo4j.ExplicitTransaction
	sess neo4j.SessionWithContext
}

func (t *txn) Query(ctx context.Context, query string, params map[string]any) (dialect.Cursor, error) {
	res, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return &cursor{res: res}, nil
}

func (t *txn) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	if cerr := t.sess.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

func (t *txn) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if cerr := t.sess.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

type cursor struct {
	res     neo4j.ResultWithContext
	release func(context.Context) error
	rec     dialect.Record
}

func (c *cursor) Next(ctx context.Context) bool {
	if !c.res.Next(ctx) {
		return false
	}
	raw := c.res.Record()
	rec := make(dialect.Record, len(raw.Keys))
	for i, key := range raw.Keys {
		rec[key] = convertValue(raw.Values[i])
	}
	c.rec = rec
	return true
}

func (c *cursor) Record() dialect.Record {
	return c.rec
}

func (c *cursor) Err() error {
	return c.res.Err()
}

func (c *cursor) Close(ctx context.Context) error {
	_, err := c.res.Consume(ctx)
	if c.release != nil {
		if cerr := c.release(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

// convertValue lowers a driver value into the dialect's neutral value set.
func convertValue(v any) any {
	switch x := v.(type) {
	case dbtype.Node:
		return dialect.Node{
			ID:     x.ElementId,
			Labels: x.Labels,
			Props:  convertMap(x.Props),
		}
	case dbtype.Relationship:
		return dialect.Relationship{
			ID:      x.ElementId,
			Type:    x.Type,
			StartID: x.StartElementId,
			EndID:   x.EndElementId,
			Props:   convertMap(x.Props),
		}
	case dbtype.Path:
		rels := make([]dialect.Relationship, len(x.Relationships))
		for i, rel := range x.Relationships {
			rels[i] = convertValue(rel).(dialect.Relationship)
		}
		return rels
	case dbtype.Date:
		return x.Time()
	case dbtype.LocalDateTime:
		return x.Time()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = convertValue(e)
		}
		return out
	case map[string]any:
		return convertMap(x)
	default:
		return v
	}
}

func convertMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = convertValue(v)
	}
	return out
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Tx     = (*txn)(nil)
	_ dialect.Cursor = (*cursor)(nil)
)
