package query_test

import (
	"context"
	"fmt"
	"time"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/dialect"
)

type Address struct {
	Street string `graph:"street" json:"street"`
	City   string `graph:"city" json:"city"`
}

type Person struct {
	neogm.NodeBase
	Name    string
	Age     int
	Home    Address
	Offices []Address
}

type Knows struct {
	neogm.RelationshipBase
	Since  time.Time
	Weight float64
}

// fakeDriver satisfies dialect.Driver in memory, recording every query it
// receives and answering through a pluggable respond hook.
type fakeDriver struct {
	respond func(query string, params map[string]any) ([]dialect.Record, error)

	queries   []string
	params    []map[string]any
	commits   int
	rollbacks int
	closed    bool
}

func (d *fakeDriver) Query(_ context.Context, query string, params map[string]any) (dialect.Cursor, error) {
	d.queries = append(d.queries, query)
	d.params = append(d.params, params)
	if d.respond == nil {
		return &fakeCursor{}, nil
	}
	rows, err := d.respond(query, params)
	if err != nil {
		return nil, err
	}
	return &fakeCursor{rows: rows}, nil
}

func (d *fakeDriver) Tx(context.Context) (dialect.Tx, error) {
	return &fakeTx{d: d}, nil
}

func (d *fakeDriver) Close(context.Context) error {
	d.closed = true
	return nil
}

type fakeTx struct {
	d *fakeDriver
}

func (t *fakeTx) Query(ctx context.Context, query string, params map[string]any) (dialect.Cursor, error) {
	return t.d.Query(ctx, query, params)
}

func (t *fakeTx) Commit(context.Context) error {
	t.d.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.d.rollbacks++
	return nil
}

type fakeCursor struct {
	rows   []dialect.Record
	idx    int
	err    error
	closed bool
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.idx >= len(c.rows) {
		return false
	}
	c.idx++
	return true
}

func (c *fakeCursor) Record() dialect.Record {
	return c.rows[c.idx-1]
}

func (c *fakeCursor) Err() error {
	return c.err
}

func (c *fakeCursor) Close(context.Context) error {
	c.closed = true
	return nil
}

// Entity rows in the shape the node builder's OPTIONAL MATCH produces.

func personRow(id, name string, age int64) dialect.Record {
	return dialect.Record{
		"n": dialect.Node{ID: id, Labels: []string{"Person"}, Props: map[string]any{
			"id":   id,
			"name": name,
			"age":  age,
		}},
	}
}

func withHome(row dialect.Record, parentID, street, city string) dialect.Record {
	out := dialect.Record{}
	for k, v := range row {
		out[k] = v
	}
	satID := parentID + "_home_0"
	out["home_rel"] = dialect.Relationship{
		ID: "rel_" + satID, Type: "__PROPERTY__home__",
		StartID: parentID, EndID: satID,
		Props: map[string]any{},
	}
	out["home_node"] = dialect.Node{ID: satID, Labels: []string{"Address"}, Props: map[string]any{
		"id":     satID,
		"street": street,
		"city":   city,
	}}
	return out
}

func withOffice(row dialect.Record, parentID string, ordinal int64, street, city string) dialect.Record {
	out := dialect.Record{}
	for k, v := range row {
		out[k] = v
	}
	satID := fmt.Sprintf("%s_offices_%d", parentID, ordinal)
	out["offices_rel"] = dialect.Relationship{
		ID: "rel_" + satID, Type: "__PROPERTY__offices__",
		StartID: parentID, EndID: satID,
		Props: map[string]any{"ordinal": ordinal},
	}
	out["offices_node"] = dialect.Node{ID: satID, Labels: []string{"Address"}, Props: map[string]any{
		"id":     satID,
		"street": street,
		"city":   city,
	}}
	return out
}
