package query_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/dialect"
	"github.com/syssam/neogm/query"
	"github.com/syssam/neogm/schema"
)

func newGraph(t *testing.T, drv *fakeDriver) *query.Graph {
	t.Helper()
	schema.Reset()
	return query.New(drv)
}

func TestGraphCreateNode(t *testing.T) {
	drv := &fakeDriver{}
	g := newGraph(t, drv)

	p := &Person{
		Name: "Alice",
		Age:  30,
		Home: Address{Street: "Main st", City: "Oslo"},
		Offices: []Address{
			{Street: "Annex", City: "Bergen"},
		},
	}
	p.SetEntityID("p1")
	require.NoError(t, g.CreateNode(context.Background(), p))

	// Node first, then one query per satellite, all in one transaction.
	require.Len(t, drv.queries, 3)
	assert.True(t, strings.HasPrefix(drv.queries[0], "CREATE (n:Person {"))
	assert.Contains(t, drv.queries[1], "[pr:__PROPERTY__home__]")
	assert.Contains(t, drv.queries[2], "[pr:__PROPERTY__offices__ {ordinal: $ordinal}]")
	assert.Equal(t, "p1_offices_0", drv.params[2]["id"])
	assert.Equal(t, 1, drv.commits)
	assert.Zero(t, drv.rollbacks)
}

func TestGraphCreateNodeRollback(t *testing.T) {
	calls := 0
	drv := &fakeDriver{
		respond: func(string, map[string]any) ([]dialect.Record, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("constraint violated")
			}
			return nil, nil
		},
	}
	g := newGraph(t, drv)

	p := &Person{Name: "Alice", Home: Address{City: "Oslo"}}
	p.SetEntityID("p1")
	err := g.CreateNode(context.Background(), p)
	require.Error(t, err)
	assert.True(t, neogm.IsQueryError(err))
	assert.Contains(t, err.Error(), "constraint violated")
	assert.Zero(t, drv.commits)
	assert.Equal(t, 1, drv.rollbacks)
}

func TestGraphUpdateNode(t *testing.T) {
	drv := &fakeDriver{}
	g := newGraph(t, drv)

	p := &Person{Name: "Alice", Home: Address{City: "Oslo"}}
	p.SetEntityID("p1")
	require.NoError(t, g.UpdateNode(context.Background(), p))

	require.Len(t, drv.queries, 3)
	assert.True(t, strings.HasPrefix(drv.queries[0], "MATCH (n:Person {id: $id})\nSET "))
	assert.Contains(t, drv.queries[1], "STARTS WITH '__PROPERTY__'")
	assert.Contains(t, drv.queries[2], "[pr:__PROPERTY__home__]")

	t.Run("RequiresIdentity", func(t *testing.T) {
		err := g.UpdateNode(context.Background(), &Person{Name: "Bob"})
		assert.True(t, neogm.IsValidationError(err))
	})
}

func TestGraphDeleteNode(t *testing.T) {
	drv := &fakeDriver{}
	g := newGraph(t, drv)
	require.NoError(t, g.DeleteNode(context.Background(), "p1"))

	require.Len(t, drv.queries, 2)
	assert.Contains(t, drv.queries[0], "DELETE pr, cp")
	assert.Contains(t, drv.queries[1], "DETACH DELETE n")
	assert.Equal(t, 1, drv.commits)
}

func TestGraphRelationshipLifecycle(t *testing.T) {
	drv := &fakeDriver{}
	g := newGraph(t, drv)

	k := &Knows{Since: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Weight: 0.8}
	k.SetEntityID("k1")
	k.SetStartID("p1")
	k.SetEndID("p2")
	require.NoError(t, g.CreateRelationship(context.Background(), k))
	require.NoError(t, g.UpdateRelationship(context.Background(), k))
	require.NoError(t, g.DeleteRelationship(context.Background(), "k1"))

	require.Len(t, drv.queries, 3)
	assert.Contains(t, drv.queries[0], "CREATE (start)-[r:KNOWS {")
	assert.True(t, strings.HasPrefix(drv.queries[1], "MATCH ()-[r:KNOWS {id: $id}]->()"))
	assert.Contains(t, drv.queries[2], "DELETE r")
	assert.Equal(t, 3, drv.commits)

	t.Run("CreateRequiresEndpoints", func(t *testing.T) {
		err := g.CreateRelationship(context.Background(), &Knows{})
		assert.True(t, neogm.IsValidationError(err))
	})

	t.Run("UpdateRequiresIdentity", func(t *testing.T) {
		loose := &Knows{}
		loose.SetStartID("p1")
		loose.SetEndID("p2")
		err := g.UpdateRelationship(context.Background(), loose)
		assert.True(t, neogm.IsValidationError(err))
	})
}

func TestGraphGetNode(t *testing.T) {
	row := withOffice(
		withHome(personRow("p1", "Alice", 30), "p1", "Main st", "Oslo"),
		"p1", 0, "Annex", "Bergen")
	drv := &fakeDriver{
		respond: func(q string, p map[string]any) ([]dialect.Record, error) {
			return []dialect.Record{row}, nil
		},
	}
	g := newGraph(t, drv)

	var p Person
	require.NoError(t, g.GetNode(context.Background(), &p, "p1"))
	assert.Equal(t, "p1", p.EntityID())
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, 30, p.Age)
	assert.Equal(t, Address{Street: "Main st", City: "Oslo"}, p.Home)
	assert.Equal(t, []Address{{Street: "Annex", City: "Bergen"}}, p.Offices)

	require.Len(t, drv.params, 1)
	assert.Equal(t, "p1", drv.params[0]["id_0"])
}

func TestGraphGetNodeNotFound(t *testing.T) {
	drv := &fakeDriver{}
	g := newGraph(t, drv)
	err := g.GetNode(context.Background(), &Person{}, "missing")
	assert.True(t, neogm.IsNotFound(err))
}

func TestGraphGetRelationship(t *testing.T) {
	drv := &fakeDriver{
		respond: func(q string, p map[string]any) ([]dialect.Record, error) {
			return []dialect.Record{{
				"r": dialect.Relationship{ID: "k1", Type: "KNOWS", Props: map[string]any{
					"id":     "k1",
					"weight": 0.8,
				}},
				"start_id": "p1",
				"end_id":   "p2",
			}}, nil
		},
	}
	g := newGraph(t, drv)

	var k Knows
	require.NoError(t, g.GetRelationship(context.Background(), &k, "k1"))
	assert.Equal(t, "k1", k.EntityID())
	assert.Equal(t, "p1", k.StartID())
	assert.Equal(t, "p2", k.EndID())
	assert.Equal(t, 0.8, k.Weight)

	t.Run("NotFound", func(t *testing.T) {
		empty := &fakeDriver{}
		g := query.New(empty)
		err := g.GetRelationship(context.Background(), &Knows{}, "missing")
		assert.True(t, neogm.IsNotFound(err))
	})
}

func TestGraphClose(t *testing.T) {
	drv := &fakeDriver{}
	g := newGraph(t, drv)
	require.NoError(t, g.Close(context.Background()))
	assert.True(t, drv.closed)
	assert.Same(t, dialect.Driver(drv), g.Driver())
}
