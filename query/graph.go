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

// Graph runs typed operations against a storage driver. The zero value is
// not usable; construct one with New.
type Graph struct {
	drv dialect.Driver
}

// New returns a Graph over the given driver.
func New(drv dialect.Driver) *Graph {
	return &Graph{drv: drv}
}

// Driver exposes the underlying driver, for callers that need to run raw
// queries next to typed ones.
func (g *Graph) Driver() dialect.Driver {
	return g.drv
}

// Close releases the underlying driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.drv.Close(ctx)
}

// CreateNode persists a node and its satellites in one transaction. A node
// without an identity is assigned one.
func (g *Graph) CreateNode(ctx context.Context, n neogm.Node) error {
	info, err := codec.EncodeNode(n)
	if err != nil {
		return err
	}
	qs, err := cypher.CreateNode(info)
	if err != nil {
		return err
	}
	return g.runAll(ctx, info.Label, "create", qs)
}

// UpdateNode rewrites a node's properties and satellites in one
// transaction.
func (g *Graph) UpdateNode(ctx context.Context, n neogm.Node) error {
	if n.EntityID() == "" {
		return &neogm.ValidationError{Name: "id", Err: fmt.Errorf("update requires an identity")}
	}
	info, err := codec.EncodeNode(n)
	if err != nil {
		return err
	}
	qs, err := cypher.UpdateNode(info)
	if err != nil {
		return err
	}
	return g.runAll(ctx, info.Label, "update", qs)
}

// DeleteNode removes a node and its satellites.
func (g *Graph) DeleteNode(ctx context.Context, id string) error {
	return g.runAll(ctx, "node", "delete", cypher.DeleteNode(id))
}

// CreateRelationship persists a relationship between two existing nodes.
func (g *Graph) CreateRelationship(ctx context.Context, r neogm.Relationship) error {
	info, err := codec.EncodeRelationship(r)
	if err != nil {
		return err
	}
	qs, err := cypher.CreateRelationship(info)
	if err != nil {
		return err
	}
	return g.runAll(ctx, info.Label, "create", qs)
}

// UpdateRelationship rewrites a relationship's properties. Endpoints stay
// as they are.
func (g *Graph) UpdateRelationship(ctx context.Context, r neogm.Relationship) error {
	if r.EntityID() == "" {
		return &neogm.ValidationError{Name: "id", Err: fmt.Errorf("update requires an identity")}
	}
	info, err := codec.EncodeRelationship(r)
	if err != nil {
		return err
	}
	qs, err := cypher.UpdateRelationship(info)
	if err != nil {
		return err
	}
	return g.runAll(ctx, info.Label, "update", qs)
}

// DeleteRelationship removes a relationship by identity.
func (g *Graph) DeleteRelationship(ctx context.Context, id string) error {
	return g.runAll(ctx, "relationship", "delete", cypher.DeleteRelationship(id))
}

// GetNode loads the node with the given identity into dst, or returns a
// NotFoundError.
func (g *Graph) GetNode(ctx context.Context, dst neogm.Node, id string) error {
	m, err := schema.Node(dst)
	if err != nil {
		return err
	}
	q, err := cypher.NewBuilder(m).Where(expr.StringField("id").EQ(id)).Build()
	if err != nil {
		return err
	}
	rows, err := g.collect(ctx, q)
	if err != nil {
		return neogm.NewQueryError(m.Label, "get", err)
	}
	if len(rows) == 0 {
		return &neogm.NotFoundError{Label: m.Label}
	}
	return decodeNodeRows(m, dst, rows)
}

// GetRelationship loads the relationship with the given identity into dst,
// or returns a NotFoundError.
func (g *Graph) GetRelationship(ctx context.Context, dst neogm.Relationship, id string) error {
	m, err := schema.Relationship(dst)
	if err != nil {
		return err
	}
	q, err := cypher.NewBuilder(m).Where(expr.StringField("id").EQ(id)).Build()
	if err != nil {
		return err
	}
	rows, err := g.collect(ctx, q)
	if err != nil {
		return neogm.NewQueryError(m.Label, "get", err)
	}
	if len(rows) == 0 {
		return &neogm.NotFoundError{Label: m.Label}
	}
	return decodeRelationshipRow(dst, rows[0])
}

// runAll executes queries sequentially inside one transaction.
func (g *Graph) runAll(ctx context.Context, label, op string, qs []cypher.Query) error {
	tx, err := g.drv.Tx(ctx)
	if err != nil {
		return neogm.NewQueryError(label, op, err)
	}
	for _, q := range qs {
		cur, err := tx.Query(ctx, q.Text, q.Params)
		if err != nil {
			_ = tx.Rollback(ctx)
			return neogm.NewQueryError(label, op, err)
		}
		if err := drain(ctx, cur); err != nil {
			_ = tx.Rollback(ctx)
			return neogm.NewQueryError(label, op, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return neogm.NewQueryError(label, op, err)
	}
	return nil
}

func drain(ctx context.Context, cur dialect.Cursor) error {
	defer cur.Close(ctx)
	for cur.Next(ctx) {
	}
	return cur.Err()
}

// collect runs a query and gathers every row.
func (g *Graph) collect(ctx context.Context, q cypher.Query) ([]dialect.Record, error) {
	cur, err := g.drv.Query(ctx, q.Text, q.Params)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []dialect.Record
	for cur.Next(ctx) {
		rows = append(rows, cur.Record())
	}
	return rows, cur.Err()
}

// nodeKey groups entity rows by the matched node's identity.
func nodeKey(rec dialect.Record) string {
	if n, ok := rec["n"].(dialect.Node); ok {
		if id, ok := n.Props["id"].(string); ok {
			return id
		}
	}
	return ""
}

// decodeNodeRows rehydrates one entity from the contiguous rows the
// builder's OPTIONAL MATCH shape produced for it. Satellite rows repeat
// when several collection fields fan out, so they dedupe by identity.
func decodeNodeRows(m *schema.Model, dst neogm.Node, rows []dialect.Record) error {
	n, ok := rows[0]["n"].(dialect.Node)
	if !ok {
		return neogm.NewQueryError(m.Label, "decode", fmt.Errorf("row carries no node"))
	}
	var related []codec.RelatedRow
	seen := map[string]struct{}{}
	for _, row := range rows {
		for _, f := range m.RelatedFields() {
			rel, ok := row[f.Name+"_rel"].(dialect.Relationship)
			if !ok {
				continue
			}
			sat, ok := row[f.Name+"_node"].(dialect.Node)
			if !ok {
				continue
			}
			key := rel.Type + "\x00" + sat.ID
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			related = append(related, codec.RelatedRow{
				Token:     rel.Type,
				RelProps:  rel.Props,
				NodeProps: sat.Props,
			})
		}
	}
	return codec.DecodeNode(dst, n.Props, related)
}

func decodeRelationshipRow(dst neogm.Relationship, row dialect.Record) error {
	rel, ok := row["r"].(dialect.Relationship)
	if !ok {
		return fmt.Errorf("row carries no relationship")
	}
	start, _ := row["start_id"].(string)
	end, _ := row["end_id"].(string)
	return codec.DecodeRelationship(dst, rel.Props, start, end)
}
