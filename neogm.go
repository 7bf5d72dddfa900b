// Package neogm maps typed Go models onto a property graph and translates
// typed queries into parameterized Cypher.
//
// The root package defines the two first-class entity contracts, Node and
// Relationship, together with the traversal direction type shared by the
// schema, codec, and query packages.
//
// A type becomes a node by embedding NodeBase, and a relationship by
// embedding RelationshipBase:
//
//	type Person struct {
//	    neogm.NodeBase
//	    Name string   `graph:"name,index"`
//	    Tags []string `graph:"tags"`
//	    Home Address  `graph:"home"`
//	}
//
//	type Knows struct {
//	    neogm.RelationshipBase
//	    Since time.Time `graph:"since"`
//	}
//
// Models are registered once through the schema package; the codec and
// dialect/cypher packages consume the registered models and never inspect
// live objects beyond reading declared field values.
package neogm

import "github.com/google/uuid"

// Entity is the common contract for graph-persistable values.
// Both nodes and relationships carry a stable string identity.
type Entity interface {
	// EntityID returns the unique identifier of the entity.
	// An empty string means the identity has not been assigned yet.
	EntityID() string
}

// Node is the contract for node entities. It is satisfied by embedding
// NodeBase; the unexported marker keeps arbitrary Entity implementations
// from classifying as nodes.
type Node interface {
	Entity
	graphNode()
}

// Relationship is the contract for relationship entities. It is satisfied
// by embedding RelationshipBase.
type Relationship interface {
	Entity
	// StartID returns the identity of the node the relationship starts at.
	StartID() string
	// EndID returns the identity of the node the relationship points to.
	EndID() string
	graphRelationship()
}

// Direction is the direction of a relationship or traversal.
type Direction int

const (
	// Outgoing follows relationships from start to end (->).
	Outgoing Direction = iota
	// Incoming follows relationships from end to start (<-).
	Incoming
	// Both follows relationships in either direction (undirected pattern).
	Both
)

// String returns the lower-case name of the direction.
func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// NewID returns a new random entity identity.
func NewID() string {
	return uuid.NewString()
}

// NodeBase provides the default Node implementation. Embed it as the first
// field of a node struct.
type NodeBase struct {
	// ID is the unique identifier of the node. If left empty it is
	// assigned on first encode.
	ID string `graph:"id"`
}

// EntityID implements Entity.
func (n NodeBase) EntityID() string { return n.ID }

// SetEntityID assigns the node identity. Used by the codec when decoding
// rows and when assigning identities on first encode.
func (n *NodeBase) SetEntityID(id string) { n.ID = id }

func (NodeBase) graphNode() {}

// RelationshipBase provides the default Relationship implementation. Embed
// it as the first field of a relationship struct.
type RelationshipBase struct {
	// ID is the unique identifier of the relationship.
	ID string `graph:"id"`
	// StartNodeID is the identity of the start node.
	StartNodeID string `graph:"start_node_id"`
	// EndNodeID is the identity of the end node.
	EndNodeID string `graph:"end_node_id"`
	// Dir is the relationship direction. Defaults to Outgoing.
	Dir Direction `graph:"-"`
}

// EntityID implements Entity.
func (r RelationshipBase) EntityID() string { return r.ID }

// SetEntityID assigns the relationship identity.
func (r *RelationshipBase) SetEntityID(id string) { r.ID = id }

// StartID implements Relationship.
func (r RelationshipBase) StartID() string { return r.StartNodeID }

// SetStartID assigns the start node identity.
func (r *RelationshipBase) SetStartID(id string) { r.StartNodeID = id }

// EndID implements Relationship.
func (r RelationshipBase) EndID() string { return r.EndNodeID }

// SetEndID assigns the end node identity.
func (r *RelationshipBase) SetEndID(id string) { r.EndNodeID = id }

// Direction returns the relationship direction.
func (r RelationshipBase) Direction() Direction { return r.Dir }

func (RelationshipBase) graphRelationship() {}
