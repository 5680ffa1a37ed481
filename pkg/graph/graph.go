package graph

import (
	"fmt"
	"slices"
	"time"
)

// NodeKind tags a node with what it represents.
type NodeKind string

const (
	NodeKindPerson  NodeKind = "person"
	NodeKindEmail   NodeKind = "email"
	NodeKindMeeting NodeKind = "meeting"
)

// IsEvent reports whether the kind stands for a collaboration event.
func (k NodeKind) IsEvent() bool {
	return k == NodeKindEmail || k == NodeKindMeeting
}

// Relation is the kind of an edge.
type Relation string

const (
	// RelationParticipated links a person to an email thread.
	RelationParticipated Relation = "participated"
	// RelationOrganized links a meeting organizer to the meeting.
	RelationOrganized Relation = "organized"
	// RelationAttended links a meeting attendee to the meeting.
	RelationAttended Relation = "attended"
	// RelationTemporalProximity links two events close in time that share
	// at least one participant. It points from the earlier event.
	RelationTemporalProximity Relation = "temporal_proximity"
	// RelationCollaborated links two persons that share events. Emitted in
	// both directions.
	RelationCollaborated Relation = "collaborated"
)

// IsMembership reports whether the relation connects a person to an event.
func (r Relation) IsMembership() bool {
	return r == RelationParticipated || r == RelationOrganized || r == RelationAttended
}

// NodeID is a stable index into the node arena of a Graph.
type NodeID int

// Node is a person or an event. Fields not relevant to the node kind stay at
// their zero value.
type Node struct {
	ID   NodeID
	Key  string
	Kind NodeKind

	Organization string

	Subject          string
	Start            time.Time
	End              time.Time
	ParticipantCount int
	EmailCount       int
	DurationSeconds  float64
}

// Edge is a directed, relation-tagged connection. Attribute fields are only
// set for the relations that carry them.
type Edge struct {
	From     NodeID
	To       NodeID
	Relation Relation

	// membership
	Timestamp time.Time

	// temporal proximity
	TimeDiffHours      float64
	SharedParticipants int
	Confidence         float64

	// collaboration
	Weight int
}

// Graph is a directed multigraph stored as an arena of nodes plus an edge
// list indexed by relation and by endpoint. Node ids are positions in the
// arena and never change once assigned.
//
// A Graph is not safe for concurrent mutation. Once built it may be read
// from multiple goroutines.
type Graph struct {
	nodes []Node
	index map[string]NodeID

	edges      []Edge
	byRelation map[Relation][]int
	out        [][]int
	in         [][]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		index:      make(map[string]NodeID),
		byRelation: make(map[Relation][]int),
	}
}

// AddNode inserts n and returns its id. When a node with the same key is
// already present, the existing id is returned and n is ignored.
func (g *Graph) AddNode(n Node) NodeID {
	if id, ok := g.index[n.Key]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	n.ID = id
	g.nodes = append(g.nodes, n)
	g.index[n.Key] = id
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return id
}

// AddEdge appends e. Both endpoints must exist.
func (g *Graph) AddEdge(e Edge) error {
	if !g.valid(e.From) || !g.valid(e.To) {
		return fmt.Errorf("edge %d -> %d references unknown node", e.From, e.To)
	}
	g.addEdge(e)
	return nil
}

func (g *Graph) addEdge(e Edge) {
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.byRelation[e.Relation] = append(g.byRelation[e.Relation], idx)
	g.out[e.From] = append(g.out[e.From], idx)
	g.in[e.To] = append(g.in[e.To], idx)
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	if !g.valid(id) {
		return Node{}, false
	}
	return g.nodes[id], true
}

// Lookup resolves a node key (email address or event id).
func (g *Graph) Lookup(key string) (NodeID, bool) {
	id, ok := g.index[key]
	return id, ok
}

// Nodes returns all nodes of the given kinds in id order. Without kinds,
// every node is returned.
func (g *Graph) Nodes(kinds ...NodeKind) []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if len(kinds) == 0 || slices.Contains(kinds, n.Kind) {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns every edge of the given relation in insertion order.
func (g *Graph) Edges(rel Relation) []Edge {
	idx := g.byRelation[rel]
	out := make([]Edge, len(idx))
	for i, e := range idx {
		out[i] = g.edges[e]
	}
	return out
}

// Successors returns the distinct targets of edges leaving id.
func (g *Graph) Successors(id NodeID) []NodeID {
	if !g.valid(id) {
		return nil
	}
	return g.distinct(g.out[id], func(e Edge) NodeID { return e.To })
}

// Members returns the distinct persons linked to an event through a
// membership relation, in edge insertion order.
func (g *Graph) Members(event NodeID) []NodeID {
	if !g.valid(event) {
		return nil
	}
	var members []NodeID
	seen := make(map[NodeID]struct{})
	for _, idx := range g.in[event] {
		e := g.edges[idx]
		if !e.Relation.IsMembership() {
			continue
		}
		if _, ok := seen[e.From]; ok {
			continue
		}
		seen[e.From] = struct{}{}
		members = append(members, e.From)
	}
	return members
}

// Degree returns in-degree plus out-degree, counting parallel edges.
func (g *Graph) Degree(id NodeID) int {
	if !g.valid(id) {
		return 0
	}
	return len(g.in[id]) + len(g.out[id])
}

func (g *Graph) distinct(edgeIdx []int, pick func(Edge) NodeID) []NodeID {
	var ids []NodeID
	seen := make(map[NodeID]struct{}, len(edgeIdx))
	for _, idx := range edgeIdx {
		id := pick(g.edges[idx])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
