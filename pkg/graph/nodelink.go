package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// NodeLink is the node-link JSON document of a graph: a flat node list with
// per-node attributes and a link list with per-edge attributes. Links refer
// to nodes by key.
type NodeLink struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []NodeLinkNode `json:"nodes"`
	Links      []NodeLinkLink `json:"links"`
}

// NodeLinkNode is one node of a NodeLink document. Person nodes set Email
// and Organization; event nodes set the subject, dates and counts. Duration
// is in seconds.
type NodeLinkNode struct {
	ID               string     `json:"id"`
	Type             NodeKind   `json:"type"`
	Email            string     `json:"email,omitempty"`
	Organization     string     `json:"organization,omitempty"`
	Subject          string     `json:"subject,omitempty"`
	Date             *time.Time `json:"date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	ParticipantCount int        `json:"participant_count,omitempty"`
	EmailCount       int        `json:"email_count,omitempty"`
	Duration         float64    `json:"duration,omitempty"`
}

// NodeLinkLink is one edge of a NodeLink document. Source and Target are
// node ids. Only the attributes of the edge's relation are set.
type NodeLinkLink struct {
	Source             string     `json:"source"`
	Target             string     `json:"target"`
	Key                int        `json:"key"`
	Relation           Relation   `json:"relation"`
	Timestamp          *time.Time `json:"timestamp,omitempty"`
	TimeDiffHours      *float64   `json:"time_diff_hours,omitempty"`
	SharedParticipants int        `json:"shared_participants,omitempty"`
	Confidence         *float64   `json:"confidence,omitempty"`
	EventCount         int        `json:"event_count,omitempty"`
	Weight             int        `json:"weight,omitempty"`
}

// ToNodeLink converts the graph into its node-link document. The key of a
// link numbers parallel edges between the same pair of nodes.
func (g *Graph) ToNodeLink() NodeLink {
	doc := NodeLink{
		Directed:   true,
		Multigraph: true,
		Graph:      map[string]any{},
		Nodes:      make([]NodeLinkNode, 0, len(g.nodes)),
		Links:      make([]NodeLinkLink, 0, len(g.edges)),
	}

	for _, n := range g.nodes {
		node := NodeLinkNode{ID: n.Key, Type: n.Kind}
		if n.Kind == NodeKindPerson {
			node.Email = n.Key
			node.Organization = n.Organization
		} else {
			start, end := n.Start, n.End
			node.Subject = n.Subject
			node.Date = &start
			node.EndDate = &end
			node.ParticipantCount = n.ParticipantCount
			node.EmailCount = n.EmailCount
			node.Duration = n.DurationSeconds
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	type pair struct{ from, to NodeID }
	keys := make(map[pair]int)
	for _, e := range g.edges {
		p := pair{e.From, e.To}
		link := NodeLinkLink{
			Source:   g.nodes[e.From].Key,
			Target:   g.nodes[e.To].Key,
			Key:      keys[p],
			Relation: e.Relation,
		}
		keys[p]++

		switch {
		case e.Relation.IsMembership():
			ts := e.Timestamp
			link.Timestamp = &ts
		case e.Relation == RelationTemporalProximity:
			diff, conf := e.TimeDiffHours, e.Confidence
			link.TimeDiffHours = &diff
			link.Confidence = &conf
			link.SharedParticipants = e.SharedParticipants
		case e.Relation == RelationCollaborated:
			link.Weight = e.Weight
			link.EventCount = e.Weight
		}
		doc.Links = append(doc.Links, link)
	}
	return doc
}

// FromNodeLink rebuilds a graph from a node-link document. Links that
// reference unknown node keys are rejected.
func FromNodeLink(doc NodeLink) (*Graph, error) {
	g := New()
	for _, n := range doc.Nodes {
		node := Node{
			Key:              n.ID,
			Kind:             n.Type,
			Organization:     n.Organization,
			Subject:          n.Subject,
			ParticipantCount: n.ParticipantCount,
			EmailCount:       n.EmailCount,
			DurationSeconds:  n.Duration,
		}
		if n.Date != nil {
			node.Start = *n.Date
		}
		if n.EndDate != nil {
			node.End = *n.EndDate
		}
		g.AddNode(node)
	}

	for i, l := range doc.Links {
		from, ok := g.Lookup(l.Source)
		if !ok {
			return nil, fmt.Errorf("link %d: unknown source %q", i, l.Source)
		}
		to, ok := g.Lookup(l.Target)
		if !ok {
			return nil, fmt.Errorf("link %d: unknown target %q", i, l.Target)
		}
		e := Edge{
			From:               from,
			To:                 to,
			Relation:           l.Relation,
			SharedParticipants: l.SharedParticipants,
			Weight:             l.Weight,
		}
		if l.Timestamp != nil {
			e.Timestamp = *l.Timestamp
		}
		if l.TimeDiffHours != nil {
			e.TimeDiffHours = *l.TimeDiffHours
		}
		if l.Confidence != nil {
			e.Confidence = *l.Confidence
		}
		if e.Weight == 0 && l.EventCount > 0 {
			e.Weight = l.EventCount
		}
		g.addEdge(e)
	}
	return g, nil
}

// WriteNodeLink encodes the graph as indented node-link JSON.
func (g *Graph) WriteNodeLink(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.ToNodeLink()); err != nil {
		return fmt.Errorf("failed to encode node-link graph: %w", err)
	}
	return nil
}

// ReadNodeLink decodes node-link JSON produced by WriteNodeLink.
func ReadNodeLink(r io.Reader) (*Graph, error) {
	var doc NodeLink
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode node-link graph: %w", err)
	}
	return FromNodeLink(doc)
}
