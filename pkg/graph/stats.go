package graph

// Stats summarizes the size and connectivity of a graph.
type Stats struct {
	TotalNodes    int     `json:"total_nodes"`
	TotalEdges    int     `json:"total_edges"`
	PersonNodes   int     `json:"person_nodes"`
	EventNodes    int     `json:"event_nodes"`
	TemporalEdges int     `json:"temporal_edges"`
	Density       float64 `json:"density"`
	AvgDegree     float64 `json:"avg_degree"`
}

// Stats computes graph statistics. Density treats the graph as a directed
// multigraph (E / (N*(N-1))) and is 0 below two nodes; average degree counts
// both edge directions and is 0 on an empty graph.
func (g *Graph) Stats() Stats {
	s := Stats{
		TotalNodes:    g.NodeCount(),
		TotalEdges:    g.EdgeCount(),
		TemporalEdges: len(g.byRelation[RelationTemporalProximity]),
	}
	degrees := 0
	for _, n := range g.nodes {
		degrees += g.Degree(n.ID)
		switch {
		case n.Kind == NodeKindPerson:
			s.PersonNodes++
		case n.Kind.IsEvent():
			s.EventNodes++
		}
	}

	n := float64(s.TotalNodes)
	e := float64(s.TotalEdges)
	if s.TotalNodes > 1 {
		s.Density = e / (n * (n - 1))
	}
	if s.TotalNodes > 0 {
		s.AvgDegree = float64(degrees) / n
	}
	return s
}
