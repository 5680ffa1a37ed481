package influence

import (
	"math"
	"slices"

	"github.com/OFFIS-RIT/pulse/pkg/graph"
)

// personGraph is an undirected weighted graph over persons. Edge weight is
// the number of events two persons share.
type personGraph struct {
	ids []graph.NodeID
	adj []map[int]float64
}

// neighbors returns the adjacent persons of i in ascending order so that
// floating point accumulation does not depend on map iteration.
func (pg *personGraph) neighbors(i int) []int {
	out := make([]int, 0, len(pg.adj[i]))
	for j := range pg.adj[i] {
		out = append(out, j)
	}
	slices.Sort(out)
	return out
}

func (pg *personGraph) sortedAdjacency() [][]int {
	out := make([][]int, pg.len())
	for i := range out {
		out[i] = pg.neighbors(i)
	}
	return out
}

func newPersonGraph(n int) *personGraph {
	pg := &personGraph{
		ids: make([]graph.NodeID, n),
		adj: make([]map[int]float64, n),
	}
	for i := range pg.adj {
		pg.adj[i] = make(map[int]float64)
	}
	return pg
}

func (pg *personGraph) len() int { return len(pg.adj) }

func (pg *personGraph) addWeight(a, b int, w float64) {
	if a == b {
		return
	}
	pg.adj[a][b] += w
	pg.adj[b][a] += w
}

func (pg *personGraph) edgeCount() int {
	total := 0
	for _, nbrs := range pg.adj {
		total += len(nbrs)
	}
	return total / 2
}

// buildPersonGraph connects every pair of distinct members of each event.
func buildPersonGraph(g *graph.Graph) *personGraph {
	persons := g.Nodes(graph.NodeKindPerson)
	pg := newPersonGraph(len(persons))
	index := make(map[graph.NodeID]int, len(persons))
	for i, p := range persons {
		pg.ids[i] = p.ID
		index[p.ID] = i
	}

	for _, event := range g.Nodes(graph.NodeKindEmail, graph.NodeKindMeeting) {
		members := g.Members(event.ID)
		for i, a := range members {
			for _, b := range members[i+1:] {
				ia, okA := index[a]
				ib, okB := index[b]
				if okA && okB {
					pg.addWeight(ia, ib, 1)
				}
			}
		}
	}
	return pg
}

const (
	pageRankAlpha   = 0.85
	pageRankMaxIter = 100
	pageRankTol     = 1e-6
)

// pageRank runs weighted power iteration with uniform teleport. Nodes
// without edges spread their rank uniformly. Returns the last iterate and
// whether it converged.
func (pg *personGraph) pageRank() ([]float64, bool) {
	n := pg.len()
	if n == 0 {
		return nil, true
	}

	outWeight := make([]float64, n)
	var dangling []int
	for i, nbrs := range pg.adj {
		for _, w := range nbrs {
			outWeight[i] += w
		}
		if outWeight[i] == 0 {
			dangling = append(dangling, i)
		}
	}

	nbrs := pg.sortedAdjacency()
	uniform := 1 / float64(n)
	x := make([]float64, n)
	for i := range x {
		x[i] = uniform
	}

	for iter := 0; iter < pageRankMaxIter; iter++ {
		last := x
		x = make([]float64, n)

		danglingSum := 0.0
		for _, i := range dangling {
			danglingSum += last[i]
		}
		danglingSum *= pageRankAlpha

		for i := range nbrs {
			if outWeight[i] == 0 {
				continue
			}
			share := pageRankAlpha * last[i] / outWeight[i]
			for _, j := range nbrs[i] {
				x[j] += share * pg.adj[i][j]
			}
		}
		for i := range x {
			x[i] += danglingSum*uniform + (1-pageRankAlpha)*uniform
		}

		errSum := 0.0
		for i := range x {
			errSum += math.Abs(x[i] - last[i])
		}
		if errSum < float64(n)*pageRankTol {
			return x, true
		}
	}
	return x, false
}

// degreeCentrality is the share of other persons a person is connected to.
func (pg *personGraph) degreeCentrality() []float64 {
	n := pg.len()
	out := make([]float64, n)
	if n == 1 {
		out[0] = 1
		return out
	}
	for i, nbrs := range pg.adj {
		out[i] = float64(len(nbrs)) / float64(n-1)
	}
	return out
}

// betweennessCentrality computes unweighted shortest-path betweenness with
// Brandes' algorithm, normalized by (n-1)(n-2) for undirected graphs.
func (pg *personGraph) betweennessCentrality() []float64 {
	n := pg.len()
	bc := make([]float64, n)
	nbrs := pg.sortedAdjacency()

	for s := 0; s < n; s++ {
		stack := make([]int, 0, n)
		preds := make([][]int, n)
		sigma := make([]float64, n)
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range nbrs[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		delta := make([]float64, n)
		for k := len(stack) - 1; k >= 0; k-- {
			w := stack[k]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				bc[w] += delta[w]
			}
		}
	}

	if n > 2 {
		scale := 1 / float64((n-1)*(n-2))
		for i := range bc {
			bc[i] *= scale
		}
	}
	return bc
}
