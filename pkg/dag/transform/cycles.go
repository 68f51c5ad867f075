package transform

import "github.com/matzehuels/stratum/pkg/dag"

// Acyclify marks edges reversed so that the constraint edges, read in
// layout orientation, form a DAG. It returns the number of edges it
// reversed.
//
// Any Reversed flags from a previous run are cleared first. Self-loops and
// edges with Constraint=false are never reversed and take no part in the
// search.
//
// # Rank Sets
//
// Nodes that share an explicit rank constraint are treated as one vertex.
// Edges between members of the same set are left alone (they become flat
// edges). Edges entering a min or source set from outside, and edges
// leaving a max or sink set, are reversed up front since no ranking could
// honor them.
//
// # Determinism
//
// The depth-first search starts from sources in node ID order, then from
// every remaining unvisited node in node ID order, and follows out-edges in
// edge ID order. On an acyclic input no edge is reversed.
func Acyclify(g *dag.Graph) int {
	for _, e := range g.Edges() {
		e.Reversed = false
	}

	sets := NewRankSets(g)
	reversed := 0
	for _, e := range g.Edges() {
		if !participates(e) {
			continue
		}
		sf, st := sets.Find(e.From), sets.Find(e.To)
		if sf == st {
			continue
		}
		if (sets.IsMin(st) && !sets.IsMin(sf)) || (sets.IsMax(sf) && !sets.IsMax(st)) {
			e.Reversed = true
			reversed++
		}
	}

	const (
		white = iota
		gray
		black
	)

	color := make([]int, g.NodeCount())
	members := sets.Members()

	var backEdges []*dag.Edge
	var dfs func(rep dag.NodeID)
	dfs = func(rep dag.NodeID) {
		color[rep] = gray
		for _, n := range members[rep] {
			for _, id := range g.Out(n) {
				e := g.Edge(id)
				if !participates(e) {
					continue
				}
				next := sets.Find(e.Dst())
				if next == rep {
					continue
				}
				switch color[next] {
				case white:
					dfs(next)
				case gray:
					backEdges = append(backEdges, e)
				}
			}
		}
		color[rep] = black
	}

	for _, n := range g.Nodes() {
		rep := sets.Find(n.ID)
		if rep == n.ID && color[rep] == white && !hasIncoming(g, sets, members[rep]) {
			dfs(rep)
		}
	}
	for _, n := range g.Nodes() {
		if rep := sets.Find(n.ID); color[rep] == white {
			dfs(rep)
		}
	}

	for _, e := range backEdges {
		e.Reversed = !e.Reversed
	}
	return reversed + len(backEdges)
}

func participates(e *dag.Edge) bool {
	return e.Constraint && !e.IsSelfLoop()
}

func hasIncoming(g *dag.Graph, sets *RankSets, members []dag.NodeID) bool {
	for _, n := range members {
		rep := sets.Find(n)
		for _, id := range g.In(n) {
			e := g.Edge(id)
			if participates(e) && sets.Find(e.Src()) != rep {
				return true
			}
		}
	}
	return false
}
