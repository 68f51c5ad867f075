package transform

import "github.com/matzehuels/stratum/pkg/dag"

// RankSets is a union-find over the explicit rank constraints of a graph.
// Each set is represented by its lowest NodeID, so representatives are
// stable across runs.
type RankSets struct {
	parent []dag.NodeID
	kind   map[dag.NodeID]dag.RankKind
}

// NewRankSets groups the nodes of every rank constraint of g. Nodes not
// named by any constraint are singleton sets.
func NewRankSets(g *dag.Graph) *RankSets {
	s := &RankSets{
		parent: make([]dag.NodeID, g.NodeCount()),
		kind:   make(map[dag.NodeID]dag.RankKind),
	}
	for i := range s.parent {
		s.parent[i] = dag.NodeID(i)
	}
	for _, rc := range g.RankConstraints() {
		for _, n := range rc.Nodes[1:] {
			s.union(rc.Nodes[0], n)
		}
	}
	// All min and source sets share the smallest rank, all max and sink
	// sets the largest.
	minRep, maxRep := dag.NoNode, dag.NoNode
	for _, rc := range g.RankConstraints() {
		switch rc.Kind {
		case dag.RankMin, dag.RankSource:
			if minRep != dag.NoNode {
				s.union(minRep, rc.Nodes[0])
			}
			minRep = rc.Nodes[0]
		case dag.RankMax, dag.RankSink:
			if maxRep != dag.NoNode {
				s.union(maxRep, rc.Nodes[0])
			}
			maxRep = rc.Nodes[0]
		}
	}
	for _, rc := range g.RankConstraints() {
		rep := s.Find(rc.Nodes[0])
		switch cur := s.kind[rep]; {
		case cur == "" || cur == dag.RankSame:
			s.kind[rep] = rc.Kind
		case rc.Kind == dag.RankSource || rc.Kind == dag.RankSink:
			s.kind[rep] = rc.Kind
		}
	}
	return s
}

// Find returns the representative of n's set.
func (s *RankSets) Find(n dag.NodeID) dag.NodeID {
	for s.parent[n] != n {
		s.parent[n] = s.parent[s.parent[n]]
		n = s.parent[n]
	}
	return n
}

func (s *RankSets) union(a, b dag.NodeID) {
	ra, rb := s.Find(a), s.Find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	s.parent[rb] = ra
}

// Kind returns the constraint kind of the set with representative rep, or
// "" for an unconstrained node.
func (s *RankSets) Kind(rep dag.NodeID) dag.RankKind { return s.kind[rep] }

// IsMin reports whether the set sits on the smallest rank.
func (s *RankSets) IsMin(rep dag.NodeID) bool {
	k := s.kind[rep]
	return k == dag.RankMin || k == dag.RankSource
}

// IsMax reports whether the set sits on the largest rank.
func (s *RankSets) IsMax(rep dag.NodeID) bool {
	k := s.kind[rep]
	return k == dag.RankMax || k == dag.RankSink
}

// Members returns, for every representative, the set's nodes in ID order.
// Non-representatives map to nil.
func (s *RankSets) Members() [][]dag.NodeID {
	m := make([][]dag.NodeID, len(s.parent))
	for i := range s.parent {
		n := dag.NodeID(i)
		rep := s.Find(n)
		m[rep] = append(m[rep], n)
	}
	return m
}
