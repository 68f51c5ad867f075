package transform

import (
	"fmt"

	"github.com/matzehuels/stratum/pkg/dag"
)

// ExpandOptions controls the size of virtual nodes.
type ExpandOptions struct {
	// VirtualWidth and VirtualHeight are the dimensions given to every
	// virtual node. They take part in separation like any other node.
	VirtualWidth  float64
	VirtualHeight float64
}

// Expand splits every edge spanning k > 1 ranks into a chain of k unit-span
// segment edges through k-1 virtual nodes, one per intermediate rank. It
// returns the number of virtual nodes created. An error means g was left
// partially expanded and must be discarded.
//
// Ranks must be assigned. Non-constraint edges are first oriented downward
// by setting Reversed when their head ranks above their tail. The original
// edge stays in the graph with [dag.Edge.Chain] listing its virtual nodes
// in layout order; segments inherit its weight and point back to it
// through Origin. Flat edges and self-loops are left unchanged.
//
// Expand is not idempotent: call it once per ranked graph.
//
//	Before: a (rank 0) -> d (rank 3)
//	After:  a -> v1 -> v2 -> d, with edge a->d carrying Chain [v1 v2]
func Expand(g *dag.Graph, opts ExpandOptions) (int, error) {
	created := 0
	for _, e := range g.Edges() {
		if e.Kind != dag.EdgeKindReal || e.IsSelfLoop() {
			continue
		}
		if !e.Constraint {
			e.Reversed = g.Node(e.To).Rank < g.Node(e.From).Rank
		}
		src, dst := g.Node(e.Src()), g.Node(e.Dst())
		if dst.Rank-src.Rank <= 1 {
			continue
		}

		chain := make([]dag.NodeID, 0, dst.Rank-src.Rank-1)
		prev := src.ID
		for r := src.Rank + 1; r < dst.Rank; r++ {
			v, err := g.AddNode(dag.Node{
				Kind:   dag.NodeKindVirtual,
				Width:  opts.VirtualWidth,
				Height: opts.VirtualHeight,
				Rank:   r,
				Origin: e.ID,
			})
			if err != nil {
				return created, fmt.Errorf("expand %s: %w", g.EdgeName(e.ID), err)
			}
			if err := addSegment(g, e, prev, v); err != nil {
				return created, err
			}
			chain = append(chain, v)
			prev = v
			created++
		}
		if err := addSegment(g, e, prev, dst.ID); err != nil {
			return created, err
		}
		e.Chain = chain
	}
	return created, nil
}

func addSegment(g *dag.Graph, e *dag.Edge, from, to dag.NodeID) error {
	if _, err := g.AddEdge(dag.Edge{
		From:       from,
		To:         to,
		Weight:     e.Weight,
		Minlen:     1,
		Constraint: true,
		Kind:       dag.EdgeKindSegment,
		Origin:     e.ID,
	}); err != nil {
		return fmt.Errorf("expand %s: %w", g.EdgeName(e.ID), err)
	}
	return nil
}

// ChainNodes returns the full node path of an edge in layout orientation:
// tail, virtual nodes, head.
func ChainNodes(g *dag.Graph, id dag.EdgeID) []dag.NodeID {
	e := g.Edge(id)
	path := make([]dag.NodeID, 0, len(e.Chain)+2)
	path = append(path, e.Src())
	path = append(path, e.Chain...)
	return append(path, e.Dst())
}
