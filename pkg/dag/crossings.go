package dag

import "slices"

// LayerIndex caches the layer-edge neighbours of every node so crossing
// counts do not walk edge lists repeatedly. It must be rebuilt when edges
// or ranks change; node order changes do not invalidate it.
type LayerIndex struct {
	up   [][]NodeID
	down [][]NodeID
}

// NewLayerIndex builds the neighbour lists of g's layer edges. Parallel
// edges appear once per edge.
func NewLayerIndex(g *Graph) *LayerIndex {
	ix := &LayerIndex{
		up:   make([][]NodeID, g.NodeCount()),
		down: make([][]NodeID, g.NodeCount()),
	}
	for _, id := range g.LayerEdges() {
		e := g.Edge(id)
		s, d := e.Src(), e.Dst()
		ix.down[s] = append(ix.down[s], d)
		ix.up[d] = append(ix.up[d], s)
	}
	return ix
}

// Up returns the neighbours of n on the rank above.
func (ix *LayerIndex) Up(n NodeID) []NodeID { return ix.up[n] }

// Down returns the neighbours of n on the rank below.
func (ix *LayerIndex) Down(n NodeID) []NodeID { return ix.down[n] }

// CountCrossings returns the total number of edge crossings between every
// pair of consecutive layers.
func CountCrossings(ix *LayerIndex, layers [][]NodeID) int {
	crossings := 0
	for r := 0; r+1 < len(layers); r++ {
		crossings += CountLayerCrossings(ix, layers[r], layers[r+1])
	}
	return crossings
}

// CountLayerCrossings counts crossings of the layer edges between upper and
// lower using a Fenwick tree, in O(E log V) for E edges and V nodes in the
// lower layer.
//
// Two edges (u1,v1) and (u2,v2) cross if and only if:
//
//	pos(u1) < pos(u2) AND pos(v1) > pos(v2)
//
// which is the number of inversions in the sequence of lower positions when
// edges are sorted by upper position. Parallel edges count separately.
func CountLayerCrossings(ix *LayerIndex, upper, lower []NodeID) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}

	lowerPos := PosMap(lower)

	type edge struct{ upper, lower int }
	edges := make([]edge, 0, len(upper)*2)
	for i, n := range upper {
		for _, child := range ix.down[n] {
			if pos, ok := lowerPos[child]; ok {
				edges = append(edges, edge{i, pos})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}

	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, total := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += total - lessOrEqual

		total++
		for idx := e.lower + 1; idx < len(fenwick); idx += idx & (-idx) {
			fenwick[idx]++
		}
	}
	return crossings
}

// CountPairCrossings counts the crossings between the layer edges of two
// nodes of the same rank when left is placed before right. If useParents
// is true the edges to the rank above are considered, otherwise those to
// the rank below. pos maps every node to its index within its rank.
func CountPairCrossings(ix *LayerIndex, left, right NodeID, pos []int, useParents bool) int {
	lnbr, rnbr := ix.down[left], ix.down[right]
	if useParents {
		lnbr, rnbr = ix.up[left], ix.up[right]
	}

	crossings := 0
	for _, ln := range lnbr {
		lp := pos[ln]
		for _, rn := range rnbr {
			if lp > pos[rn] {
				crossings++
			}
		}
	}
	return crossings
}

// OrderIndex returns a slice mapping each node to its index within its
// layer, sized for g.
func OrderIndex(g *Graph, layers [][]NodeID) []int {
	pos := make([]int, g.NodeCount())
	for _, l := range layers {
		for i, n := range l {
			pos[n] = i
		}
	}
	return pos
}
