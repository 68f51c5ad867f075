package dag

import "slices"

// RankRange returns the smallest and largest rank over all nodes. An empty
// graph yields (0, -1).
func (g *Graph) RankRange() (lo, hi int) {
	if len(g.nodes) == 0 {
		return 0, -1
	}
	lo, hi = g.nodes[0].Rank, g.nodes[0].Rank
	for _, n := range g.nodes[1:] {
		lo = min(lo, n.Rank)
		hi = max(hi, n.Rank)
	}
	return lo, hi
}

// Layers groups nodes by rank and sorts each rank by (Order, ID). Ranks are
// assumed normalized so the smallest rank is 0; the result has one entry
// per rank from 0 to the largest, and empty ranks yield empty slices.
func (g *Graph) Layers() [][]NodeID {
	_, hi := g.RankRange()
	layers := make([][]NodeID, hi+1)
	for _, n := range g.nodes {
		if n.Rank < 0 {
			continue
		}
		layers[n.Rank] = append(layers[n.Rank], n.ID)
	}
	for _, l := range layers {
		slices.SortFunc(l, func(a, b NodeID) int {
			if d := g.nodes[a].Order - g.nodes[b].Order; d != 0 {
				return d
			}
			return int(a - b)
		})
	}
	return layers
}

// SetLayers writes rank and order fields from a layer slice: node
// layers[r][i] gets Rank r and Order i.
func (g *Graph) SetLayers(layers [][]NodeID) {
	for r, l := range layers {
		for i, id := range l {
			g.nodes[id].Rank = r
			g.nodes[id].Order = i
		}
	}
}

// NormalizeRanks shifts all ranks so the smallest is 0.
func (g *Graph) NormalizeRanks() {
	lo, _ := g.RankRange()
	if lo == 0 {
		return
	}
	for _, n := range g.nodes {
		n.Rank -= lo
	}
}

// Span returns rank(Dst) - rank(Src) for an edge in layout orientation.
func (g *Graph) Span(id EdgeID) int {
	e := g.edges[id]
	return g.nodes[e.Dst()].Rank - g.nodes[e.Src()].Rank
}

// LayerEdges returns the edges that connect rank-adjacent nodes after
// virtual-node expansion: segments and unit-span real edges without a
// chain. Flat edges and self-loops are excluded.
func (g *Graph) LayerEdges() []EdgeID {
	var res []EdgeID
	for _, e := range g.edges {
		if g.IsLayerEdge(e.ID) {
			res = append(res, e.ID)
		}
	}
	return res
}

// IsLayerEdge reports whether the edge is part of the layered view: it
// joins two nodes on consecutive ranks and is not represented by a chain.
func (g *Graph) IsLayerEdge(id EdgeID) bool {
	e := g.edges[id]
	if e.IsSelfLoop() || len(e.Chain) > 0 {
		return false
	}
	return g.Span(id) == 1
}

// Down returns the layer edges leaving n toward the next rank.
func (g *Graph) Down(n NodeID) []EdgeID {
	var res []EdgeID
	for _, id := range g.Out(n) {
		if g.IsLayerEdge(id) {
			res = append(res, id)
		}
	}
	return res
}

// Up returns the layer edges entering n from the previous rank.
func (g *Graph) Up(n NodeID) []EdgeID {
	var res []EdgeID
	for _, id := range g.In(n) {
		if g.IsLayerEdge(id) {
			res = append(res, id)
		}
	}
	return res
}

// PosMap maps each node ID in ids to its index.
func PosMap(ids []NodeID) map[NodeID]int {
	m := make(map[NodeID]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}
