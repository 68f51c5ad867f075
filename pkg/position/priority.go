package position

import (
	"math"
	"slices"

	"github.com/matzehuels/stratum/pkg/dag"
)

type neighbour struct {
	id dag.NodeID
	w  float64
}

// priorityX runs the priority method: starting from a left-packed layout it
// alternates downward sweeps (each rank pulled toward the rank above) and
// upward sweeps for opts.PriorityIterations rounds.
func priorityX(g *dag.Graph, layers [][]dag.NodeID, m *metrics, opts Options) int {
	packLeft(g, layers, m)

	up := make([][]neighbour, g.NodeCount())
	down := make([][]neighbour, g.NodeCount())
	for _, e := range alignEdges(g) {
		if g.Span(e.ID) != 1 {
			continue
		}
		u, v := e.Src(), e.Dst()
		w := float64(int64(e.Weight) * omega(g, u, v))
		down[u] = append(down[u], neighbour{v, w})
		up[v] = append(up[v], neighbour{u, w})
	}

	for it := 0; it < opts.PriorityIterations; it++ {
		if it%2 == 0 {
			for r := 1; r < len(layers); r++ {
				placeRank(g, layers[r], up, m)
			}
		} else {
			for r := len(layers) - 2; r >= 0; r-- {
				placeRank(g, layers[r], down, m)
			}
		}
	}
	return opts.PriorityIterations
}

// placeRank moves the nodes of one rank toward the weighted mean of their
// reference neighbours. Nodes are placed in priority order (virtual nodes,
// then heavier total weight, then leftmost); each is clamped so that the
// nodes already placed on either side, and every unplaced node between,
// still fit at minimum separation.
func placeRank(g *dag.Graph, l []dag.NodeID, nbrs [][]neighbour, m *metrics) {
	k := len(l)
	if k == 0 {
		return
	}
	prefix := make([]float64, k)
	for i := 1; i < k; i++ {
		prefix[i] = prefix[i-1] + m.sep(l[i-1], l[i])
	}

	desired := make([]float64, k)
	weight := make([]float64, k)
	for i, id := range l {
		desired[i] = g.Node(id).X
		sum := 0.0
		for _, nb := range nbrs[id] {
			sum += g.Node(nb.id).X * nb.w
			weight[i] += nb.w
		}
		if weight[i] > 0 {
			desired[i] = sum / weight[i]
		}
	}

	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int {
		va, vb := g.Node(l[a]).IsVirtual(), g.Node(l[b]).IsVirtual()
		switch {
		case va != vb:
			if va {
				return -1
			}
			return 1
		case weight[a] != weight[b]:
			if weight[a] > weight[b] {
				return -1
			}
			return 1
		}
		return a - b
	})

	placed := make([]bool, k)
	for _, i := range idx {
		lo, hi := math.Inf(-1), math.Inf(1)
		for j := i - 1; j >= 0; j-- {
			if placed[j] {
				lo = g.Node(l[j]).X + prefix[i] - prefix[j]
				break
			}
		}
		for j := i + 1; j < k; j++ {
			if placed[j] {
				hi = g.Node(l[j]).X - (prefix[j] - prefix[i])
				break
			}
		}
		g.Node(l[i]).X = min(max(desired[i], lo), hi)
		placed[i] = true
	}
}
