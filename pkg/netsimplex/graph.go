package netsimplex

import "errors"

var (
	// ErrInfeasible is returned when the constraint graph has a directed
	// cycle, so no ranking satisfies every minlen.
	ErrInfeasible = errors.New("constraint graph contains a cycle")

	// ErrOverflow is returned when edge weights or lengths are too large to
	// be summed safely.
	ErrOverflow = errors.New("network simplex input out of range")
)

const (
	maxWeight = int64(1) << 40
	maxMinlen = 1 << 30
	maxRank   = 1 << 50
	maxTotal  = int64(1) << 60
)

// Edge is a constraint head - tail >= Minlen with cost Weight per unit of
// length.
type Edge struct {
	Tail, Head int
	Minlen     int
	Weight     int64
}

// Graph is the solver's input: nodes are the integers [0, NodeCount()).
type Graph struct {
	n     int
	edges []Edge
	out   [][]int
	in    [][]int
}

// NewGraph returns a graph with n nodes and no edges.
func NewGraph(n int) *Graph {
	return &Graph{n: n, out: make([][]int, n), in: make([][]int, n)}
}

// AddNode appends a node and returns its index.
func (g *Graph) AddNode() int {
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.n++
	return g.n - 1
}

// AddEdge appends the constraint rank(head) - rank(tail) >= minlen with the
// given weight and returns the edge index. Self-loops are ignored and
// return -1.
func (g *Graph) AddEdge(tail, head, minlen int, weight int64) int {
	if tail == head {
		return -1
	}
	id := len(g.edges)
	g.edges = append(g.edges, Edge{Tail: tail, Head: head, Minlen: minlen, Weight: weight})
	g.out[tail] = append(g.out[tail], id)
	g.in[head] = append(g.in[head], id)
	return id
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return g.n }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Edge returns edge i.
func (g *Graph) Edge(i int) Edge { return g.edges[i] }

// Cost returns the objective value of a ranking.
func (g *Graph) Cost(rank []int) int64 {
	var c int64
	for _, e := range g.edges {
		c += e.Weight * int64(rank[e.Head]-rank[e.Tail])
	}
	return c
}

// Feasible reports whether rank satisfies every edge's minlen.
func (g *Graph) Feasible(rank []int) bool {
	for _, e := range g.edges {
		if rank[e.Head]-rank[e.Tail] < e.Minlen {
			return false
		}
	}
	return true
}

func (g *Graph) check() error {
	var total int64
	for _, e := range g.edges {
		if e.Weight < 0 || e.Weight > maxWeight || e.Minlen < -maxMinlen || e.Minlen > maxMinlen {
			return ErrOverflow
		}
		total += e.Weight
		if total > maxTotal/int64(max(1, g.n)) {
			return ErrOverflow
		}
	}
	return nil
}
