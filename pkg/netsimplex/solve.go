package netsimplex

import (
	"math"

	"github.com/charmbracelet/log"
)

// DefaultMaxIter bounds the number of pivots when Options.MaxIter is 0.
const DefaultMaxIter = 100_000

// Balance selects the post-optimization balancing pass.
type Balance int

const (
	// BalanceNone leaves the optimal solution as found.
	BalanceNone Balance = iota
	// BalanceTopBottom moves nodes whose in and out weights are equal to
	// the least populated rank in their feasible range. Used for ranking.
	BalanceTopBottom
	// BalanceLeftRight centers subtrees hanging off zero-cut tree edges
	// between their neighbours. Used for x-coordinates.
	BalanceLeftRight
)

// Options configures Solve.
type Options struct {
	Balance Balance
	// MaxIter bounds the number of pivots. 0 means DefaultMaxIter and a
	// negative value skips optimization, returning the longest-path ranking.
	MaxIter int
	// Logger receives a warning when MaxIter is reached. Nil disables
	// logging.
	Logger *log.Logger
}

// Result is the output of Solve.
type Result struct {
	Rank       []int
	Iterations int
	Cost       int64
	// Capped is set when optimization stopped at MaxIter.
	Capped bool
}

// Solve computes a minimum-cost feasible ranking of g.
func Solve(g *Graph, opts Options) (*Result, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	s := &solver{g: g, opts: opts}
	if err := s.initRank(); err != nil {
		return nil, err
	}

	res := &Result{}
	if opts.MaxIter >= 0 {
		maxIter := opts.MaxIter
		if maxIter == 0 {
			maxIter = DefaultMaxIter
		}
		s.feasibleTree()
		s.initCutValues()
		for {
			e := s.leaveEdge()
			if e < 0 {
				break
			}
			if res.Iterations >= maxIter {
				res.Capped = true
				if opts.Logger != nil {
					opts.Logger.Warn("network simplex iteration limit reached", "iterations", maxIter, "nodes", g.n)
				}
				break
			}
			f := s.enterEdge(e)
			if f < 0 {
				// unreachable for a connected tree; treat the tree as optimal
				break
			}
			s.update(e, f)
			res.Iterations++
		}
		if opts.Balance == BalanceLeftRight {
			s.balanceLeftRight()
		}
	}

	s.normalize()
	if opts.Balance == BalanceTopBottom {
		s.balanceTopBottom()
	}

	for _, r := range s.rank {
		if r > maxRank || r < -maxRank {
			return nil, ErrOverflow
		}
	}
	res.Rank = s.rank
	res.Cost = g.Cost(s.rank)
	return res, nil
}

type solver struct {
	g    *Graph
	opts Options

	rank    []int
	inTree  []bool
	cut     []int64
	treeAdj [][]int
	par     []int
	low     []int
	lim     []int
	comp    []int
	roots   []int
}

func (s *solver) slack(e int) int {
	ed := s.g.edges[e]
	return s.rank[ed.Head] - s.rank[ed.Tail] - ed.Minlen
}

func (s *solver) other(e, v int) int {
	ed := s.g.edges[e]
	if ed.Tail == v {
		return ed.Head
	}
	return ed.Tail
}

// initRank assigns longest-path ranks with Kahn's algorithm, processing
// ready nodes in index order.
func (s *solver) initRank() error {
	g := s.g
	s.rank = make([]int, g.n)
	indeg := make([]int, g.n)
	for _, e := range g.edges {
		indeg[e.Head]++
	}
	queue := make([]int, 0, g.n)
	for v := 0; v < g.n; v++ {
		if indeg[v] == 0 {
			queue = append(queue, v)
		}
	}
	seen := 0
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		seen++
		for _, e := range g.out[v] {
			ed := g.edges[e]
			if r := s.rank[v] + ed.Minlen; r > s.rank[ed.Head] {
				s.rank[ed.Head] = r
			}
			indeg[ed.Head]--
			if indeg[ed.Head] == 0 {
				queue = append(queue, ed.Head)
			}
		}
	}
	if seen != g.n {
		return ErrInfeasible
	}
	return nil
}

// feasibleTree grows one tight spanning tree per connected component.
func (s *solver) feasibleTree() {
	g := s.g
	s.inTree = make([]bool, len(g.edges))
	s.treeAdj = make([][]int, g.n)
	s.comp = make([]int, g.n)
	for v := range s.comp {
		s.comp[v] = -1
	}

	for start := 0; start < g.n; start++ {
		if s.comp[start] >= 0 {
			continue
		}
		c := len(s.roots)
		s.roots = append(s.roots, start)
		s.comp[start] = c
		members := []int{start}

		for {
			members = s.growTight(c, members)
			e, delta := s.minSlackIncident(c, members)
			if e < 0 {
				break
			}
			for _, v := range members {
				s.rank[v] += delta
			}
		}
	}
}

// growTight extends the tree of component c through tight edges,
// breadth-first in index order, and returns the enlarged member list.
func (s *solver) growTight(c int, members []int) []int {
	g := s.g
	for i := 0; i < len(members); i++ {
		v := members[i]
		for _, list := range [2][]int{g.out[v], g.in[v]} {
			for _, e := range list {
				w := s.other(e, v)
				if s.comp[w] >= 0 || s.slack(e) != 0 {
					continue
				}
				s.comp[w] = c
				s.addTreeEdge(e)
				members = append(members, w)
			}
		}
	}
	return members
}

// minSlackIncident finds the edge with exactly one endpoint in the tree of
// component c and minimum slack, and the rank shift for the tree that makes
// it tight. It returns -1 when the tree spans its component.
func (s *solver) minSlackIncident(c int, members []int) (int, int) {
	g := s.g
	best, bestSlack := -1, math.MaxInt
	for _, v := range members {
		for _, list := range [2][]int{g.out[v], g.in[v]} {
			for _, e := range list {
				if s.comp[s.other(e, v)] >= 0 {
					continue
				}
				sl := s.slack(e)
				if sl < bestSlack || (sl == bestSlack && e < best) {
					best, bestSlack = e, sl
				}
			}
		}
	}
	if best < 0 {
		return -1, 0
	}
	if s.comp[g.edges[best].Tail] == c {
		return best, bestSlack
	}
	return best, -bestSlack
}

func (s *solver) addTreeEdge(e int) {
	ed := s.g.edges[e]
	s.inTree[e] = true
	s.treeAdj[ed.Tail] = append(s.treeAdj[ed.Tail], e)
	s.treeAdj[ed.Head] = append(s.treeAdj[ed.Head], e)
}

func (s *solver) removeTreeEdge(e int) {
	ed := s.g.edges[e]
	s.inTree[e] = false
	for _, v := range [2]int{ed.Tail, ed.Head} {
		adj := s.treeAdj[v]
		for i, x := range adj {
			if x == e {
				s.treeAdj[v] = append(adj[:i], adj[i+1:]...)
				break
			}
		}
	}
}

// dfsRange assigns postorder numbers below v: lim(v) is v's own number and
// low(v) the smallest number in its subtree.
func (s *solver) dfsRange(v, parEdge, low int) int {
	s.par[v] = parEdge
	s.low[v] = low
	lim := low
	for _, e := range s.treeAdj[v] {
		if e != parEdge {
			lim = s.dfsRange(s.other(e, v), e, lim)
		}
	}
	s.lim[v] = lim
	return lim + 1
}

// inSubtree reports whether w lies in the tree below v.
func (s *solver) inSubtree(v, w int) bool {
	return s.low[v] <= s.lim[w] && s.lim[w] <= s.lim[v]
}

func (s *solver) initCutValues() {
	g := s.g
	s.par = make([]int, g.n)
	s.low = make([]int, g.n)
	s.lim = make([]int, g.n)
	s.cut = make([]int64, len(g.edges))

	next := 1
	for _, r := range s.roots {
		next = s.dfsRange(r, -1, next)
	}

	order := make([]int, g.n)
	for v := range order {
		order[s.lim[v]-1] = v
	}
	for _, v := range order {
		if s.par[v] >= 0 {
			s.cut[s.par[v]] = s.cutValue(s.par[v])
		}
	}
}

// cutValue computes the cut value of tree edge f from the cut values of
// the tree edges below it.
func (s *solver) cutValue(f int) int64 {
	g := s.g
	fe := g.edges[f]
	v, dir := fe.Head, -1
	if s.par[fe.Tail] == f {
		v, dir = fe.Tail, 1
	}
	var sum int64
	for _, list := range [2][]int{g.out[v], g.in[v]} {
		for _, e := range list {
			sum += s.edgeContribution(e, v, dir)
		}
	}
	return sum
}

func (s *solver) edgeContribution(e, v, dir int) int64 {
	ed := s.g.edges[e]
	w := s.other(e, v)
	var rv int64
	outside := !s.inSubtree(v, w)
	if outside {
		rv = ed.Weight
	} else {
		if s.inTree[e] {
			rv = s.cut[e]
		}
		rv -= ed.Weight
	}

	var d int
	if dir > 0 {
		d = -1
		if ed.Head == v {
			d = 1
		}
	} else {
		d = -1
		if ed.Tail == v {
			d = 1
		}
	}
	if outside {
		d = -d
	}
	if d < 0 {
		rv = -rv
	}
	return rv
}

// leaveEdge returns the tree edge with the most negative cut value, lowest
// index first, or -1 if none is negative.
func (s *solver) leaveEdge() int {
	best := -1
	var bestCut int64
	for e := range s.g.edges {
		if s.inTree[e] && s.cut[e] < 0 && (best < 0 || s.cut[e] < bestCut) {
			best, bestCut = e, s.cut[e]
		}
	}
	return best
}

// subtreeSide returns the endpoint of tree edge e that lies below it.
func (s *solver) subtreeSide(e int) int {
	ed := s.g.edges[e]
	if s.lim[ed.Tail] < s.lim[ed.Head] {
		return ed.Tail
	}
	return ed.Head
}

// enterEdge finds the non-tree edge that reconnects the two halves of the
// tree once e is removed, crossing the cut opposite to e, with minimum
// slack and lowest index on ties.
func (s *solver) enterEdge(e int) int {
	g := s.g
	v := s.subtreeSide(e)
	// When the subtree holds e's tail, the entering edge must point into
	// the subtree; when it holds e's head, out of it.
	into := v == g.edges[e].Tail
	best, bestSlack := -1, math.MaxInt
	for f, fe := range g.edges {
		if s.inTree[f] {
			continue
		}
		tailIn, headIn := s.inSubtree(v, fe.Tail), s.inSubtree(v, fe.Head)
		if s.comp[fe.Tail] != s.comp[v] || tailIn == headIn {
			continue
		}
		if into != headIn {
			continue
		}
		if sl := s.slack(f); sl < bestSlack {
			best, bestSlack = f, sl
		}
	}
	return best
}

// shiftSubtree adds delta to the rank of every node below v.
func (s *solver) shiftSubtree(v, delta int) {
	for w := range s.rank {
		if s.comp[w] == s.comp[v] && s.inSubtree(v, w) {
			s.rank[w] += delta
		}
	}
}

// update exchanges tree edge e for non-tree edge f.
func (s *solver) update(e, f int) {
	g := s.g
	v := s.subtreeSide(e)
	if delta := s.slack(f); delta > 0 {
		if s.inSubtree(v, g.edges[f].Tail) {
			s.shiftSubtree(v, delta)
		} else {
			s.shiftSubtree(v, -delta)
		}
	}

	cv := s.cut[e]
	fe := g.edges[f]
	lca := s.treeUpdate(fe.Tail, fe.Head, cv, true)
	s.treeUpdate(fe.Head, fe.Tail, cv, false)
	s.cut[f] = -cv
	s.cut[e] = 0

	s.removeTreeEdge(e)
	s.addTreeEdge(f)
	s.dfsRange(lca, s.par[lca], s.low[lca])
}

// treeUpdate walks from v toward the root until w is in v's subtree,
// adjusting the cut values on the way, and returns the last node reached.
func (s *solver) treeUpdate(v, w int, cv int64, dir bool) int {
	g := s.g
	for !s.inSubtree(v, w) {
		e := s.par[v]
		ed := g.edges[e]
		d := dir
		if v != ed.Tail {
			d = !dir
		}
		if d {
			s.cut[e] += cv
		} else {
			s.cut[e] -= cv
		}
		if s.lim[ed.Tail] > s.lim[ed.Head] {
			v = ed.Tail
		} else {
			v = ed.Head
		}
	}
	return v
}

// normalize shifts each component so its smallest rank is 0.
func (s *solver) normalize() {
	g := s.g
	if s.comp == nil {
		s.comp = components(g)
	}
	lows := map[int]int{}
	for v, c := range s.comp {
		if lo, ok := lows[c]; !ok || s.rank[v] < lo {
			lows[c] = s.rank[v]
		}
	}
	for v, c := range s.comp {
		s.rank[v] -= lows[c]
	}
}

func components(g *Graph) []int {
	comp := make([]int, g.n)
	for v := range comp {
		comp[v] = -1
	}
	c := 0
	for start := 0; start < g.n; start++ {
		if comp[start] >= 0 {
			continue
		}
		comp[start] = c
		stack := []int{start}
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, list := range [2][]int{g.out[v], g.in[v]} {
				for _, e := range list {
					ed := g.edges[e]
					w := ed.Head
					if w == v {
						w = ed.Tail
					}
					if comp[w] < 0 {
						comp[w] = c
						stack = append(stack, w)
					}
				}
			}
		}
		c++
	}
	return comp
}
