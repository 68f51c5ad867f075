package ordering

import (
	"math"
	"slices"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
)

// Order permutes the nodes of every rank of g to reduce crossings and
// writes the committed order to Node.Order. Ranks must be normalized so
// the smallest is 0, and long edges must already be expanded into chains.
//
// The run has three passes. Passes 0 and 1 start from a breadth-first
// order seeded at the top and at the bottom of the graph respectively and
// polish it for a few iterations. Pass 2 continues from the best order seen
// for up to MaxIter iterations. A pass ends early after MinQuit iterations
// without an improvement below Convergence times the best count, or when
// no crossings remain.
func (m *Median) Order(g *dag.Graph) (*Result, error) {
	if g.NodeCount() == 0 {
		return &Result{}, nil
	}
	if lo, _ := g.RankRange(); lo < 0 {
		return nil, errors.New(errors.ErrCodeInternal, "ordering: ranks not normalized (min rank %d)", lo)
	}

	s := newState(g)
	res := &Result{Initial: math.MaxInt}

	var best [][]dag.NodeID
	bestCross := math.MaxInt
	cur := 0
	minQuit, conv := m.minQuit(), m.convergence()

	for pass := 0; pass <= 2; pass++ {
		limit := min(initialPassIter, m.maxIter())
		if pass <= 1 {
			s.build(pass == 0)
			cur = s.crossings()
			res.Initial = min(res.Initial, cur)
			if cur <= bestCross {
				best, bestCross = s.save(), cur
			}
		} else {
			limit = m.maxIter()
			if cur > bestCross {
				s.restore(best)
			}
			cur = bestCross
		}

		trying := 0
		for iter := 0; iter < limit; iter++ {
			if trying >= minQuit || cur == 0 {
				break
			}
			trying++
			s.step(iter)
			res.Iterations++
			if cur = s.crossings(); cur <= bestCross {
				best = s.save()
				if float64(cur) < conv*float64(bestCross) {
					trying = 0
				}
				bestCross = cur
			}
		}
		m.debug("ordering pass", "pass", pass, "crossings", bestCross)
		if cur == 0 {
			break
		}
	}

	if cur > bestCross {
		s.restore(best)
	}
	if bestCross > 0 {
		s.transpose(false)
		bestCross = s.crossings()
	}

	g.SetLayers(s.layers)
	res.Crossings = bestCross
	m.debug("ordering done", "initial", res.Initial, "crossings", res.Crossings, "iterations", res.Iterations)
	return res, nil
}

// state is the working order of one Order call.
type state struct {
	g      *dag.Graph
	ix     *dag.LayerIndex
	layers [][]dag.NodeID
	pos    []int
	// out and in hold layer and flat neighbours in layout orientation, used
	// for the breadth-first initial order.
	out, in   [][]dag.NodeID
	candidate []bool
}

func newState(g *dag.Graph) *state {
	s := &state{
		g:      g,
		ix:     dag.NewLayerIndex(g),
		layers: g.Layers(),
		pos:    make([]int, g.NodeCount()),
		out:    make([][]dag.NodeID, g.NodeCount()),
		in:     make([][]dag.NodeID, g.NodeCount()),
	}
	s.candidate = make([]bool, len(s.layers))
	for _, e := range g.Edges() {
		if e.IsSelfLoop() || len(e.Chain) > 0 {
			continue
		}
		if span := g.Span(e.ID); span != 0 && span != 1 {
			continue
		}
		src, dst := e.Src(), e.Dst()
		s.out[src] = append(s.out[src], dst)
		s.in[dst] = append(s.in[dst], src)
	}
	s.reindex()
	return s
}

func (s *state) reindex() {
	for _, l := range s.layers {
		for i, n := range l {
			s.pos[n] = i
		}
	}
}

func (s *state) crossings() int {
	return dag.CountCrossings(s.ix, s.layers)
}

func (s *state) save() [][]dag.NodeID {
	cp := make([][]dag.NodeID, len(s.layers))
	for r, l := range s.layers {
		cp[r] = slices.Clone(l)
	}
	return cp
}

func (s *state) restore(saved [][]dag.NodeID) {
	for r, l := range saved {
		copy(s.layers[r], l)
	}
	s.reindex()
}

// build lays every rank out in breadth-first discovery order. Downward
// builds start at nodes without predecessors, upward builds at nodes
// without successors; both visit start nodes in NodeID order so each
// connected component is packed to the right of the previous one.
func (s *state) build(down bool) {
	for r := range s.layers {
		s.layers[r] = s.layers[r][:0]
	}
	n := s.g.NodeCount()
	visited := make([]bool, n)
	queue := make([]dag.NodeID, 0, n)

	first, second := s.out, s.in
	if !down {
		first, second = s.in, s.out
	}

	visit := func(start dag.NodeID) {
		visited[start] = true
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			r := s.g.Node(v).Rank
			s.layers[r] = append(s.layers[r], v)
			for _, nbrs := range [][]dag.NodeID{first[v], second[v]} {
				for _, w := range nbrs {
					if !visited[w] {
						visited[w] = true
						queue = append(queue, w)
					}
				}
			}
		}
	}

	for id := 0; id < n; id++ {
		v := dag.NodeID(id)
		if visited[v] {
			continue
		}
		if down && len(s.ix.Up(v)) > 0 || !down && len(s.ix.Down(v)) > 0 {
			continue
		}
		visit(v)
	}
	for id := 0; id < n; id++ {
		if !visited[id] {
			visit(dag.NodeID(id))
		}
	}
	s.reindex()
}

// step runs one median sweep followed by a transpose pass. Even iterations
// sweep downward, odd ones upward; iterations 0,1 (mod 4) exchange nodes
// with equal medians and keep equal transpose pairs, 2,3 do the opposite.
func (s *state) step(iter int) {
	reverse := iter%4 < 2
	if iter%2 == 0 {
		for r := 1; r < len(s.layers); r++ {
			s.medianSort(r, true, reverse)
		}
	} else {
		for r := len(s.layers) - 2; r >= 0; r-- {
			s.medianSort(r, false, reverse)
		}
	}
	s.transpose(!reverse)
}

// medianSort reorders rank r by the median position of each node's
// neighbours on the rank above (useParents) or below. Nodes without such
// neighbours keep their slot.
func (s *state) medianSort(r int, useParents, reverse bool) {
	layer := s.layers[r]
	if len(layer) < 2 {
		return
	}

	type item struct {
		id  dag.NodeID
		val float64
		at  int
	}
	var movable []item
	var slots []int
	var buf []int
	for i, v := range layer {
		nbrs := s.ix.Down(v)
		if useParents {
			nbrs = s.ix.Up(v)
		}
		if len(nbrs) == 0 {
			continue
		}
		buf = buf[:0]
		for _, w := range nbrs {
			buf = append(buf, s.pos[w])
		}
		slices.Sort(buf)
		movable = append(movable, item{id: v, val: medianValue(buf), at: i})
		slots = append(slots, i)
	}

	slices.SortStableFunc(movable, func(a, b item) int {
		switch {
		case a.val < b.val:
			return -1
		case a.val > b.val:
			return 1
		case reverse:
			return b.at - a.at
		default:
			return a.at - b.at
		}
	})
	for k, it := range movable {
		layer[slots[k]] = it.id
		s.pos[it.id] = slots[k]
	}
}

// medianValue returns the weighted median of sorted positions: the middle
// element for odd counts, the mean for two, and for larger even counts an
// interpolation of the two middle elements biased toward the side whose
// positions are packed more tightly.
func medianValue(ps []int) float64 {
	n := len(ps)
	switch {
	case n == 0:
		return -1
	case n == 1:
		return float64(ps[0])
	case n == 2:
		return float64(ps[0]+ps[1]) / 2
	case n%2 == 1:
		return float64(ps[n/2])
	}
	lm, rm := n/2-1, n/2
	lspan := float64(ps[lm] - ps[0])
	rspan := float64(ps[n-1] - ps[rm])
	if lspan+rspan == 0 {
		return float64(ps[lm]+ps[rm]) / 2
	}
	return (float64(ps[lm])*rspan + float64(ps[rm])*lspan) / (lspan + rspan)
}

// transpose swaps adjacent nodes while doing so lowers the crossing count.
// With reverse set, pairs that cross but would not improve are swapped as
// well, which lets the search leave plateaus. The loop ends once a full
// round gains less than one crossing.
func (s *state) transpose(reverse bool) {
	for r := range s.candidate {
		s.candidate[r] = true
	}
	for {
		delta := 0
		for r := range s.layers {
			if s.candidate[r] {
				delta += s.transposeRank(r, reverse)
			}
		}
		if delta < 1 {
			return
		}
	}
}

func (s *state) transposeRank(r int, reverse bool) int {
	s.candidate[r] = false
	layer := s.layers[r]
	gain := 0
	for i := 0; i+1 < len(layer); i++ {
		v, w := layer[i], layer[i+1]
		c0, c1 := 0, 0
		if r > 0 {
			c0 += dag.CountPairCrossings(s.ix, v, w, s.pos, true)
			c1 += dag.CountPairCrossings(s.ix, w, v, s.pos, true)
		}
		if r+1 < len(s.layers) {
			c0 += dag.CountPairCrossings(s.ix, v, w, s.pos, false)
			c1 += dag.CountPairCrossings(s.ix, w, v, s.pos, false)
		}
		if c1 < c0 || (c0 > 0 && reverse && c1 == c0) {
			layer[i], layer[i+1] = w, v
			s.pos[v], s.pos[w] = i+1, i
			gain += c0 - c1
			s.candidate[r] = true
			if r > 0 {
				s.candidate[r-1] = true
			}
			if r+1 < len(s.layers) {
				s.candidate[r+1] = true
			}
		}
	}
	return gain
}

func (m *Median) debug(msg string, kv ...any) {
	if m.Logger != nil {
		m.Logger.Debug(msg, kv...)
	}
}
