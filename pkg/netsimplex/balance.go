package netsimplex

// balanceTopBottom moves every node whose incoming and outgoing weights are
// equal, and whose position therefore does not affect the cost, to the
// least populated rank within its feasible range. Ties keep the current
// rank, then prefer the lowest rank. Nodes are visited in index order.
func (s *solver) balanceTopBottom() {
	g := s.g
	maxR := 0
	for _, r := range s.rank {
		maxR = max(maxR, r)
	}
	count := make([]int, maxR+1)
	for _, r := range s.rank {
		count[r]++
	}

	for v := 0; v < g.n; v++ {
		var inW, outW int64
		low, high := 0, maxR
		for _, e := range g.in[v] {
			ed := g.edges[e]
			inW += ed.Weight
			low = max(low, s.rank[ed.Tail]+ed.Minlen)
		}
		for _, e := range g.out[v] {
			ed := g.edges[e]
			outW += ed.Weight
			high = min(high, s.rank[ed.Head]-ed.Minlen)
		}
		if inW != outW || low >= high {
			continue
		}

		cur := s.rank[v]
		count[cur]--
		choice := cur
		for r := low; r <= high; r++ {
			if count[r] < count[choice] {
				choice = r
			}
		}
		count[choice]++
		s.rank[v] = choice
	}
}

// balanceLeftRight centers the subtree hanging off each zero-cut tree edge
// between its two tightest neighbours. Moving it is cost-neutral since the
// cut value is zero.
func (s *solver) balanceLeftRight() {
	g := s.g
	for e := range g.edges {
		if !s.inTree[e] || s.cut[e] != 0 {
			continue
		}
		f := s.enterEdge(e)
		if f < 0 {
			continue
		}
		delta := s.slack(f)
		if delta <= 1 {
			continue
		}
		v := s.subtreeSide(e)
		if s.inSubtree(v, g.edges[f].Tail) {
			s.shiftSubtree(v, delta/2)
		} else {
			s.shiftSubtree(v, -delta/2)
		}
	}
}
