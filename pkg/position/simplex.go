package position

import (
	stderrors "errors"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/netsimplex"
)

// simplexX solves x coordinates on the auxiliary constraint graph.
//
// Variables 0..n-1 are the layout nodes, followed by an anchor that every
// rank's leftmost node hangs from (keeping the graph connected) and one
// slack variable per aligned edge. Rank chains carry the separation
// constraints with zero weight; the two edges out of a slack variable cost
// omega*weight each, so the optimum places the slack variable at
// min(x(u), x(v)) and pays omega*weight*|x(u)-x(v)|.
func simplexX(g *dag.Graph, layers [][]dag.NodeID, m *metrics, opts Options) (int, bool, error) {
	ns := netsimplex.NewGraph(g.NodeCount())
	anchor := ns.AddNode()
	for _, l := range layers {
		if len(l) == 0 {
			continue
		}
		ns.AddEdge(anchor, int(l[0]), ceil(m.lw[l[0]]), 0)
		for i := 0; i+1 < len(l); i++ {
			ns.AddEdge(int(l[i]), int(l[i+1]), ceil(m.sep(l[i], l[i+1])), 0)
		}
	}
	for _, e := range alignEdges(g) {
		u, v := e.Src(), e.Dst()
		w := int64(e.Weight) * omega(g, u, v)
		if w == 0 {
			continue
		}
		s := ns.AddNode()
		ns.AddEdge(s, int(u), 0, w)
		ns.AddEdge(s, int(v), 0, w)
	}

	res, err := netsimplex.Solve(ns, netsimplex.Options{
		Balance: netsimplex.BalanceLeftRight,
		MaxIter: opts.MaxIter,
		Logger:  opts.Logger,
	})
	switch {
	case stderrors.Is(err, netsimplex.ErrOverflow):
		return 0, false, errors.Wrap(errors.ErrCodeNumericOverflow, err, "x coordinates out of range")
	case err != nil:
		return 0, false, errors.Wrap(errors.ErrCodeInternal, err, "solve x coordinates")
	}

	base := res.Rank[anchor]
	for _, n := range g.Nodes() {
		n.X = float64(res.Rank[n.ID] - base)
	}
	return res.Iterations, res.Capped, nil
}
