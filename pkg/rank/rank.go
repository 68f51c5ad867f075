// Package rank assigns integer ranks to the nodes of a layout graph by
// solving the layering problem with network simplex.
//
// Explicit rank constraints collapse each same/min/max/source/sink set to
// one solver variable. Parallel edges between the same pair of variables
// are merged (weights summed, largest minlen kept), and min/max sets are
// pinned to the extreme ranks through zero-weight edges to every other
// variable. Edges with Constraint=false, self-loops and edges inside a
// rank set do not constrain ranking.
package rank

import (
	stderrors "errors"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/dag/transform"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/netsimplex"
)

// Mode selects the ranking algorithm.
type Mode string

const (
	// ModeSimplex minimizes total weighted edge length (default).
	ModeSimplex Mode = "simplex"
	// ModeLongestPath places every node at the length of the longest path
	// from a source. Much faster on very large graphs, never optimal.
	ModeLongestPath Mode = "longest-path"
)

// Options configures Assign.
type Options struct {
	Mode Mode
	// MaxIter bounds network simplex pivots; 0 uses the solver default.
	MaxIter int
	// Balance spreads cost-neutral nodes over sparsely populated ranks.
	Balance bool
	Logger  *log.Logger
}

// Result summarizes a ranking.
type Result struct {
	Ranks      int
	Iterations int
	Cost       int64
	Capped     bool
}

// Assign writes a rank to every node of g. The constraint edges of g must
// be acyclic in layout orientation, which [transform.Acyclify] ensures.
func Assign(g *dag.Graph, opts Options) (*Result, error) {
	sets := transform.NewRankSets(g)
	ns, index := build(g, sets)

	sopts := netsimplex.Options{MaxIter: opts.MaxIter, Logger: opts.Logger}
	if opts.Mode == ModeLongestPath {
		sopts.MaxIter = -1
	}
	if opts.Balance {
		sopts.Balance = netsimplex.BalanceTopBottom
	}

	sol, err := netsimplex.Solve(ns, sopts)
	switch {
	case stderrors.Is(err, netsimplex.ErrInfeasible):
		return nil, errors.Wrap(errors.ErrCodeInfeasible, err, "rank assignment")
	case stderrors.Is(err, netsimplex.ErrOverflow):
		return nil, errors.Wrap(errors.ErrCodeNumericOverflow, err, "rank assignment")
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "rank assignment")
	}

	for _, n := range g.Nodes() {
		n.Rank = sol.Rank[index[sets.Find(n.ID)]]
	}
	g.NormalizeRanks()
	_, hi := g.RankRange()

	if opts.Logger != nil {
		opts.Logger.Debug("assigned ranks", "ranks", hi+1, "variables", ns.NodeCount(),
			"constraints", ns.EdgeCount(), "iterations", sol.Iterations, "cost", sol.Cost)
	}
	return &Result{Ranks: hi + 1, Iterations: sol.Iterations, Cost: sol.Cost, Capped: sol.Capped}, nil
}

type pair struct{ tail, head int }

// build maps rank-set representatives to solver variables in node ID
// order and translates edges and set constraints.
func build(g *dag.Graph, sets *transform.RankSets) (*netsimplex.Graph, map[dag.NodeID]int) {
	index := make(map[dag.NodeID]int)
	var reps []dag.NodeID
	for _, n := range g.Nodes() {
		if rep := sets.Find(n.ID); rep == n.ID {
			index[rep] = len(reps)
			reps = append(reps, rep)
		}
	}

	type merged struct {
		minlen int
		weight int64
	}
	var order []pair
	agg := make(map[pair]*merged)
	for _, e := range g.Edges() {
		if !e.Constraint || e.IsSelfLoop() {
			continue
		}
		t, h := index[sets.Find(e.Src())], index[sets.Find(e.Dst())]
		if t == h {
			continue
		}
		p := pair{t, h}
		m, ok := agg[p]
		if !ok {
			m = &merged{minlen: e.Minlen}
			agg[p] = m
			order = append(order, p)
		}
		m.minlen = max(m.minlen, e.Minlen)
		m.weight += int64(e.Weight)
	}

	ns := netsimplex.NewGraph(len(reps))
	for _, p := range order {
		ns.AddEdge(p.tail, p.head, agg[p].minlen, agg[p].weight)
	}

	for _, rep := range reps {
		v := index[rep]
		switch {
		case sets.IsMin(rep):
			gap := 0
			if sets.Kind(rep) == dag.RankSource {
				gap = 1
			}
			for _, other := range reps {
				if other != rep && !sets.IsMin(other) {
					ns.AddEdge(v, index[other], gap, 0)
				}
			}
		case sets.IsMax(rep):
			gap := 0
			if sets.Kind(rep) == dag.RankSink {
				gap = 1
			}
			for _, other := range reps {
				if other != rep && !sets.IsMax(other) {
					ns.AddEdge(index[other], v, gap, 0)
				}
			}
		}
	}
	return ns, index
}
