package position

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
)

// Strategy selects the x-coordinate algorithm.
type Strategy string

const (
	StrategySimplex  Strategy = "simplex"
	StrategyPriority Strategy = "priority"
)

// Defaults used when Options leave a field zero.
const (
	DefaultPriorityIterations = 8
	DefaultLoopSize           = 18.0
)

// Edge straightening factors for the auxiliary graph and the priority
// method: edges between virtual nodes pull hardest.
const (
	omegaRealReal       = 1
	omegaRealVirtual    = 2
	omegaVirtualVirtual = 8
)

// Options configures Assign.
type Options struct {
	Strategy Strategy
	RankSep  float64
	NodeSep  float64
	// LoopSize is the extra right half-width reserved per self-loop.
	LoopSize float64
	// MaxIter bounds network simplex pivots (0 = solver default).
	MaxIter int
	// PriorityIterations is the number of sweeps of the priority method.
	PriorityIterations int
	Logger             *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategySimplex
	}
	if o.PriorityIterations <= 0 {
		o.PriorityIterations = DefaultPriorityIterations
	}
	if o.LoopSize <= 0 {
		o.LoopSize = DefaultLoopSize
	}
	return o
}

// Result summarizes coordinate assignment.
type Result struct {
	// Bounds encloses every node box.
	Bounds     geom.Box
	Iterations int
	Capped     bool
}

// Assign writes X and Y to every node of g. Ranks and orders must be
// assigned; Node.Order within each rank must be a permutation.
func Assign(g *dag.Graph, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{Bounds: geom.EmptyBox()}
	if g.NodeCount() == 0 {
		return res, nil
	}

	layers := g.Layers()
	m := newMetrics(g, opts)
	assignY(g, layers, opts.RankSep)

	switch opts.Strategy {
	case StrategySimplex:
		iter, capped, err := simplexX(g, layers, m, opts)
		if err != nil {
			return nil, err
		}
		res.Iterations, res.Capped = iter, capped
	case StrategyPriority:
		res.Iterations = priorityX(g, layers, m, opts)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown positioning strategy %q", opts.Strategy)
	}

	if err := m.verify(g, layers); err != nil {
		return nil, err
	}
	for _, n := range g.Nodes() {
		if err := errors.ValidateCoord("node "+n.Name, n.X); err != nil {
			return nil, err
		}
		if err := errors.ValidateCoord("node "+n.Name, n.Y); err != nil {
			return nil, err
		}
		res.Bounds = res.Bounds.Union(n.Box())
	}

	if opts.Logger != nil {
		opts.Logger.Debug("assigned coordinates", "strategy", opts.Strategy,
			"iterations", res.Iterations, "width", res.Bounds.Width(), "height", res.Bounds.Height())
	}
	return res, nil
}

// assignY places rank 0 at y=0 and stacks the following ranks below it.
func assignY(g *dag.Graph, layers [][]dag.NodeID, rankSep float64) {
	y, prevHalf := 0.0, 0.0
	for r, l := range layers {
		half := 0.0
		for _, id := range l {
			half = max(half, g.Node(id).Height/2)
		}
		if r > 0 {
			y += prevHalf + rankSep + half
		}
		for _, id := range l {
			g.Node(id).Y = y
		}
		prevHalf = half
	}
}

// metrics holds per-node half-widths.
type metrics struct {
	lw, rw  []float64
	nodeSep float64
}

func newMetrics(g *dag.Graph, opts Options) *metrics {
	m := &metrics{
		lw:      make([]float64, g.NodeCount()),
		rw:      make([]float64, g.NodeCount()),
		nodeSep: opts.NodeSep,
	}
	for _, n := range g.Nodes() {
		m.lw[n.ID] = n.Width / 2
		m.rw[n.ID] = n.Width / 2
	}
	for _, e := range g.Edges() {
		if e.IsSelfLoop() && e.Kind == dag.EdgeKindReal {
			m.rw[e.From] += opts.LoopSize
		}
	}
	return m
}

// sep is the minimum center distance of u placed directly left of v.
func (m *metrics) sep(u, v dag.NodeID) float64 {
	return m.rw[u] + m.lw[v] + m.nodeSep
}

const sepTolerance = 1e-6

func (m *metrics) verify(g *dag.Graph, layers [][]dag.NodeID) error {
	for r, l := range layers {
		for i := 0; i+1 < len(l); i++ {
			u, v := g.Node(l[i]), g.Node(l[i+1])
			if v.X-u.X < m.sep(u.ID, v.ID)-sepTolerance {
				return errors.New(errors.ErrCodeInternal,
					"rank %d: %s and %s are %.2f apart, need %.2f", r, u.Name, v.Name, v.X-u.X, m.sep(u.ID, v.ID))
			}
		}
	}
	return nil
}

// omega returns the straightening factor of an edge between u and v.
func omega(g *dag.Graph, u, v dag.NodeID) int64 {
	uv, vv := g.Node(u).IsVirtual(), g.Node(v).IsVirtual()
	switch {
	case uv && vv:
		return omegaVirtualVirtual
	case uv || vv:
		return omegaRealVirtual
	default:
		return omegaRealReal
	}
}

// alignEdges returns the edges whose endpoints should be pulled together:
// layer edges and flat edges, excluding self-loops and chained originals.
func alignEdges(g *dag.Graph) []*dag.Edge {
	var res []*dag.Edge
	for _, e := range g.Edges() {
		if e.IsSelfLoop() || len(e.Chain) > 0 {
			continue
		}
		if span := g.Span(e.ID); span == 0 || span == 1 {
			res = append(res, e)
		}
	}
	return res
}

// packLeft places every rank contiguously from x=0 at minimum separation.
func packLeft(g *dag.Graph, layers [][]dag.NodeID, m *metrics) {
	for _, l := range layers {
		x := 0.0
		for i, id := range l {
			if i > 0 {
				x += m.sep(l[i-1], id)
			} else {
				x = m.lw[id]
			}
			g.Node(id).X = x
		}
	}
}

func ceil(v float64) int { return int(math.Ceil(v - sepTolerance)) }
