package layout

import (
	"context"
	stderrors "errors"
	"io"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/dag/transform"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
	"github.com/matzehuels/stratum/pkg/observability"
	"github.com/matzehuels/stratum/pkg/position"
	"github.com/matzehuels/stratum/pkg/rank"
	"github.com/matzehuels/stratum/pkg/spline"
)

// Stage names reported to observability hooks.
const (
	StageAcyclify = "acyclify"
	StageRank     = "rank"
	StageExpand   = "expand"
	StageOrder    = "order"
	StagePosition = "position"
	StageRoute    = "route"
)

// Hierarchical is the dot engine: layered layout with network simplex
// ranking, median ordering and spline routing, recursing over clusters.
type Hierarchical struct{}

func (Hierarchical) Name() string { return EngineDot }

// Layout lays out g in place. g must contain only input nodes and edges;
// nodes must carry their final sizes. On error g's positions are
// unspecified but its topology is unchanged.
func (Hierarchical) Layout(ctx context.Context, g *dag.Graph, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := Validate(g); err != nil {
		return nil, err
	}

	s := newSession(ctx, g, opts)
	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, EngineDot, g.NodeCount())
	start := time.Now()

	bounds, err := s.run()

	s.stats.Duration = time.Since(start)
	hooks.OnLayoutComplete(ctx, EngineDot, s.stats.Duration, err)
	if err != nil {
		s.logger.Error("layout failed", "error", err)
		return nil, err
	}

	s.logger.Debug("layout complete", "nodes", g.NodeCount(), "edges", g.EdgeCount(),
		"clusters", g.ClusterCount(), "crossings", s.stats.Crossings, "elapsed", s.stats.Duration)
	return &Result{RunID: s.id, Bounds: bounds, Stats: s.stats}, nil
}

// Validate checks that g can be laid out: the cluster tree is a tree, every
// node's clusters nest, weights, minlens and sizes are in range and the
// graph holds no layout-synthesized elements. It resolves cluster
// membership as a side effect.
func Validate(g *dag.Graph) error {
	if err := g.Validate(); err != nil {
		if stderrors.Is(err, dag.ErrClusterCycle) || stderrors.Is(err, dag.ErrClusterConflict) ||
			stderrors.Is(err, dag.ErrNegativeWeight) || stderrors.Is(err, dag.ErrNegativeMinlen) {
			return errors.Wrap(errors.ErrCodeInvalidTopology, err, "invalid graph")
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid graph")
	}
	for _, n := range g.Nodes() {
		if n.Kind != dag.NodeKindReal {
			return errors.New(errors.ErrCodeInvalidInput, "node %q is a %s node", n.Name, n.Kind)
		}
		if err := errors.ValidateSize("width of node "+n.Name, n.Width); err != nil {
			return err
		}
		if err := errors.ValidateSize("height of node "+n.Name, n.Height); err != nil {
			return err
		}
	}
	for _, e := range g.Edges() {
		if e.Kind != dag.EdgeKindReal {
			return errors.New(errors.ErrCodeInvalidInput, "edge %s is a chain segment", g.EdgeName(e.ID))
		}
		if err := errors.ValidateWeight(e.Weight); err != nil {
			return err
		}
		if err := errors.ValidateMinlen(e.Minlen); err != nil {
			return err
		}
	}
	for _, c := range g.Clusters() {
		if err := errors.ValidateSize("margin of cluster "+c.Name, c.Margin); err != nil {
			return err
		}
		if err := errors.ValidateSize("label height of cluster "+c.Name, c.LabelHeight); err != nil {
			return err
		}
	}
	return nil
}

// session is the state of one layout run. Nothing in it outlives the run.
type session struct {
	ctx    context.Context
	id     string
	g      *dag.Graph
	opts   Options
	tree   *tree
	logger *log.Logger
	hooks  observability.LayoutHooks

	// charts holds the routing geometry of every finished level, by slot.
	// Siblings laid out concurrently write disjoint slots.
	charts []*spline.Chart

	mu    sync.Mutex
	stats Stats
}

func newSession(ctx context.Context, g *dag.Graph, opts Options) *session {
	id := uuid.NewString()
	base := opts.Logger
	if base == nil {
		base = log.New(io.Discard)
	}
	return &session{
		ctx:    ctx,
		id:     id,
		g:      g,
		opts:   opts,
		tree:   newTree(g),
		logger: base.WithPrefix("layout " + id[:8]),
		hooks:  observability.Layout(),
		charts: make([]*spline.Chart, g.ClusterCount()+1),
	}
}

func (s *session) run() (geom.Box, error) {
	transposed := s.opts.RankDir.Transposed()
	if transposed {
		position.SwapSizes(s.g)
	}
	for _, e := range s.g.Edges() {
		e.Points, e.HeadArrow, e.TailArrow, e.Reversed = nil, nil, nil, false
	}

	bounds, err := s.layoutCluster(dag.NoCluster)
	if err != nil {
		if transposed {
			position.SwapSizes(s.g)
		}
		return geom.Box{}, err
	}
	s.stats.Ranks = s.globalRanks()
	return position.Rotate(s.g, s.opts.RankDir, bounds), nil
}

// rankTolerance merges rank center lines of different levels that meet
// at the same height.
const rankTolerance = 1e-6

// globalRanks renumbers the level-local ranks of all input nodes by the
// height of their rank's center line, counting every rank of every level.
// Rank order then follows the vertical order of the drawing across
// cluster boundaries, and spans within a level never shrink. It returns
// the number of distinct ranks.
func (s *session) globalRanks() int {
	var ys []float64
	for _, ch := range s.charts {
		if ch == nil {
			continue
		}
		for _, b := range ch.Bands {
			if !math.IsNaN(b.Y) {
				ys = append(ys, b.Y)
			}
		}
	}
	slices.Sort(ys)
	ys = slices.CompactFunc(ys, func(a, b float64) bool { return b-a < rankTolerance })

	for _, n := range s.g.Nodes() {
		y := s.charts[slot(n.Cluster)].Bands[n.Rank].Y
		n.Rank, _ = slices.BinarySearchFunc(ys, y, func(e, t float64) int {
			switch {
			case e < t-rankTolerance:
				return -1
			case e > t+rankTolerance:
				return 1
			}
			return 0
		})
	}
	return len(ys)
}

// layoutCluster lays out the subtree of c and leaves it normalized so that
// its box starts at the origin.
func (s *session) layoutCluster(c dag.ClusterID) (geom.Box, error) {
	if err := s.layoutChildren(s.tree.children[slot(c)]); err != nil {
		return geom.Box{}, err
	}
	return s.layoutLevel(c)
}

// layoutChildren lays out sibling clusters, concurrently when enabled.
// Errors are reported in sibling order regardless of completion order.
func (s *session) layoutChildren(kids []dag.ClusterID) error {
	if s.opts.Parallel < 2 || len(kids) < 2 {
		for _, k := range kids {
			if _, err := s.layoutCluster(k); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(kids))
	var eg errgroup.Group
	eg.SetLimit(s.opts.Parallel)
	for i, k := range kids {
		eg.Go(func() error {
			_, errs[i] = s.layoutCluster(k)
			return nil
		})
	}
	_ = eg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *session) levelName(c dag.ClusterID) string {
	if c == dag.NoCluster {
		return ""
	}
	return s.g.Cluster(c).Name
}

func (s *session) stage(name, level string, fn func() error) error {
	s.hooks.OnStageStart(s.ctx, name, level)
	start := time.Now()
	err := fn()
	s.hooks.OnStageComplete(s.ctx, name, level, time.Since(start), err)
	return err
}

// levelStats is what one level contributes to Stats.
type levelStats struct {
	reversed, virtual    int
	ranks, rankIter      int
	crossings, orderIter int
	positionIter         int
	routed, degenerate   int
}

// layoutLevel runs the pipeline on the level graph of c, writes the result
// back to the input graph and normalizes the subtree to the origin.
func (s *session) layoutLevel(c dag.ClusterID) (geom.Box, error) {
	name := s.levelName(c)
	logger := s.logger
	if name != "" {
		logger = logger.With("cluster", name)
	}

	lv, err := buildLevel(s.g, s.tree, c)
	if err != nil {
		return geom.Box{}, errors.Ensure(errors.ErrCodeInternal, err, "build level %q", name)
	}

	var st levelStats
	if lv.g.NodeCount() > 0 {
		if st, err = s.place(lv, name, logger); err != nil {
			return geom.Box{}, err
		}
		if err := s.route(lv, name, logger, &st); err != nil {
			return geom.Box{}, err
		}
	}

	box := s.levelBox(lv)
	s.charts[slot(c)] = spline.NewChart(lv.g, box, s.splineOptions(logger))
	s.translate(c, geom.Pt(-box.Left, -box.Top))
	box = box.Translate(-box.Left, -box.Top)
	if c != dag.NoCluster {
		s.g.Cluster(c).Box = box
	}

	s.mu.Lock()
	s.stats.Levels++
	s.stats.Reversed += st.reversed
	s.stats.VirtualNodes += st.virtual
	s.stats.Crossings += st.crossings
	s.stats.RankIterations += st.rankIter
	s.stats.OrderIterations += st.orderIter
	s.stats.PositionIterations += st.positionIter
	s.stats.Routed += st.routed
	s.stats.Degenerate += st.degenerate
	s.mu.Unlock()

	logger.Debug("level laid out", "nodes", len(lv.node), "edges", len(lv.edge),
		"ranks", st.ranks, "crossings", st.crossings, "width", box.Width(), "height", box.Height())
	return box, nil
}

// place ranks, orders and positions the level graph, then moves child
// clusters onto their skeletons and copies node results to the input
// graph.
func (s *session) place(lv *level, name string, logger *log.Logger) (levelStats, error) {
	var st levelStats
	lg := lv.g

	_ = s.stage(StageAcyclify, name, func() error {
		st.reversed = transform.Acyclify(lg)
		return nil
	})

	err := s.stage(StageRank, name, func() error {
		res, err := rank.Assign(lg, rank.Options{
			Mode:    s.opts.Ranking,
			MaxIter: s.opts.RankMaxIter,
			Balance: !s.opts.NoBalance,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		st.ranks, st.rankIter = res.Ranks, res.Iterations
		return nil
	})
	if err != nil {
		return st, err
	}

	err = s.stage(StageExpand, name, func() error {
		n, err := transform.Expand(lg, transform.ExpandOptions{})
		st.virtual = n
		return errors.Ensure(errors.ErrCodeInternal, err, "expand level %q", name)
	})
	if err != nil {
		return st, err
	}

	err = s.stage(StageOrder, name, func() error {
		res, err := s.opts.orderer(logger).Order(lg)
		if err != nil {
			return errors.Ensure(errors.ErrCodeInternal, err, "order level %q", name)
		}
		st.crossings, st.orderIter = res.Crossings, res.Iterations
		return nil
	})
	if err != nil {
		return st, err
	}

	err = s.stage(StagePosition, name, func() error {
		res, err := position.Assign(lg, position.Options{
			Strategy:           s.opts.Positioning,
			RankSep:            s.opts.RankSep,
			NodeSep:            s.opts.NodeSep,
			LoopSize:           s.opts.LoopSize,
			MaxIter:            s.opts.PositionMaxIter,
			PriorityIterations: s.opts.PriorityIterations,
			Logger:             logger,
		})
		if err != nil {
			return err
		}
		st.positionIter = res.Iterations
		return nil
	})
	if err != nil {
		return st, err
	}

	for k, lid := range lv.skel {
		sk := lg.Node(lid)
		s.translate(k, geom.Pt(sk.X-sk.Width/2, sk.Y-sk.Height/2))
	}
	for lid, id := range lv.node {
		if id == dag.NoNode {
			continue
		}
		ln, n := lg.Node(dag.NodeID(lid)), s.g.Node(id)
		n.X, n.Y, n.Rank, n.Order = ln.X, ln.Y, ln.Rank, ln.Order
	}
	return st, nil
}

// route fits the level's edges and copies the routes to the input edges.
func (s *session) route(lv *level, name string, logger *log.Logger, st *levelStats) error {
	return s.stage(StageRoute, name, func() error {
		res, err := spline.Route(lv.g, s.splineOptions(logger), s.ends(lv))
		if err != nil {
			return err
		}
		for lid, id := range lv.edge {
			le, e := lv.g.Edge(dag.EdgeID(lid)), s.g.Edge(id)
			e.Points, e.HeadArrow, e.TailArrow = le.Points, le.HeadArrow, le.TailArrow
			e.Reversed = le.Reversed
		}
		st.routed, st.degenerate = res.Routed, res.Degenerate
		return nil
	})
}

func (s *session) splineOptions(logger *log.Logger) spline.Options {
	return spline.Options{
		Mode:      s.opts.Splines,
		RankSep:   s.opts.RankSep,
		NodeSep:   s.opts.NodeSep,
		LoopSize:  s.opts.LoopSize,
		MultiSep:  s.opts.MultiSep,
		ArrowSize: s.opts.ArrowSize,
		Logger:    logger,
	}
}

// ends reports the true endpoint of every level edge attached to a
// skeleton, so routes continue into the cluster through the charts of the
// clusters in between. It relies on the child contents having been
// translated onto their skeletons.
func (s *session) ends(lv *level) spline.Ends {
	endpoint := func(id dag.NodeID) *spline.Endpoint {
		n := s.g.Node(id)
		ep := spline.NodeEndpoint(n)
		for c := n.Cluster; c != lv.cluster; c = s.g.Cluster(c).Parent {
			ep.Through = append(ep.Through, s.charts[slot(c)])
		}
		slices.Reverse(ep.Through)
		return &ep
	}
	return func(le *dag.Edge) (from, to *spline.Endpoint) {
		if int(le.ID) >= len(lv.edge) {
			return nil, nil
		}
		e := s.g.Edge(lv.edge[le.ID])
		if lv.g.Node(le.From).IsSkeleton() {
			from = endpoint(e.From)
		}
		if lv.g.Node(le.To).IsSkeleton() {
			to = endpoint(e.To)
		}
		return from, to
	}
}

// levelBox encloses the level's nodes, skeletons and owned routes, plus
// the cluster's margin and label reserve.
func (s *session) levelBox(lv *level) geom.Box {
	box := geom.EmptyBox()
	for _, n := range lv.g.Nodes() {
		if !n.IsVirtual() {
			box = box.Union(n.Box())
		}
	}
	for _, id := range lv.edge {
		e := s.g.Edge(id)
		for _, p := range e.Points {
			box = box.AddPoint(p)
		}
		if e.HeadArrow != nil {
			box = box.AddPoint(*e.HeadArrow)
		}
		if e.TailArrow != nil {
			box = box.AddPoint(*e.TailArrow)
		}
	}
	if box.IsEmpty() {
		box = geom.Box{}
	}
	if lv.cluster == dag.NoCluster {
		return box
	}
	cl := s.g.Cluster(lv.cluster)
	box = box.Expand(cl.Margin)
	box.Top -= cl.LabelHeight
	return box
}

// translate moves everything inside the subtree of c by d: nodes, routes
// and cluster boxes, including c's own box.
func (s *session) translate(c dag.ClusterID, d geom.Point) {
	if d.X == 0 && d.Y == 0 {
		return
	}
	for _, id := range s.tree.nodes[slot(c)] {
		n := s.g.Node(id)
		n.X += d.X
		n.Y += d.Y
	}
	for _, id := range s.tree.edges[slot(c)] {
		e := s.g.Edge(id)
		for i := range e.Points {
			e.Points[i] = e.Points[i].Add(d)
		}
		if e.HeadArrow != nil {
			p := e.HeadArrow.Add(d)
			e.HeadArrow = &p
		}
		if e.TailArrow != nil {
			p := e.TailArrow.Add(d)
			e.TailArrow = &p
		}
	}
	for _, k := range s.tree.clusters[slot(c)] {
		cl := s.g.Cluster(k)
		cl.Box = cl.Box.Translate(d.X, d.Y)
		if ch := s.charts[slot(k)]; ch != nil {
			ch.Translate(d)
		}
	}
	if c != dag.NoCluster {
		cl := s.g.Cluster(c)
		cl.Box = cl.Box.Translate(d.X, d.Y)
	}
	if ch := s.charts[slot(c)]; ch != nil {
		ch.Translate(d)
	}
}
