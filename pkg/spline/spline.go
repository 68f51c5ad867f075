package spline

import (
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
)

// Mode selects how edges are drawn.
type Mode string

const (
	ModeSpline   Mode = "spline"
	ModePolyline Mode = "polyline"
	ModeLine     Mode = "line"
	ModeNone     Mode = "none"
)

// Valid reports whether m is a known mode or empty (spline).
func (m Mode) Valid() bool {
	switch m {
	case "", ModeSpline, ModePolyline, ModeLine, ModeNone:
		return true
	}
	return false
}

// Defaults used when Options leave a field zero.
const (
	DefaultArrowSize = 10.0
	DefaultMultiSep  = 8.0
	DefaultLoopSize  = 18.0
)

// Options configures Route.
type Options struct {
	Mode    Mode
	RankSep float64
	NodeSep float64
	// LoopSize is the horizontal reach added per self-loop on a node. It
	// must match the space reserved during positioning.
	LoopSize float64
	// MultiSep is the lateral distance between parallel edges.
	MultiSep float64
	// ArrowSize is the length of an arrowhead. Zero disables arrow anchors.
	ArrowSize float64
	Logger    *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeSpline
	}
	if o.LoopSize <= 0 {
		o.LoopSize = DefaultLoopSize
	}
	if o.MultiSep <= 0 {
		o.MultiSep = DefaultMultiSep
	}
	return o
}

// Endpoint is the outline an edge attaches to.
type Endpoint struct {
	Center        geom.Point
	Width, Height float64
	Shape         geom.Shape
	// Through lists the charts of the clusters enclosing the endpoint
	// below the routed level, outermost first. A route reaching the
	// outermost box crosses each of them in turn.
	Through []*Chart
}

// NodeEndpoint returns the outline of n. Skeleton nodes are boxes.
func NodeEndpoint(n *dag.Node) Endpoint {
	shape := n.Shape
	if n.IsSkeleton() {
		shape = geom.ShapeBox
	}
	return Endpoint{Center: n.Center(), Width: n.Width, Height: n.Height, Shape: shape}
}

func (p Endpoint) inside(q geom.Point) bool {
	return geom.Inside(p.Shape, p.Center, p.Width, p.Height, q)
}

// Ends reports the true endpoints of a level edge whose input tail (from)
// or head (to) is a skeleton node standing in for a cluster. A nil result
// means the level node itself is the endpoint.
type Ends func(e *dag.Edge) (from, to *Endpoint)

// Result summarizes a routing run.
type Result struct {
	Routed int
	// Degenerate counts routes that could not be kept inside their
	// channel.
	Degenerate int
}

// Route computes Points, HeadArrow and TailArrow for every input edge of g.
// Nodes must be positioned; long edges must carry their virtual chains.
// Points are stored from the input tail to the input head. ends may be nil.
func Route(g *dag.Graph, opts Options, ends Ends) (*Result, error) {
	opts = opts.withDefaults()
	if !opts.Mode.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown spline mode %q", opts.Mode)
	}
	res := &Result{}
	if opts.Mode == ModeNone {
		for _, e := range g.Edges() {
			e.Points, e.HeadArrow, e.TailArrow = nil, nil, nil
		}
		return res, nil
	}

	r := newRouter(g, opts, ends)
	r.res = res
	multi := r.parallelIndex()
	loopIndex := map[dag.NodeID]int{}

	for _, e := range g.Edges() {
		if e.Kind != dag.EdgeKindReal {
			continue
		}
		var pts []geom.Point
		switch {
		case e.IsSelfLoop():
			pts = r.selfLoop(e, loopIndex[e.From])
			loopIndex[e.From]++
		case g.Span(e.ID) == 0:
			pts = r.flat(e, multi[e.ID])
		default:
			pts = r.ranked(e, multi[e.ID])
		}
		if len(pts) == 0 {
			continue
		}
		if e.Reversed {
			geom.Reverse(pts)
		}
		pts = r.arrows(e, pts)
		for _, p := range pts {
			if err := errors.ValidateCoord("edge "+g.EdgeName(e.ID), p.X); err != nil {
				return nil, err
			}
			if err := errors.ValidateCoord("edge "+g.EdgeName(e.ID), p.Y); err != nil {
				return nil, err
			}
		}
		e.Points = pts
		res.Routed++
	}

	if opts.Logger != nil {
		opts.Logger.Debug("routed edges", "mode", opts.Mode, "routed", res.Routed, "degenerate", res.Degenerate)
	}
	return res, nil
}

// parallel identifies an edge's slot among the edges joining the same
// pair of nodes.
type parallel struct {
	index, count int
}

// offset spreads count parallel edges symmetrically around zero.
func (p parallel) offset(sep float64) float64 {
	return (float64(p.index) - float64(p.count-1)/2) * sep
}

// parallelIndex groups unchained, non-loop edges by unordered endpoint pair.
func (r *router) parallelIndex() map[dag.EdgeID]parallel {
	groups := map[[2]dag.NodeID][]dag.EdgeID{}
	var keys [][2]dag.NodeID
	for _, e := range r.g.Edges() {
		if e.Kind != dag.EdgeKindReal || e.IsSelfLoop() || len(e.Chain) > 0 {
			continue
		}
		k := [2]dag.NodeID{min(e.From, e.To), max(e.From, e.To)}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], e.ID)
	}
	res := make(map[dag.EdgeID]parallel)
	for _, k := range keys {
		ids := groups[k]
		for i, id := range ids {
			res[id] = parallel{index: i, count: len(ids)}
		}
	}
	return res
}

// endpoints returns the level outlines and true outlines of e in layout
// orientation.
func (r *router) endpoints(e *dag.Edge) (src, dst Endpoint, srcTrue, dstTrue *Endpoint) {
	src = NodeEndpoint(r.g.Node(e.Src()))
	dst = NodeEndpoint(r.g.Node(e.Dst()))
	if r.ends != nil {
		from, to := r.ends(e)
		srcTrue, dstTrue = from, to
		if e.Reversed {
			srcTrue, dstTrue = to, from
		}
	}
	return src, dst, srcTrue, dstTrue
}

// finish clips a route that starts inside src and ends inside dst, then
// extends it into the true endpoints when those differ.
func (r *router) finish(e *dag.Edge, segs []geom.Cubic, src, dst Endpoint, srcTrue, dstTrue *Endpoint) []geom.Point {
	segs = clipHead(segs, src.inside)
	segs = clipTail(segs, dst.inside)
	if srcTrue != nil {
		in := r.descend(e, segs[0][0], *srcTrue)
		slices.Reverse(in)
		for i := range in {
			in[i] = in[i].Reverse()
		}
		segs = append(in, segs...)
	}
	if dstTrue != nil {
		segs = append(segs, r.descend(e, segs[len(segs)-1][3], *dstTrue)...)
	}
	return geom.Join(segs)
}

// descend continues a route from p, on the box of the outermost cluster
// enclosing end, to the outline of end. Each enclosing cluster is crossed
// through the rank bands and gaps of its chart.
func (r *router) descend(e *dag.Edge, p geom.Point, end Endpoint) []geom.Cubic {
	if r.opts.Mode == ModeLine || len(end.Through) == 0 {
		return []geom.Cubic{geom.ClipEnd(geom.Line(p, end.Center), end.inside)}
	}
	var out []geom.Cubic
	relaxed := false
	for i, ch := range end.Through {
		target, inside := end.Center, end.inside
		if i+1 < len(end.Through) {
			inner := end.Through[i+1].Box
			target = inner.Center()
			inside = func(q geom.Point) bool {
				return geom.Inside(geom.ShapeBox, inner.Center(), inner.Width(), inner.Height(), q)
			}
		}
		route, boxes, ok := ch.leg(p, target, r.opts.NodeSep/4)
		var segs []geom.Cubic
		if r.opts.Mode == ModePolyline {
			segs = geom.Segments(geom.Polyline(route))
		} else {
			var fitted bool
			segs, fitted = fit(route, boxes)
			ok = ok && fitted
		}
		relaxed = relaxed || !ok
		segs = clipTail(segs, inside)
		out = append(out, segs...)
		p = segs[len(segs)-1][3]
	}
	if relaxed {
		r.degenerate(e)
	}
	return out
}

// clipHead drops leading segments that lie inside the outline and clips
// the first one that leaves it.
func clipHead(segs []geom.Cubic, inside func(geom.Point) bool) []geom.Cubic {
	for len(segs) > 1 && inside(segs[0][3]) {
		segs = segs[1:]
	}
	segs[0] = geom.ClipStart(segs[0], inside)
	return segs
}

func clipTail(segs []geom.Cubic, inside func(geom.Point) bool) []geom.Cubic {
	for len(segs) > 1 && inside(segs[len(segs)-2][3]) {
		segs = segs[:len(segs)-1]
	}
	segs[len(segs)-1] = geom.ClipEnd(segs[len(segs)-1], inside)
	return segs
}

// arrows shortens pts at the ends that carry an arrowhead and records the
// tips. pts are in input orientation.
func (r *router) arrows(e *dag.Edge, pts []geom.Point) []geom.Point {
	e.HeadArrow, e.TailArrow = nil, nil
	size := r.opts.ArrowSize
	if size <= 0 || len(pts) < 4 {
		return pts
	}
	segs := geom.Segments(pts)
	if e.Dir == dag.DirForward || e.Dir == dag.DirBoth {
		last := len(segs) - 1
		tip := segs[last][3]
		segs[last] = geom.ShortenEnd(segs[last], size)
		e.HeadArrow = &tip
	}
	if e.Dir == dag.DirBack || e.Dir == dag.DirBoth {
		tip := segs[0][0]
		segs[0] = geom.ShortenEnd(segs[0].Reverse(), size).Reverse()
		e.TailArrow = &tip
	}
	return geom.Join(segs)
}
