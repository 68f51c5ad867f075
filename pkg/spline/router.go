package spline

import (
	"math"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/dag/transform"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
)

type router struct {
	g      *dag.Graph
	opts   Options
	ends   Ends
	res    *Result
	layers [][]dag.NodeID
	// top and bottom bound the band occupied by each rank.
	top, bottom []float64
	// bounds is the padded extent of the level, the width of gap boxes.
	bounds geom.Box
	loops  []int
	// relaxed holds the edges already counted as degenerate.
	relaxed map[dag.EdgeID]bool
}

func newRouter(g *dag.Graph, opts Options, ends Ends) *router {
	r := &router{
		g:      g,
		opts:   opts,
		ends:   ends,
		layers: g.Layers(),
		loops:  make([]int, g.NodeCount()),
		bounds: geom.EmptyBox(),

		relaxed: make(map[dag.EdgeID]bool),
	}
	for _, e := range g.Edges() {
		if e.Kind == dag.EdgeKindReal && e.IsSelfLoop() {
			r.loops[e.From]++
		}
	}

	r.top = make([]float64, len(r.layers))
	r.bottom = make([]float64, len(r.layers))
	prev := 0.0
	for rk, l := range r.layers {
		top, bottom := math.Inf(1), math.Inf(-1)
		for _, id := range l {
			n := g.Node(id)
			top = min(top, n.Y-n.Height/2)
			bottom = max(bottom, n.Y+n.Height/2)
			r.bounds = r.bounds.Union(r.extent(n))
		}
		if len(l) == 0 {
			top, bottom = prev, prev
		}
		r.top[rk], r.bottom[rk] = top, bottom
		prev = bottom
	}
	pad := 2*max(opts.NodeSep, opts.MultiSep) + opts.LoopSize
	r.bounds = r.bounds.Expand(pad)
	return r
}

// extent is the box of n including the space reserved for its loops.
func (r *router) extent(n *dag.Node) geom.Box {
	b := n.Box()
	b.Right += float64(r.loops[n.ID]) * r.opts.LoopSize
	return b
}

// corridor returns the free horizontal interval around n on its rank,
// bounded by the nearest non-virtual neighbours.
func (r *router) corridor(n *dag.Node) (left, right float64) {
	left, right = r.bounds.Left, r.bounds.Right
	l := r.layers[n.Rank]
	for i := n.Order - 1; i >= 0; i-- {
		if nb := r.g.Node(l[i]); !nb.IsVirtual() {
			left = r.extent(nb).Right
			break
		}
	}
	for i := n.Order + 1; i < len(l); i++ {
		if nb := r.g.Node(l[i]); !nb.IsVirtual() {
			right = r.extent(nb).Left
			break
		}
	}
	return left, right
}

// ranked routes an edge between different ranks.
func (r *router) ranked(e *dag.Edge, par parallel) []geom.Point {
	src, dst, srcTrue, dstTrue := r.endpoints(e)
	path := transform.ChainNodes(r.g, e.ID)
	off := par.offset(r.opts.MultiSep)

	var segs []geom.Cubic
	switch r.opts.Mode {
	case ModeLine:
		segs = []geom.Cubic{geom.Line(src.Center, dst.Center)}
	case ModePolyline:
		pts := make([]geom.Point, 0, len(path)+1)
		for _, id := range path {
			pts = append(pts, r.g.Node(id).Center())
		}
		pts = r.spread(pts, path, off)
		segs = geom.Segments(geom.Polyline(pts))
	default:
		boxes, portals, ok := r.channel(path)
		route := funnel(src.Center, dst.Center, portals)
		var fitted bool
		if off != 0 {
			segs, fitted = fit(r.spread(route, path, off), boxes)
		}
		if !fitted {
			segs, fitted = fit(route, boxes)
		}
		if !ok || !fitted {
			r.degenerate(e)
		}
	}
	return r.finish(e, segs, src, dst, srcTrue, dstTrue)
}

// spread shifts the interior points of a route sideways by off. A
// two-point route gets a bend in the middle of the first inter-rank gap.
func (r *router) spread(pts []geom.Point, path []dag.NodeID, off float64) []geom.Point {
	if off == 0 {
		return pts
	}
	if len(pts) == 2 {
		rk := r.g.Node(path[0]).Rank
		y := (r.bottom[rk] + r.top[rk+1]) / 2
		a, b := pts[0], pts[1]
		t := 0.5
		if b.Y != a.Y {
			t = (y - a.Y) / (b.Y - a.Y)
		}
		mid := geom.Lerp(a, b, t)
		pts = []geom.Point{a, mid, b}
	}
	out := make([]geom.Point, len(pts))
	copy(out, pts)
	for i := 1; i < len(out)-1; i++ {
		out[i].X += off
	}
	return out
}

// channel builds the boxes an edge along path may occupy and the portals
// between consecutive boxes. ok is false if some portal had to be relaxed.
func (r *router) channel(path []dag.NodeID) (boxes []geom.Box, portals []portal, ok bool) {
	last := len(path) - 1
	for i, id := range path {
		n := r.g.Node(id)
		rk := n.Rank
		left, right := r.corridor(n)
		b := geom.Box{Left: left, Top: r.top[rk], Right: right, Bottom: r.bottom[rk]}
		switch i {
		case 0:
			b.Top = n.Y
		case last:
			b.Bottom = n.Y
		}
		boxes = append(boxes, b)
		if i < last {
			next := r.g.Node(path[i+1]).Rank
			boxes = append(boxes, geom.Box{
				Left:   r.bounds.Left,
				Top:    r.bottom[rk],
				Right:  r.bounds.Right,
				Bottom: r.top[next],
			})
		}
	}

	ok = true
	for i := 0; i+1 < len(boxes); i++ {
		a, b := boxes[i], boxes[i+1]
		p := portal{y: a.Bottom, l: max(a.Left, b.Left), r: min(a.Right, b.Right)}
		if p.l > p.r {
			p.l, p.r = p.r, p.l
			ok = false
		}
		portals = append(portals, p)
	}
	return boxes, portals, ok
}

func (r *router) degenerate(e *dag.Edge) {
	if r.relaxed[e.ID] {
		return
	}
	r.relaxed[e.ID] = true
	r.res.Degenerate++
	if r.opts.Logger != nil {
		err := errors.New(errors.ErrCodeDegenerateGeometry, "edge %s leaves its channel", r.g.EdgeName(e.ID))
		r.opts.Logger.Warn("relaxed edge route", "err", err)
	}
}

// selfLoop draws the k-th loop of a node as one cubic bulging to the
// right, split at its extreme point so both halves can be clipped.
func (r *router) selfLoop(e *dag.Edge, k int) []geom.Point {
	n := r.g.Node(e.From)
	end := NodeEndpoint(n)
	c := n.Center()
	reach := n.Width/2 + float64(k+1)*r.opts.LoopSize
	dy := n.Height / 4
	// a cubic with equal control x peaks at 3/4 of the way to them
	cx := c.X + reach*4/3
	loop := geom.Cubic{
		geom.Pt(c.X, c.Y-dy),
		geom.Pt(cx, c.Y-2*dy),
		geom.Pt(cx, c.Y+2*dy),
		geom.Pt(c.X, c.Y+dy),
	}
	a, b := loop.Split(0.5)
	a = geom.ClipStart(a, end.inside)
	b = geom.ClipEnd(b, end.inside)
	return geom.Join([]geom.Cubic{a, b})
}

// flat routes an edge between two nodes of one rank. Neighbours in the
// order are joined by a straight segment; others, and every parallel edge
// after the first, arc over the rank.
func (r *router) flat(e *dag.Edge, par parallel) []geom.Point {
	src, dst, srcTrue, dstTrue := r.endpoints(e)
	u, v := r.g.Node(e.Src()), r.g.Node(e.Dst())

	adjacent := u.Order-v.Order == 1 || v.Order-u.Order == 1
	if r.opts.Mode == ModeLine || adjacent && par.index == 0 {
		return r.finish(e, []geom.Cubic{geom.Line(src.Center, dst.Center)}, src, dst, srcTrue, dstTrue)
	}

	lift := max(u.Y, v.Y) - r.top[u.Rank] + r.opts.RankSep/4 + float64(par.index)*r.opts.MultiSep
	y := min(u.Y, v.Y) - lift*4/3
	arc := geom.Cubic{src.Center, geom.Pt(src.Center.X, y), geom.Pt(dst.Center.X, y), dst.Center}
	if r.opts.Mode == ModePolyline {
		top := min(u.Y, v.Y) - lift
		pts := geom.Polyline([]geom.Point{src.Center, geom.Pt(src.Center.X, top), geom.Pt(dst.Center.X, top), dst.Center})
		return r.finish(e, geom.Segments(pts), src, dst, srcTrue, dstTrue)
	}
	a, b := arc.Split(0.5)
	return r.finish(e, []geom.Cubic{a, b}, src, dst, srcTrue, dstTrue)
}
