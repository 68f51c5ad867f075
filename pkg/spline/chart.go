package spline

import (
	"math"
	"slices"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/geom"
)

// Chart is the routing geometry of a laid-out cluster: its box and, for
// every rank of its level, the band the rank occupies and the boxes in it
// that routes entering the cluster must avoid. A chart is kept in the
// frame of the drawing and moved with the cluster by Translate.
type Chart struct {
	Box   geom.Box
	Bands []Band
}

// Band is one rank of a chart in layout orientation.
type Band struct {
	// Y is the center line of the rank, NaN when no real or virtual node
	// sits on it.
	Y           float64
	Top, Bottom float64
	// Obstacles are the boxes of the rank's real and skeleton nodes,
	// including their self-loop reach, from left to right.
	Obstacles []geom.Box
}

// NewChart records the ranks of a positioned level graph. box is the
// extent of the level, margins included.
func NewChart(g *dag.Graph, box geom.Box, opts Options) *Chart {
	r := newRouter(g, opts.withDefaults(), nil)
	ch := &Chart{Box: box, Bands: make([]Band, len(r.layers))}
	for rk, l := range r.layers {
		b := Band{Y: math.NaN(), Top: r.top[rk], Bottom: r.bottom[rk]}
		for _, id := range l {
			n := g.Node(id)
			if !n.IsSkeleton() {
				b.Y = n.Y
			}
			if !n.IsVirtual() {
				b.Obstacles = append(b.Obstacles, r.extent(n))
			}
		}
		ch.Bands[rk] = b
	}
	return ch
}

// Translate moves the chart by d.
func (c *Chart) Translate(d geom.Point) {
	c.Box = c.Box.Translate(d.X, d.Y)
	for i := range c.Bands {
		b := &c.Bands[i]
		b.Y += d.Y
		b.Top += d.Y
		b.Bottom += d.Y
		for j, o := range b.Obstacles {
			b.Obstacles[j] = o.Translate(d.X, d.Y)
		}
	}
}

// slab is a horizontal strip of a chart: a rank band, or the free space
// above, between or below the bands.
type slab struct {
	top, bottom float64
	band        *Band
}

func (c *Chart) slabs() []slab {
	res := make([]slab, 0, 2*len(c.Bands)+1)
	y := c.Box.Top
	for i := range c.Bands {
		b := &c.Bands[i]
		res = append(res, slab{top: y, bottom: b.Top}, slab{top: b.Top, bottom: b.Bottom, band: b})
		y = b.Bottom
	}
	return append(res, slab{top: y, bottom: c.Box.Bottom})
}

// free returns the horizontal intervals of the band not covered by an
// obstacle, ignoring obstacles that contain one of the leg's endpoints.
// Intervals next to an obstacle keep clearance from it.
func (c *Chart) free(b *Band, p, q geom.Point, clearance float64) [][2]float64 {
	var res [][2]float64
	left, padLeft := c.Box.Left, false
	add := func(right float64, padRight bool) {
		w := right - left
		if w <= 0 {
			return
		}
		pad := min(clearance, w/4)
		l, r := left, right
		if padLeft {
			l += pad
		}
		if padRight {
			r -= pad
		}
		res = append(res, [2]float64{l, r})
	}
	for _, o := range b.Obstacles {
		if o.Contains(p, 0) || o.Contains(q, 0) {
			continue
		}
		add(o.Left, true)
		if o.Right > left {
			left, padLeft = o.Right, true
		}
	}
	add(c.Box.Right, false)
	return res
}

// leg builds the channel from p to q across the chart, passing each rank
// band through the gap between its obstacles closest to the straight line
// p-q, and returns the shortest route through it. ok is false when the
// channel had to be relaxed.
func (c *Chart) leg(p, q geom.Point, clearance float64) (route []geom.Point, boxes []geom.Box, ok bool) {
	flip := p.Y > q.Y
	if flip {
		p, q = q, p
	}
	lineX := func(y float64) float64 {
		if q.Y-p.Y <= eps {
			return p.X
		}
		return geom.Lerp(p, q, (y-p.Y)/(q.Y-p.Y)).X
	}

	for _, s := range c.slabs() {
		top, bottom := max(s.top, p.Y), min(s.bottom, q.Y)
		if bottom < top || bottom == top && len(boxes) > 0 {
			continue
		}
		b := geom.Box{Left: c.Box.Left, Top: top, Right: c.Box.Right, Bottom: bottom}
		if s.band != nil {
			ref := lineX((top + bottom) / 2)
			switch {
			case top <= p.Y:
				ref = p.X
			case bottom >= q.Y:
				ref = q.X
			}
			iv, found := nearest(c.free(s.band, p, q, clearance), ref)
			if !found {
				return []geom.Point{p, q}, nil, false
			}
			b.Left, b.Right = iv[0], iv[1]
		}
		boxes = append(boxes, b)
	}

	ok = true
	portals := make([]portal, 0, len(boxes))
	for i := 0; i+1 < len(boxes); i++ {
		a, b := boxes[i], boxes[i+1]
		pt := portal{y: a.Bottom, l: max(a.Left, b.Left), r: min(a.Right, b.Right)}
		if pt.l > pt.r {
			pt.l, pt.r = pt.r, pt.l
			ok = false
		}
		portals = append(portals, pt)
	}
	route = funnel(p, q, portals)
	if flip {
		geom.Reverse(route)
	}
	return route, boxes, ok
}

// nearest picks the interval closest to x, the leftmost on ties.
func nearest(ivs [][2]float64, x float64) ([2]float64, bool) {
	if len(ivs) == 0 {
		return [2]float64{}, false
	}
	dist := func(iv [2]float64) float64 {
		return max(iv[0]-x, x-iv[1], 0)
	}
	return slices.MinFunc(ivs, func(a, b [2]float64) int {
		da, db := dist(a), dist(b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	}), true
}
