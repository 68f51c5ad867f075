package geom

// Cubic is a single cubic Bezier segment.
type Cubic [4]Point

// Eval returns the point at parameter t using de Casteljau's construction.
func (c Cubic) Eval(t float64) Point {
	l, _ := c.Split(t)
	return l[3]
}

// Split divides c at parameter t into two curves that together trace c.
func (c Cubic) Split(t float64) (Cubic, Cubic) {
	p01 := Lerp(c[0], c[1], t)
	p12 := Lerp(c[1], c[2], t)
	p23 := Lerp(c[2], c[3], t)
	p012 := Lerp(p01, p12, t)
	p123 := Lerp(p12, p23, t)
	m := Lerp(p012, p123, t)
	return Cubic{c[0], p01, p012, m}, Cubic{m, p123, p23, c[3]}
}

// Reverse returns the same curve traversed from end to start.
func (c Cubic) Reverse() Cubic { return Cubic{c[3], c[2], c[1], c[0]} }

// Bounds returns the bounding box of the control polygon, which contains
// the curve.
func (c Cubic) Bounds() Box {
	b := EmptyBox()
	for _, p := range c {
		b = b.AddPoint(p)
	}
	return b
}

// Segments splits a piecewise spline of 3n+1 points into its n cubics.
// Trailing points that do not form a complete segment are ignored.
func Segments(pts []Point) []Cubic {
	if len(pts) < 4 {
		return nil
	}
	n := (len(pts) - 1) / 3
	out := make([]Cubic, n)
	for i := range out {
		copy(out[i][:], pts[3*i:3*i+4])
	}
	return out
}

// Join flattens cubics back into a 3n+1 point spline.
func Join(segs []Cubic) []Point {
	if len(segs) == 0 {
		return nil
	}
	out := make([]Point, 0, 3*len(segs)+1)
	out = append(out, segs[0][0])
	for _, s := range segs {
		out = append(out, s[1], s[2], s[3])
	}
	return out
}

// Line returns a cubic that traces the straight segment from a to b.
func Line(a, b Point) Cubic {
	return Cubic{a, Lerp(a, b, 1.0/3), Lerp(a, b, 2.0/3), b}
}

// Polyline converts a polyline into a spline by tripling interior vertices,
// so each straight piece becomes its own degenerate cubic.
func Polyline(pts []Point) []Point {
	if len(pts) < 2 {
		return append([]Point(nil), pts...)
	}
	out := make([]Point, 0, 3*(len(pts)-1)+1)
	out = append(out, pts[0], pts[0])
	for _, p := range pts[1 : len(pts)-1] {
		out = append(out, p, p, p)
	}
	last := pts[len(pts)-1]
	out = append(out, last, last)
	return out
}

// Reverse reverses a point sequence in place.
func Reverse(pts []Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// ClipStart trims the beginning of c so it starts on the boundary of the
// region described by inside. The first control point must lie inside the
// region and the last outside; otherwise c is returned unchanged.
func ClipStart(c Cubic, inside func(Point) bool) Cubic {
	if !inside(c[0]) || inside(c[3]) {
		return c
	}
	lo, hi := 0.0, 1.0
	for i := 0; i < 30; i++ {
		mid := (lo + hi) / 2
		if inside(c.Eval(mid)) {
			lo = mid
		} else {
			hi = mid
		}
	}
	_, r := c.Split(hi)
	return r
}

// ClipEnd trims the end of c so it stops on the boundary of the region
// described by inside.
func ClipEnd(c Cubic, inside func(Point) bool) Cubic {
	return ClipStart(c.Reverse(), inside).Reverse()
}

// ShortenEnd moves the end of c back along the curve by roughly d units and
// returns the shortened curve. Used to leave room for an arrowhead.
func ShortenEnd(c Cubic, d float64) Cubic {
	if d <= 0 {
		return c
	}
	end := c[3]
	outside := func(p Point) bool { return p.Dist(end) >= d }
	if !outside(c[0]) {
		return c
	}
	lo, hi := 0.0, 1.0
	for i := 0; i < 30; i++ {
		mid := (lo + hi) / 2
		if outside(c.Eval(mid)) {
			lo = mid
		} else {
			hi = mid
		}
	}
	l, _ := c.Split(lo)
	return l
}
