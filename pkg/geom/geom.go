package geom

import "math"

// Point is a position in layout units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p*s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Lerp returns the point at parameter t on the segment from p to q.
func Lerp(p, q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Box is an axis-aligned rectangle. A Box is valid when Left <= Right and
// Top <= Bottom.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// BoxAt returns the box of size w x h centered on c.
func BoxAt(c Point, w, h float64) Box {
	return Box{Left: c.X - w/2, Top: c.Y - h/2, Right: c.X + w/2, Bottom: c.Y + h/2}
}

// EmptyBox is the identity for Union.
func EmptyBox() Box {
	return Box{Left: math.Inf(1), Top: math.Inf(1), Right: math.Inf(-1), Bottom: math.Inf(-1)}
}

// Width returns the horizontal span of the box.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns the vertical span of the box.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// CenterX returns the horizontal center of the box.
func (b Box) CenterX() float64 { return (b.Left + b.Right) / 2 }

// CenterY returns the vertical center of the box.
func (b Box) CenterY() float64 { return (b.Top + b.Bottom) / 2 }

// Center returns the center point of the box.
func (b Box) Center() Point { return Point{b.CenterX(), b.CenterY()} }

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool { return b.Left > b.Right || b.Top > b.Bottom }

// Contains reports whether p lies inside b, allowing eps of slack on every side.
func (b Box) Contains(p Point, eps float64) bool {
	return p.X >= b.Left-eps && p.X <= b.Right+eps && p.Y >= b.Top-eps && p.Y <= b.Bottom+eps
}

// ContainsBox reports whether o lies inside b with eps slack.
func (b Box) ContainsBox(o Box, eps float64) bool {
	return o.Left >= b.Left-eps && o.Right <= b.Right+eps && o.Top >= b.Top-eps && o.Bottom <= b.Bottom+eps
}

// Overlaps reports whether the interiors of b and o intersect.
func (b Box) Overlaps(o Box) bool {
	return b.Left < o.Right && o.Left < b.Right && b.Top < o.Bottom && o.Top < b.Bottom
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	return Box{
		Left:   math.Min(b.Left, o.Left),
		Top:    math.Min(b.Top, o.Top),
		Right:  math.Max(b.Right, o.Right),
		Bottom: math.Max(b.Bottom, o.Bottom),
	}
}

// AddPoint grows b to include p.
func (b Box) AddPoint(p Point) Box {
	return b.Union(Box{Left: p.X, Top: p.Y, Right: p.X, Bottom: p.Y})
}

// Expand grows the box by d on every side.
func (b Box) Expand(d float64) Box {
	return Box{Left: b.Left - d, Top: b.Top - d, Right: b.Right + d, Bottom: b.Bottom + d}
}

// Translate moves the box by (dx, dy).
func (b Box) Translate(dx, dy float64) Box {
	return Box{Left: b.Left + dx, Top: b.Top + dy, Right: b.Right + dx, Bottom: b.Bottom + dy}
}

// Shape selects the outline used when clipping curves at node boundaries.
type Shape string

const (
	ShapeBox     Shape = "box"
	ShapeEllipse Shape = "ellipse"
)

// Inside reports whether p lies strictly inside a node outline of the given
// shape, centered on c with size w x h.
func Inside(shape Shape, c Point, w, h float64, p Point) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	dx := (p.X - c.X) / (w / 2)
	dy := (p.Y - c.Y) / (h / 2)
	switch shape {
	case ShapeEllipse:
		return dx*dx+dy*dy < 1
	default:
		return math.Abs(dx) < 1 && math.Abs(dy) < 1
	}
}
