package position

import (
	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/geom"
)

// RankDir is the direction in which ranks advance.
type RankDir string

const (
	RankDirTB RankDir = "TB"
	RankDirLR RankDir = "LR"
	RankDirBT RankDir = "BT"
	RankDirRL RankDir = "RL"
)

// Valid reports whether d is one of the four directions or empty (TB).
func (d RankDir) Valid() bool {
	switch d {
	case "", RankDirTB, RankDirLR, RankDirBT, RankDirRL:
		return true
	}
	return false
}

// Transposed reports whether ranks advance horizontally.
func (d RankDir) Transposed() bool { return d == RankDirLR || d == RankDirRL }

// SwapSizes exchanges Width and Height of every node.
func SwapSizes(g *dag.Graph) {
	for _, n := range g.Nodes() {
		n.Width, n.Height = n.Height, n.Width
	}
}

// Rotate maps a finished top-to-bottom drawing to dir and returns the
// mapped bounds. Node centers, edge control points, arrow anchors and
// cluster boxes are transformed; for transposed directions node sizes are
// swapped back. bounds is the drawing's bounding box in the TB frame.
func Rotate(g *dag.Graph, dir RankDir, bounds geom.Box) geom.Box {
	var f func(geom.Point) geom.Point
	mirror := bounds.Top + bounds.Bottom
	switch dir {
	case RankDirBT:
		f = func(p geom.Point) geom.Point { return geom.Pt(p.X, mirror-p.Y) }
	case RankDirLR:
		f = func(p geom.Point) geom.Point { return geom.Pt(p.Y, p.X) }
	case RankDirRL:
		f = func(p geom.Point) geom.Point { return geom.Pt(mirror-p.Y, p.X) }
	default:
		return bounds
	}

	mapBox := func(b geom.Box) geom.Box {
		return geom.EmptyBox().
			AddPoint(f(geom.Pt(b.Left, b.Top))).
			AddPoint(f(geom.Pt(b.Right, b.Bottom)))
	}

	for _, n := range g.Nodes() {
		c := f(n.Center())
		n.X, n.Y = c.X, c.Y
		if dir.Transposed() {
			n.Width, n.Height = n.Height, n.Width
		}
	}
	for _, e := range g.Edges() {
		for i, p := range e.Points {
			e.Points[i] = f(p)
		}
		if e.HeadArrow != nil {
			p := f(*e.HeadArrow)
			e.HeadArrow = &p
		}
		if e.TailArrow != nil {
			p := f(*e.TailArrow)
			e.TailArrow = &p
		}
	}
	for _, c := range g.Clusters() {
		if !c.Box.IsEmpty() {
			c.Box = mapBox(c.Box)
		}
	}
	return mapBox(bounds)
}
