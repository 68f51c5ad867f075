package spline

import (
	"math"

	"github.com/matzehuels/stratum/pkg/geom"
)

// portal is the horizontal window [l, r] at height y shared by two
// consecutive channel boxes.
type portal struct {
	y, l, r float64
}

const eps = 1e-9

// funnel returns the shortest polyline from s to e passing through every
// portal in order. Portals must be sorted by increasing y.
//
// From the current apex the reachable directions form a cone of slopes
// dx/dy. Each portal narrows the cone; when a portal falls entirely on one
// side, the path bends around the portal corner that bounded the cone on
// that side, which becomes the new apex.
func funnel(s, e geom.Point, portals []portal) []geom.Point {
	ps := make([]portal, 0, len(portals)+1)
	ps = append(ps, portals...)
	ps = append(ps, portal{y: e.Y, l: e.X, r: e.X})

	out := []geom.Point{s}
	apex := s
	i := 0
	for i < len(ps) {
		lo, hi := math.Inf(-1), math.Inf(1)
		loAt, hiAt := -1, -1
		bent := false
		for j := i; j < len(ps); j++ {
			p := ps[j]
			dy := p.y - apex.Y
			if dy <= eps {
				continue
			}
			sl, sr := (p.l-apex.X)/dy, (p.r-apex.X)/dy
			if sr < lo {
				apex = geom.Pt(ps[loAt].l, ps[loAt].y)
				i = loAt + 1
				bent = true
				break
			}
			if sl > hi {
				apex = geom.Pt(ps[hiAt].r, ps[hiAt].y)
				i = hiAt + 1
				bent = true
				break
			}
			if sl > lo {
				lo, loAt = sl, j
			}
			if sr < hi {
				hi, hiAt = sr, j
			}
		}
		if !bent {
			break
		}
		out = append(out, apex)
	}
	if last := out[len(out)-1]; last != e || len(out) == 1 {
		out = append(out, e)
	}
	return out
}
