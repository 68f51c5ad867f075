package spline

import "github.com/matzehuels/stratum/pkg/geom"

// tensions are tried in order; zero reproduces the polyline.
var tensions = []float64{1, 0.5, 0.25, 0}

const (
	samplesPerSegment = 16
	channelTolerance  = 0.5
)

// fit smooths route into cubic segments that stay inside boxes. The
// second result is false when even the polyline leaves the channel; the
// polyline is returned in that case.
func fit(route []geom.Point, boxes []geom.Box) ([]geom.Cubic, bool) {
	for _, t := range tensions {
		segs := smooth(route, t)
		if within(segs, boxes) {
			return segs, true
		}
	}
	return smooth(route, 0), false
}

// smooth interpolates pts with cubic segments whose tangents follow the
// Catmull-Rom rule scaled by tension.
func smooth(pts []geom.Point, tension float64) []geom.Cubic {
	m := len(pts) - 1
	tangent := func(i int) geom.Point {
		switch i {
		case 0:
			return pts[1].Sub(pts[0]).Scale(tension)
		case m:
			return pts[m].Sub(pts[m-1]).Scale(tension)
		default:
			return pts[i+1].Sub(pts[i-1]).Scale(tension / 2)
		}
	}
	segs := make([]geom.Cubic, 0, m)
	for i := 0; i < m; i++ {
		segs = append(segs, geom.Cubic{
			pts[i],
			pts[i].Add(tangent(i).Scale(1.0 / 3)),
			pts[i+1].Sub(tangent(i + 1).Scale(1.0 / 3)),
			pts[i+1],
		})
	}
	return segs
}

func within(segs []geom.Cubic, boxes []geom.Box) bool {
	for _, c := range segs {
		for k := 0; k <= samplesPerSegment; k++ {
			p := c.Eval(float64(k) / samplesPerSegment)
			in := false
			for _, b := range boxes {
				if b.Contains(p, channelTolerance) {
					in = true
					break
				}
			}
			if !in {
				return false
			}
		}
	}
	return true
}
