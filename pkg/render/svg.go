package render

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/matzehuels/stratum/pkg/geom"
	"github.com/matzehuels/stratum/pkg/graph"
)

const (
	defaultPadding  = 4.0
	defaultFontSize = 14.0
	arrowHalfWidth  = 0.35 // relative to arrow length
)

// SVGOption configures [SVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	padding  float64
	fontSize float64
	labels   bool
}

// WithPadding sets the blank border around the drawing.
func WithPadding(p float64) SVGOption { return func(r *svgRenderer) { r.padding = p } }

// WithFontSize sets the node label font size.
func WithFontSize(s float64) SVGOption { return func(r *svgRenderer) { r.fontSize = s } }

// WithoutLabels omits node labels.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// SVG renders l as a standalone SVG document.
func SVG(l graph.Layout, opts ...SVGOption) []byte {
	r := svgRenderer{padding: defaultPadding, fontSize: defaultFontSize, labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	w, h := l.Width+2*r.padding, l.Height+2*r.padding
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	fmt.Fprintf(&buf, "  <g transform=\"translate(%.2f %.2f)\" font-family=\"sans-serif\" font-size=\"%.1f\">\n",
		r.padding, r.padding, r.fontSize)

	for _, c := range clustersOuterFirst(l.Clusters) {
		renderCluster(&buf, c)
	}
	for _, e := range l.Edges {
		renderEdge(&buf, e)
	}
	for _, n := range l.Nodes {
		renderNode(&buf, n)
		if r.labels {
			renderLabel(&buf, n)
		}
	}

	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

// clustersOuterFirst orders clusters so that every parent is drawn before
// its children.
func clustersOuterFirst(cs []graph.PlacedCluster) []graph.PlacedCluster {
	parent := make(map[string]string, len(cs))
	for _, c := range cs {
		parent[c.ID] = c.Parent
	}
	depth := func(id string) int {
		d := 0
		for p := parent[id]; p != "" && d <= len(cs); p = parent[p] {
			d++
		}
		return d
	}

	out := make([]graph.PlacedCluster, 0, len(cs))
	for d := 0; len(out) < len(cs) && d <= len(cs); d++ {
		for _, c := range cs {
			if depth(c.ID) == d {
				out = append(out, c)
			}
		}
	}
	return out
}

func renderCluster(buf *bytes.Buffer, c graph.PlacedCluster) {
	fmt.Fprintf(buf, `    <rect class="cluster" id="cluster-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="4" fill="#f5f5f5" stroke="#999"/>`+"\n",
		html.EscapeString(c.ID), c.Box.Left, c.Box.Top, c.Box.Width(), c.Box.Height())
}

func renderNode(buf *bytes.Buffer, n graph.PlacedNode) {
	id := html.EscapeString(n.ID)
	if geom.Shape(n.Shape) == geom.ShapeBox {
		fmt.Fprintf(buf, `    <rect class="node" id="node-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="white" stroke="black"/>`+"\n",
			id, n.X-n.Width/2, n.Y-n.Height/2, n.Width, n.Height)
		return
	}
	fmt.Fprintf(buf, `    <ellipse class="node" id="node-%s" cx="%.2f" cy="%.2f" rx="%.2f" ry="%.2f" fill="white" stroke="black"/>`+"\n",
		id, n.X, n.Y, n.Width/2, n.Height/2)
}

func renderLabel(buf *bytes.Buffer, n graph.PlacedNode) {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	fmt.Fprintf(buf, `    <text x="%.2f" y="%.2f" text-anchor="middle" dominant-baseline="central">%s</text>`+"\n",
		n.X, n.Y, html.EscapeString(label))
}

func renderEdge(buf *bytes.Buffer, e graph.RoutedEdge) {
	if len(e.Points) < 4 {
		return
	}
	var d bytes.Buffer
	fmt.Fprintf(&d, "M%.2f,%.2f", e.Points[0].X, e.Points[0].Y)
	for i := 1; i+2 < len(e.Points); i += 3 {
		fmt.Fprintf(&d, " C%.2f,%.2f %.2f,%.2f %.2f,%.2f",
			e.Points[i].X, e.Points[i].Y, e.Points[i+1].X, e.Points[i+1].Y, e.Points[i+2].X, e.Points[i+2].Y)
	}
	fmt.Fprintf(buf, `    <path class="edge" data-from="%s" data-to="%s" d="%s" fill="none" stroke="black"/>`+"\n",
		html.EscapeString(e.From), html.EscapeString(e.To), d.String())

	if e.HeadArrow != nil {
		renderArrow(buf, e.Points[len(e.Points)-1], *e.HeadArrow)
	}
	if e.TailArrow != nil {
		renderArrow(buf, e.Points[0], *e.TailArrow)
	}
}

// renderArrow draws a triangle whose base is centered on the curve end and
// whose apex is the arrow tip.
func renderArrow(buf *bytes.Buffer, base, tip geom.Point) {
	v := tip.Sub(base)
	length := math.Hypot(v.X, v.Y)
	if length == 0 {
		return
	}
	n := geom.Pt(-v.Y, v.X).Scale(arrowHalfWidth)
	a, b := base.Add(n), base.Sub(n)
	fmt.Fprintf(buf, `    <polygon class="arrow" points="%.2f,%.2f %.2f,%.2f %.2f,%.2f" fill="black"/>`+"\n",
		tip.X, tip.Y, a.X, a.Y, b.X, b.Y)
}
