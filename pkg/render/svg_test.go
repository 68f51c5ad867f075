package render

import (
	"strings"
	"testing"

	"github.com/matzehuels/stratum/pkg/geom"
	"github.com/matzehuels/stratum/pkg/graph"
)

func testLayout() graph.Layout {
	head := geom.Pt(27, 72)
	return graph.Layout{
		Width:  70,
		Height: 124,
		Nodes: []graph.PlacedNode{
			{ID: "a", X: 27, Y: 18, Width: 54, Height: 36, Shape: "ellipse"},
			{ID: "b", Label: "B & co", X: 27, Y: 90, Width: 54, Height: 36, Shape: "box", Cluster: "outer"},
		},
		Edges: []graph.RoutedEdge{{
			From:      "a",
			To:        "b",
			Points:    []geom.Point{{X: 27, Y: 36}, {X: 27, Y: 48}, {X: 27, Y: 54}, {X: 27, Y: 62}},
			HeadArrow: &head,
		}},
		Clusters: []graph.PlacedCluster{
			{ID: "inner", Parent: "outer", Box: geom.Box{Left: 0, Top: 72, Right: 54, Bottom: 108}},
			{ID: "outer", Box: geom.Box{Left: -8, Top: 64, Right: 62, Bottom: 116}},
		},
	}
}

func TestSVG(t *testing.T) {
	svg := string(SVG(testLayout()))

	tests := []struct {
		name string
		want string
	}{
		{"Root", `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 78.00 132.00"`},
		{"Ellipse", `<ellipse class="node" id="node-a" cx="27.00" cy="18.00" rx="27.00" ry="18.00"`},
		{"Box", `<rect class="node" id="node-b" x="0.00" y="72.00"`},
		{"EscapedLabel", `>B &amp; co</text>`},
		{"Path", `d="M27.00,36.00 C27.00,48.00 27.00,54.00 27.00,62.00"`},
		{"Arrow", `<polygon class="arrow" points="27.00,72.00`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(svg, tt.want) {
				t.Errorf("SVG() missing %q in\n%s", tt.want, svg)
			}
		})
	}

	if outer, inner := strings.Index(svg, "cluster-outer"), strings.Index(svg, "cluster-inner"); outer > inner {
		t.Errorf("outer cluster drawn after inner (%d > %d)", outer, inner)
	}
}

func TestSVGOptions(t *testing.T) {
	svg := string(SVG(testLayout(), WithPadding(0), WithFontSize(10), WithoutLabels()))
	if !strings.Contains(svg, `viewBox="0 0 70.00 124.00"`) {
		t.Errorf("padding not applied:\n%s", svg)
	}
	if !strings.Contains(svg, `font-size="10.0"`) {
		t.Errorf("font size not applied:\n%s", svg)
	}
	if strings.Contains(svg, "<text") {
		t.Errorf("labels rendered despite WithoutLabels:\n%s", svg)
	}
}

func TestSVGSkipsUnroutedEdges(t *testing.T) {
	l := testLayout()
	l.Edges[0].Points = nil
	if svg := string(SVG(l)); strings.Contains(svg, "<path") || strings.Contains(svg, "<polygon") {
		t.Errorf("unrouted edge rendered:\n%s", svg)
	}
}
