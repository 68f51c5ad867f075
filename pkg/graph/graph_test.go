package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/position"
	"github.com/matzehuels/stratum/pkg/spline"
)

func ptr[T any](v T) *T { return &v }

func TestToDAG(t *testing.T) {
	tests := []struct {
		name     string
		input    Graph
		wantCode errors.Code
		check    func(t *testing.T, g *dag.Graph)
	}{
		{
			name: "Defaults",
			input: Graph{
				Nodes: []Node{{ID: "a"}, {ID: "b", Shape: "box", Label: "B"}},
				Edges: []Edge{{From: "a", To: "b"}},
			},
			check: func(t *testing.T, g *dag.Graph) {
				a := g.Node(0)
				if a.Width != DefaultNodeWidth || a.Height != DefaultNodeHeight {
					t.Errorf("size = %gx%g, want %gx%g", a.Width, a.Height, DefaultNodeWidth, DefaultNodeHeight)
				}
				if a.Shape != geom.ShapeEllipse {
					t.Errorf("shape = %q, want ellipse", a.Shape)
				}
				if g.Node(1).Shape != geom.ShapeBox {
					t.Errorf("shape = %q, want box", g.Node(1).Shape)
				}
				if got := g.Node(1).Meta[AttrLabel]; got != "B" {
					t.Errorf("label = %v, want B", got)
				}
				e := g.Edge(0)
				if e.Weight != 1 || e.Minlen != 1 || !e.Constraint || e.Dir != dag.DirForward {
					t.Errorf("edge = %+v, want weight 1 minlen 1 constraint forward", e)
				}
			},
		},
		{
			name: "ExplicitZeros",
			input: Graph{
				Nodes: []Node{{ID: "a"}, {ID: "b"}},
				Edges: []Edge{{From: "a", To: "b", Weight: ptr(0), Minlen: ptr(0), Constraint: ptr(false), Dir: "both"}},
			},
			check: func(t *testing.T, g *dag.Graph) {
				e := g.Edge(0)
				if e.Weight != 0 || e.Minlen != 0 || e.Constraint || e.Dir != dag.DirBoth {
					t.Errorf("edge = %+v, want weight 0 minlen 0 no constraint both", e)
				}
			},
		},
		{
			name: "ClustersDeclaredOutOfOrder",
			input: Graph{
				Nodes: []Node{{ID: "a"}, {ID: "b"}},
				Clusters: []Cluster{
					{ID: "inner", Parent: "outer", Nodes: []string{"a"}},
					{ID: "outer", Nodes: []string{"a", "b"}, Margin: ptr(4.0), LabelHeight: 12},
				},
			},
			check: func(t *testing.T, g *dag.Graph) {
				inner, _ := g.ClusterByName("inner")
				outer, _ := g.ClusterByName("outer")
				if got := g.Cluster(inner).Parent; got != outer {
					t.Errorf("inner parent = %d, want %d", got, outer)
				}
				if got := g.Cluster(inner).Margin; got != DefaultClusterMargin {
					t.Errorf("inner margin = %g, want %g", got, DefaultClusterMargin)
				}
				if c := g.Cluster(outer); c.Margin != 4 || c.LabelHeight != 12 {
					t.Errorf("outer margin/label = %g/%g, want 4/12", c.Margin, c.LabelHeight)
				}
				if err := g.Validate(); err != nil {
					t.Fatalf("Validate: %v", err)
				}
				if got := g.Node(0).Cluster; got != inner {
					t.Errorf("a cluster = %d, want innermost %d", got, inner)
				}
			},
		},
		{
			name: "RankConstraint",
			input: Graph{
				Nodes: []Node{{ID: "a"}, {ID: "b"}},
				Ranks: []Rank{{Kind: "Same", Nodes: []string{"a", "b"}}},
			},
			check: func(t *testing.T, g *dag.Graph) {
				rcs := g.RankConstraints()
				if len(rcs) != 1 || rcs[0].Kind != dag.RankSame || len(rcs[0].Nodes) != 2 {
					t.Errorf("rank constraints = %+v, want one same set of 2", rcs)
				}
			},
		},
		{
			name:  "Attrs",
			input: Graph{Attrs: Attrs{RankDir: "lr", RankSep: 50}},
			check: func(t *testing.T, g *dag.Graph) {
				if got := g.Meta()[AttrRankDir]; got != "LR" {
					t.Errorf("rankdir = %v, want LR", got)
				}
				if got := g.Meta()[AttrRankSep]; got != 50.0 {
					t.Errorf("ranksep = %v, want 50", got)
				}
			},
		},
		{
			name:     "EmptyNodeID",
			input:    Graph{Nodes: []Node{{ID: ""}}},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "DuplicateNode",
			input:    Graph{Nodes: []Node{{ID: "a"}, {ID: "a"}}},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "UnknownEdgeEndpoint",
			input:    Graph{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{From: "a", To: "zz"}}},
			wantCode: errors.ErrCodeNotFound,
		},
		{
			name:     "BadShape",
			input:    Graph{Nodes: []Node{{ID: "a", Shape: "hexagon"}}},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "BadDir",
			input:    Graph{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{From: "a", To: "a", Dir: "sideways"}}},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "BadRankKind",
			input:    Graph{Nodes: []Node{{ID: "a"}}, Ranks: []Rank{{Kind: "middle", Nodes: []string{"a"}}}},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "UnknownClusterParent",
			input:    Graph{Clusters: []Cluster{{ID: "c", Parent: "nope"}}},
			wantCode: errors.ErrCodeNotFound,
		},
		{
			name:     "UnknownClusterMember",
			input:    Graph{Clusters: []Cluster{{ID: "c", Nodes: []string{"ghost"}}}},
			wantCode: errors.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ToDAG(tt.input)
			if tt.wantCode != "" {
				if got := errors.GetCode(err); got != tt.wantCode {
					t.Fatalf("ToDAG() code = %q (err %v), want %q", got, err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToDAG: %v", err)
			}
			if tt.check != nil {
				tt.check(t, g)
			}
		})
	}
}

func TestFromDAG(t *testing.T) {
	in := Graph{
		Attrs: Attrs{RankDir: "BT"},
		Nodes: []Node{{ID: "a", Label: "A"}, {ID: "b", Width: 10, Height: 20, Shape: "box"}},
		Edges: []Edge{{From: "a", To: "b", Minlen: ptr(2), Dir: "back"}},
		Clusters: []Cluster{
			{ID: "c", Nodes: []string{"b"}},
		},
		Ranks: []Rank{{Kind: "min", Nodes: []string{"a"}}},
	}
	g, err := ToDAG(in)
	if err != nil {
		t.Fatalf("ToDAG: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	out := FromDAG(g)
	if out.Attrs.RankDir != "BT" {
		t.Errorf("rankdir = %q, want BT", out.Attrs.RankDir)
	}
	if len(out.Nodes) != 2 || out.Nodes[0].Label != "A" || out.Nodes[0].Meta != nil {
		t.Errorf("nodes = %+v, want label moved out of meta", out.Nodes)
	}
	if got := out.Nodes[1]; got.Width != 10 || got.Height != 20 || got.Shape != "box" {
		t.Errorf("node b = %+v", got)
	}
	if e := out.Edges[0]; *e.Minlen != 2 || *e.Weight != 1 || e.Dir != "back" {
		t.Errorf("edge = %+v", e)
	}
	if len(out.Clusters) != 1 || len(out.Clusters[0].Nodes) != 1 || out.Clusters[0].Nodes[0] != "b" {
		t.Errorf("clusters = %+v", out.Clusters)
	}
	if len(out.Ranks) != 1 || out.Ranks[0].Kind != "min" {
		t.Errorf("ranks = %+v", out.Ranks)
	}
}

func TestReadGraph(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		wantEdges int
		wantCode  errors.Code
	}{
		{
			name: "Valid",
			input: `{
				"nodes": [{"id": "A", "meta": {"version": "1.0"}}, {"id": "B"}],
				"edges": [{"from": "A", "to": "B"}]
			}`,
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name:  "Empty",
			input: `{"nodes": [], "edges": []}`,
		},
		{
			name:     "Invalid",
			input:    `{invalid json}`,
			wantCode: errors.ErrCodeInvalidFormat,
		},
		{
			name:     "UnknownNode",
			input:    `{"nodes": [{"id": "A"}], "edges": [{"from": "A", "to": "B"}]}`,
			wantCode: errors.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGraph(strings.NewReader(tt.input))
			if tt.wantCode != "" {
				if got := errors.GetCode(err); got != tt.wantCode {
					t.Fatalf("ReadGraph() code = %q, want %q", got, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadGraph: %v", err)
			}
			if got := g.NodeCount(); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := g.EdgeCount(); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
		})
	}
}

func TestReadGraphFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.json")
	if err := os.WriteFile(path, []byte(`{"nodes": [{"id": "A"}], "edges": []}`), 0644); err != nil {
		t.Fatal(err)
	}

	g, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}
	if g.NodeCount() != 1 {
		t.Errorf("nodes = %d, want 1", g.NodeCount())
	}
}

func TestReadGraphFileNotFound(t *testing.T) {
	_, err := ReadGraphFile("nonexistent.json")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("ReadGraphFile() err = %v, want NOT_FOUND", err)
	}
}

func TestWriteGraph(t *testing.T) {
	g := dag.New(nil)
	a, _ := g.AddNode(dag.Node{Name: "a", Width: 54, Height: 36})
	b, _ := g.AddNode(dag.Node{Name: "b", Width: 54, Height: 36})
	_, _ = g.AddEdge(dag.Edge{From: a, To: b, Weight: 1, Minlen: 1, Constraint: true})

	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		t.Fatalf("WriteGraph: %v", err)
	}

	var result Graph
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.Nodes) != 2 || len(result.Edges) != 1 {
		t.Errorf("nodes/edges = %d/%d, want 2/1", len(result.Nodes), len(result.Edges))
	}
	if strings.Contains(buf.String(), "attrs") {
		t.Errorf("empty attrs serialized: %s", buf.String())
	}
}

func TestApplyAttrs(t *testing.T) {
	tests := []struct {
		name     string
		attrs    Attrs
		opts     layout.Options
		want     layout.Options
		wantCode errors.Code
	}{
		{
			name:  "FillsUnset",
			attrs: Attrs{RankDir: "LR", RankSep: 72, NodeSep: 9, Splines: "false"},
			want:  layout.Options{RankDir: position.RankDirLR, RankSep: 72, NodeSep: 9, Splines: spline.ModeLine},
		},
		{
			name:  "ExplicitOptionsWin",
			attrs: Attrs{RankDir: "LR", RankSep: 72},
			opts:  layout.Options{RankDir: position.RankDirBT, RankSep: 10},
			want:  layout.Options{RankDir: position.RankDirBT, RankSep: 10},
		},
		{
			name:     "BadRankDir",
			attrs:    Attrs{RankDir: "diagonal"},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "OrthoUnsupported",
			attrs:    Attrs{Splines: "ortho"},
			wantCode: errors.ErrCodeUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ToDAG(Graph{Attrs: tt.attrs})
			if err != nil {
				t.Fatalf("ToDAG: %v", err)
			}
			opts := tt.opts
			err = ApplyAttrs(g, &opts)
			if tt.wantCode != "" {
				if got := errors.GetCode(err); got != tt.wantCode {
					t.Fatalf("ApplyAttrs() code = %q, want %q", got, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyAttrs: %v", err)
			}
			if opts.RankDir != tt.want.RankDir || opts.RankSep != tt.want.RankSep ||
				opts.NodeSep != tt.want.NodeSep || opts.Splines != tt.want.Splines {
				t.Errorf("ApplyAttrs() = %+v, want %+v", opts, tt.want)
			}
		})
	}
}

func TestExport(t *testing.T) {
	g, err := ToDAG(Graph{
		Nodes:    []Node{{ID: "a"}, {ID: "b"}},
		Edges:    []Edge{{From: "a", To: "b"}},
		Clusters: []Cluster{{ID: "c", Nodes: []string{"b"}}},
	})
	if err != nil {
		t.Fatalf("ToDAG: %v", err)
	}
	res, err := layout.Layout(context.Background(), g, layout.Options{})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	l := Export(g, res)
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if l.Stats.RunID == "" || l.Stats.RunID != res.RunID {
		t.Errorf("run id = %q, want %q", l.Stats.RunID, res.RunID)
	}
	if l.Width != res.Bounds.Width() || l.Height != res.Bounds.Height() {
		t.Errorf("size = %gx%g, want bounds size", l.Width, l.Height)
	}

	frame := geom.Box{Right: l.Width, Bottom: l.Height}
	for _, n := range l.Nodes {
		if !frame.ContainsBox(geom.BoxAt(geom.Pt(n.X, n.Y), n.Width, n.Height), 1e-6) {
			t.Errorf("node %s at (%g,%g) outside %gx%g", n.ID, n.X, n.Y, l.Width, l.Height)
		}
	}
	if b, _ := l.Node("b"); b.Cluster != "c" {
		t.Errorf("b cluster = %q, want c", b.Cluster)
	}
	if len(l.Clusters) != 1 || !frame.ContainsBox(l.Clusters[0].Box, 1e-6) {
		t.Errorf("clusters = %+v, want one inside the frame", l.Clusters)
	}
	if got := len(l.Edges[0].Points); got != 4 {
		t.Errorf("points = %d, want 4", got)
	}
	if l.Edges[0].HeadArrow == nil {
		t.Error("head arrow missing")
	}

	data, err := MarshalLayout(l)
	if err != nil {
		t.Fatalf("MarshalLayout: %v", err)
	}
	if !strings.Contains(string(data), `"run_id"`) || !strings.Contains(string(data), `"crossings"`) {
		t.Errorf("stats not flattened: %s", data)
	}
}

func TestUnmarshalLayout(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid", `{"width": 10, "height": 10, "nodes": [{"id": "a"}], "edges": [{"from": "a", "to": "a"}]}`, false},
		{"BadJSON", `{`, true},
		{"NegativeWidth", `{"width": -1, "height": 1, "nodes": [], "edges": []}`, true},
		{"UnknownNode", `{"width": 1, "height": 1, "nodes": [], "edges": [{"from": "a", "to": "b"}]}`, true},
		{"BadPointCount", `{"width": 1, "height": 1, "nodes": [{"id": "a"}], "edges": [{"from": "a", "to": "a", "points": [{"x":0,"y":0},{"x":1,"y":1}]}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalLayout([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalLayout() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("UnmarshalLayout() code = %q, want INVALID_FORMAT", errors.GetCode(err))
			}
		})
	}
}

func TestLayoutFileRoundTrip(t *testing.T) {
	l := Layout{
		Width: 10, Height: 20,
		Nodes: []PlacedNode{{ID: "a", X: 5, Y: 5, Width: 4, Height: 4}},
		Edges: []RoutedEdge{},
	}
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteLayoutFile(l, path); err != nil {
		t.Fatalf("WriteLayoutFile: %v", err)
	}
	got, err := ReadLayoutFile(path)
	if err != nil {
		t.Fatalf("ReadLayoutFile: %v", err)
	}
	if n, ok := got.Node("a"); !ok || n.X != 5 {
		t.Errorf("node a = %+v, %v", n, ok)
	}
}
