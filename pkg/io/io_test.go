package io

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
	"github.com/matzehuels/stratum/pkg/graph"
	"github.com/matzehuels/stratum/pkg/layout"
)

const testDOT = `digraph G {
	rankdir=LR; ranksep=1; nodesep=0.5;
	node [shape=box];
	a [width=1, height=0.5];
	b;
	c [label="Cee"];
	a -> b [weight=3, minlen=2];
	b -> c [constraint=false, dir=back];
	subgraph cluster_x {
		label="X"; margin=12;
		b; c;
		subgraph cluster_y { c }
	}
	{ rank=same; a; d }
}`

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"graph.json", FormatJSON, false},
		{"graph.DOT", FormatDOT, false},
		{"graph.gv", FormatDOT, false},
		{"out/layout.svg", FormatSVG, false},
		{"graph.yaml", "", true},
		{"graph", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectFormat(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("DetectFormat(%q) code = %q, want INVALID_FORMAT", tt.path, errors.GetCode(err))
			}
		})
	}
}

func TestParseDOT(t *testing.T) {
	g, err := ParseDOT(context.Background(), []byte(testDOT))
	if err != nil {
		t.Fatalf("ParseDOT: %v", err)
	}

	if g.Attrs.RankDir != "LR" || g.Attrs.RankSep != 72 || g.Attrs.NodeSep != 36 {
		t.Errorf("attrs = %+v, want LR/72/36", g.Attrs)
	}

	nodes := make(map[string]graph.Node)
	for _, n := range g.Nodes {
		nodes[n.ID] = n
	}
	if len(nodes) != 4 {
		t.Fatalf("nodes = %d, want 4", len(nodes))
	}
	if a := nodes["a"]; a.Width != 72 || a.Height != 36 || a.Shape != "box" {
		t.Errorf("a = %+v, want 72x36 box", a)
	}
	if c := nodes["c"]; c.Label != "Cee" {
		t.Errorf("c label = %q, want Cee", c.Label)
	}
	if b := nodes["b"]; b.Label != "" {
		t.Errorf("b label = %q, want none", b.Label)
	}

	if len(g.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(g.Edges))
	}
	for _, e := range g.Edges {
		switch e.From + e.To {
		case "ab":
			if e.Weight == nil || *e.Weight != 3 || e.Minlen == nil || *e.Minlen != 2 {
				t.Errorf("a->b = %+v, want weight 3 minlen 2", e)
			}
		case "bc":
			if e.Constraint == nil || *e.Constraint || e.Dir != "back" {
				t.Errorf("b->c = %+v, want constraint=false dir=back", e)
			}
		default:
			t.Errorf("unexpected edge %s->%s", e.From, e.To)
		}
	}

	clusters := make(map[string]graph.Cluster)
	for _, c := range g.Clusters {
		clusters[c.ID] = c
	}
	x, ok := clusters["cluster_x"]
	if !ok {
		t.Fatalf("clusters = %+v, want cluster_x", g.Clusters)
	}
	if x.Parent != "" || len(x.Nodes) != 2 || x.Margin == nil || *x.Margin != 12 {
		t.Errorf("cluster_x = %+v", x)
	}
	if math.Abs(x.LabelHeight-defaultFontSize*labelLineSpacing) > 1e-9 {
		t.Errorf("cluster_x label height = %g, want %g", x.LabelHeight, defaultFontSize*labelLineSpacing)
	}
	if y := clusters["cluster_y"]; y.Parent != "cluster_x" || len(y.Nodes) != 1 || y.Nodes[0] != "c" {
		t.Errorf("cluster_y = %+v", y)
	}

	if len(g.Ranks) != 1 || g.Ranks[0].Kind != "same" || len(g.Ranks[0].Nodes) != 2 {
		t.Errorf("ranks = %+v, want one same set {a, d}", g.Ranks)
	}
}

func TestReadDOTErrors(t *testing.T) {
	tests := []struct {
		name string
		dot  string
		want errors.Code
	}{
		{"Syntax", `digraph { a -> }`, errors.ErrCodeInvalidFormat},
		{"BadWidth", `digraph { a [width=wide] }`, errors.ErrCodeInvalidInput},
		{"FractionalMinlen", `digraph { a -> b [minlen=1.5] }`, errors.ErrCodeInvalidInput},
		{"BadShape", `digraph { a [shape=star] }`, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDOT(context.Background(), []byte(tt.dot))
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("ReadDOT() code = %q (err %v), want %q", got, err, tt.want)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	dotPath := filepath.Join(dir, "g.dot")
	jsonPath := filepath.Join(dir, "g.json")
	if err := os.WriteFile(dotPath, []byte(`digraph { a -> b }`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jsonPath, []byte(`{"nodes": [{"id": "a"}, {"id": "b"}], "edges": [{"from": "a", "to": "b"}]}`), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{dotPath, jsonPath} {
		g, err := ReadFile(context.Background(), path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", path, err)
		}
		if g.NodeCount() != 2 || g.EdgeCount() != 1 {
			t.Errorf("ReadFile(%s) = %d nodes %d edges, want 2/1", path, g.NodeCount(), g.EdgeCount())
		}
	}

	if _, err := ReadFile(context.Background(), filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("ReadFile(missing) err = %v, want NOT_FOUND", err)
	}
	if _, err := Read(context.Background(), strings.NewReader(""), FormatSVG); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Read(svg) err = %v, want INVALID_FORMAT", err)
	}
}

func TestWriteDOT(t *testing.T) {
	head := geom.Pt(27, 72)
	l := graph.Layout{
		Width: 70, Height: 124, RankDir: "TB",
		Nodes: []graph.PlacedNode{
			{ID: "a", X: 27, Y: 18, Width: 54, Height: 36, Shape: "ellipse"},
			{ID: "b", Label: `say "hi"`, X: 27, Y: 90, Width: 54, Height: 36, Shape: "box", Cluster: "c1"},
		},
		Edges: []graph.RoutedEdge{{
			From: "a", To: "b",
			Points:    []geom.Point{{X: 27, Y: 36}, {X: 27, Y: 48}, {X: 27, Y: 54}, {X: 27, Y: 62}},
			HeadArrow: &head,
		}},
		Clusters: []graph.PlacedCluster{{ID: "c1", Box: geom.Box{Left: 0, Top: 64, Right: 70, Bottom: 124}}},
	}

	var buf bytes.Buffer
	if err := WriteDOT(&buf, l); err != nil {
		t.Fatalf("WriteDOT: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`graph [bb="0,0,70,124", rankdir=TB];`,
		`"a" [pos="27,106", width=0.75, height=0.5, shape=ellipse];`,
		`subgraph "c1" {`,
		`graph [bb="0,0,70,60"];`,
		`"b" [pos="27,34", width=0.75, height=0.5, shape=box, label="say \"hi\""];`,
		`"a" -> "b" [pos="e,27,52 27,88 27,76 27,70 27,62"];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteDOT() missing %q in\n%s", want, out)
		}
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	g, err := ReadDOT(context.Background(), []byte(testDOT))
	if err != nil {
		t.Fatalf("ReadDOT: %v", err)
	}
	opts := layout.Options{}
	if err := graph.ApplyAttrs(g, &opts); err != nil {
		t.Fatalf("ApplyAttrs: %v", err)
	}
	res, err := layout.Layout(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	l := graph.Export(g, res)

	dir := t.TempDir()
	for _, name := range []string{"out.json", "out.dot", "out.svg"} {
		if err := WriteFile(filepath.Join(dir, name), l); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.json"))
	if err != nil {
		t.Fatal(err)
	}
	var back graph.Layout
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.RankDir != "LR" || len(back.Nodes) != 4 || len(back.Clusters) != 2 {
		t.Errorf("layout = rankdir %q, %d nodes, %d clusters", back.RankDir, len(back.Nodes), len(back.Clusters))
	}

	if err := WriteFile(filepath.Join(dir, "out.txt"), l); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("WriteFile(txt) err = %v, want INVALID_FORMAT", err)
	}
}
