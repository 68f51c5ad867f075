package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
	"github.com/matzehuels/stratum/pkg/layout"
)

// =============================================================================
// Layout - Positioned Output Format
// =============================================================================

// Layout is the serialized result of a layout run.
//
// Width and Height are the drawing size; all coordinates lie inside
// [0, Width] x [0, Height]. Nodes, edges and clusters appear in input
// order. Rank counts rank lines across the whole drawing, clusters
// included; Order is local to the node's rank within its innermost
// cluster.
type Layout struct {
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	RankDir  string          `json:"rankdir,omitempty"`
	Nodes    []PlacedNode    `json:"nodes"`
	Edges    []RoutedEdge    `json:"edges"`
	Clusters []PlacedCluster `json:"clusters,omitempty"`
	Stats    Stats           `json:"stats"`
}

// PlacedNode is a node with its center position.
type PlacedNode struct {
	ID      string  `json:"id"`
	Label   string  `json:"label,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Shape   string  `json:"shape,omitempty"`
	Rank    int     `json:"rank"`
	Order   int     `json:"order"`
	Cluster string  `json:"cluster,omitempty"`
}

// RoutedEdge is an edge with its Bezier control points. Points is empty
// when routing was disabled or failed for this edge.
type RoutedEdge struct {
	From      string       `json:"from"`
	To        string       `json:"to"`
	Points    []geom.Point `json:"points,omitempty"`
	HeadArrow *geom.Point  `json:"head_arrow,omitempty"`
	TailArrow *geom.Point  `json:"tail_arrow,omitempty"`
	Reversed  bool         `json:"reversed,omitempty"`
}

// PlacedCluster is a cluster with its bounding box.
type PlacedCluster struct {
	ID     string   `json:"id"`
	Parent string   `json:"parent,omitempty"`
	Box    geom.Box `json:"box"`
}

// Stats carries the run ID alongside the engine's counters.
type Stats struct {
	RunID string `json:"run_id"`
	layout.Stats
}

// =============================================================================
// Conversion
// =============================================================================

// Export converts a laid-out graph to the wire format. The drawing is
// shifted so that res.Bounds starts at the origin; g itself is not
// modified.
func Export(g *dag.Graph, res *layout.Result) Layout {
	dx, dy := 0.0, 0.0
	w, h := 0.0, 0.0
	if !res.Bounds.IsEmpty() {
		dx, dy = -res.Bounds.Left, -res.Bounds.Top
		w, h = res.Bounds.Width(), res.Bounds.Height()
	}
	shift := func(p geom.Point) geom.Point { return geom.Pt(p.X+dx, p.Y+dy) }

	l := Layout{
		Width:  w,
		Height: h,
		Nodes:  make([]PlacedNode, 0, g.NodeCount()),
		Edges:  make([]RoutedEdge, 0, g.EdgeCount()),
		Stats:  Stats{RunID: res.RunID, Stats: res.Stats},
	}
	if dir, ok := g.Meta()[AttrRankDir].(string); ok {
		l.RankDir = dir
	}

	for _, n := range g.Nodes() {
		if n.Kind != dag.NodeKindReal {
			continue
		}
		pn := PlacedNode{
			ID:     n.Name,
			X:      n.X + dx,
			Y:      n.Y + dy,
			Width:  n.Width,
			Height: n.Height,
			Shape:  string(n.Shape),
			Rank:   n.Rank,
			Order:  n.Order,
		}
		pn.Label, _ = n.Meta[AttrLabel].(string)
		if n.Cluster != dag.NoCluster {
			pn.Cluster = g.Cluster(n.Cluster).Name
		}
		l.Nodes = append(l.Nodes, pn)
	}

	for _, e := range g.Edges() {
		if e.Kind != dag.EdgeKindReal {
			continue
		}
		re := RoutedEdge{
			From:     g.Node(e.From).Name,
			To:       g.Node(e.To).Name,
			Reversed: e.Reversed,
		}
		if len(e.Points) > 0 {
			re.Points = make([]geom.Point, len(e.Points))
			for i, p := range e.Points {
				re.Points[i] = shift(p)
			}
		}
		if e.HeadArrow != nil {
			p := shift(*e.HeadArrow)
			re.HeadArrow = &p
		}
		if e.TailArrow != nil {
			p := shift(*e.TailArrow)
			re.TailArrow = &p
		}
		l.Edges = append(l.Edges, re)
	}

	for _, c := range g.Clusters() {
		pc := PlacedCluster{ID: c.Name, Box: c.Box.Translate(dx, dy)}
		if c.Parent != dag.NoCluster {
			pc.Parent = g.Cluster(c.Parent).Name
		}
		l.Clusters = append(l.Clusters, pc)
	}
	return l
}

// Validate checks that a decoded layout is usable: finite non-negative
// dimensions and edges that reference known nodes.
func (l *Layout) Validate() error {
	if !finite(l.Width) || !finite(l.Height) || l.Width < 0 || l.Height < 0 {
		return errors.New(errors.ErrCodeInvalidFormat, "layout size %gx%g is invalid", l.Width, l.Height)
	}
	ids := make(map[string]bool, len(l.Nodes))
	for _, n := range l.Nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidFormat, "layout node without id")
		}
		ids[n.ID] = true
	}
	for _, e := range l.Edges {
		if !ids[e.From] || !ids[e.To] {
			return errors.New(errors.ErrCodeInvalidFormat, "layout edge %s->%s references unknown node", e.From, e.To)
		}
		if len(e.Points) > 0 && (len(e.Points)-1)%3 != 0 {
			return errors.New(errors.ErrCodeInvalidFormat, "layout edge %s->%s has %d control points", e.From, e.To, len(e.Points))
		}
	}
	return nil
}

// Node returns the placed node with the given ID.
func (l *Layout) Node(id string) (PlacedNode, bool) {
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PlacedNode{}, false
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout and validates it.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "unmarshal layout")
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
