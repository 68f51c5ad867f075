package graph

import (
	"strings"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultNodeWidth and DefaultNodeHeight size nodes without explicit
	// dimensions (0.75in x 0.5in).
	DefaultNodeWidth  = 54.0
	DefaultNodeHeight = 36.0

	// DefaultClusterMargin pads cluster contents.
	DefaultClusterMargin = 8.0
)

// Graph-level metadata keys written by [ToDAG] and the DOT importer, read by
// [ApplyAttrs].
const (
	AttrRankDir = "rankdir"
	AttrRankSep = "ranksep"
	AttrNodeSep = "nodesep"
	AttrSplines = "splines"
	AttrLabel   = "label"
)

// =============================================================================
// Input Types
// =============================================================================

// Graph is the JSON input format.
type Graph struct {
	Attrs    Attrs     `json:"attrs,omitzero"`
	Nodes    []Node    `json:"nodes"`
	Edges    []Edge    `json:"edges"`
	Clusters []Cluster `json:"clusters,omitempty"`
	Ranks    []Rank    `json:"ranks,omitempty"`
}

// Attrs holds graph-level layout attributes. Zero values leave the layout
// options untouched.
type Attrs struct {
	RankDir string  `json:"rankdir,omitempty"`
	RankSep float64 `json:"ranksep,omitempty"`
	NodeSep float64 `json:"nodesep,omitempty"`
	Splines string  `json:"splines,omitempty"`
}

// Node is an input vertex. Width and Height of zero take the defaults.
type Node struct {
	ID     string         `json:"id"`
	Label  string         `json:"label,omitempty"`
	Width  float64        `json:"width,omitempty"`
	Height float64        `json:"height,omitempty"`
	Shape  string         `json:"shape,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Edge is an input edge. Weight, Minlen and Constraint are pointers so that
// an explicit zero or false can be told apart from "unset".
type Edge struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Weight     *int           `json:"weight,omitempty"`
	Minlen     *int           `json:"minlen,omitempty"`
	Constraint *bool          `json:"constraint,omitempty"`
	Dir        string         `json:"dir,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Cluster is a named group of nodes. Parent names the enclosing cluster;
// empty means top level.
type Cluster struct {
	ID          string         `json:"id"`
	Parent      string         `json:"parent,omitempty"`
	Nodes       []string       `json:"nodes,omitempty"`
	Margin      *float64       `json:"margin,omitempty"`
	LabelHeight float64        `json:"label_height,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Rank is an explicit rank constraint: same, min, max, source or sink.
type Rank struct {
	Kind  string   `json:"kind"`
	Nodes []string `json:"nodes"`
}

// =============================================================================
// Parsing Helpers
// =============================================================================

// ParseShape maps a shape name to a clipping outline. Rectangular shapes
// clip as boxes and round ones as ellipses; the empty string is an ellipse.
func ParseShape(s string) (geom.Shape, error) {
	switch strings.ToLower(s) {
	case "", "ellipse", "oval", "circle", "point", "doublecircle":
		return geom.ShapeEllipse, nil
	case "box", "rect", "rectangle", "square", "record", "plaintext", "plain", "none":
		return geom.ShapeBox, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unsupported node shape %q", s)
}

// ParseDir maps an edge direction. The empty string is forward.
func ParseDir(s string) (dag.Dir, error) {
	switch d := dag.Dir(strings.ToLower(s)); d {
	case "":
		return dag.DirForward, nil
	case dag.DirForward, dag.DirBack, dag.DirBoth, dag.DirNone:
		return d, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unsupported edge dir %q", s)
}

// ParseRankKind maps a rank constraint kind.
func ParseRankKind(s string) (dag.RankKind, error) {
	switch k := dag.RankKind(strings.ToLower(s)); k {
	case dag.RankSame, dag.RankMin, dag.RankMax, dag.RankSource, dag.RankSink:
		return k, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unsupported rank kind %q", s)
}

// =============================================================================
// Conversion
// =============================================================================

// ToDAG builds an arena graph from the input format. It resolves names and
// applies defaults; numeric ranges and topology are checked by the layout
// engine. Unknown node or cluster references fail with NOT_FOUND, malformed
// identifiers and enum values with INVALID_INPUT.
func ToDAG(in Graph) (*dag.Graph, error) {
	g := dag.New(in.Attrs.meta())

	for _, n := range in.Nodes {
		if err := errors.ValidateID("node", n.ID); err != nil {
			return nil, err
		}
		shape, err := ParseShape(n.Shape)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "node %q", n.ID)
		}
		node := dag.Node{
			Name:   n.ID,
			Width:  orDefault(n.Width, DefaultNodeWidth),
			Height: orDefault(n.Height, DefaultNodeHeight),
			Shape:  shape,
			Meta:   copyMeta(n.Meta),
		}
		if n.Label != "" {
			node.Meta[AttrLabel] = n.Label
		}
		if _, err := g.AddNode(node); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "node %q", n.ID)
		}
	}

	for i, e := range in.Edges {
		from, err := lookupNode(g, e.From)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "edge %d tail", i)
		}
		to, err := lookupNode(g, e.To)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "edge %d head", i)
		}
		dir, err := ParseDir(e.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "edge %s->%s", e.From, e.To)
		}
		edge := dag.Edge{
			From:       from,
			To:         to,
			Weight:     intOr(e.Weight, 1),
			Minlen:     intOr(e.Minlen, 1),
			Constraint: e.Constraint == nil || *e.Constraint,
			Dir:        dir,
			Meta:       copyMeta(e.Meta),
		}
		if _, err := g.AddEdge(edge); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "edge %s->%s", e.From, e.To)
		}
	}

	if err := addClusters(g, in.Clusters); err != nil {
		return nil, err
	}

	for i, r := range in.Ranks {
		kind, err := ParseRankKind(r.Kind)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "rank constraint %d", i)
		}
		ids := make([]dag.NodeID, 0, len(r.Nodes))
		for _, name := range r.Nodes {
			id, err := lookupNode(g, name)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeNotFound, err, "rank constraint %d", i)
			}
			ids = append(ids, id)
		}
		if err := g.AddRankConstraint(kind, ids); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "rank constraint %d", i)
		}
	}
	return g, nil
}

// addClusters creates every cluster first so that parents may be declared
// after their children.
func addClusters(g *dag.Graph, clusters []Cluster) error {
	for _, c := range clusters {
		if err := errors.ValidateID("cluster", c.ID); err != nil {
			return err
		}
		id, err := g.AddCluster(c.ID)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "cluster %q", c.ID)
		}
		cl := g.Cluster(id)
		cl.Margin = DefaultClusterMargin
		if c.Margin != nil {
			cl.Margin = *c.Margin
		}
		cl.LabelHeight = c.LabelHeight
		cl.Meta = copyMeta(c.Meta)
	}

	for _, c := range clusters {
		id, _ := g.ClusterByName(c.ID)
		if c.Parent != "" {
			parent, ok := g.ClusterByName(c.Parent)
			if !ok {
				return errors.New(errors.ErrCodeNotFound, "cluster %q: unknown parent %q", c.ID, c.Parent)
			}
			if err := g.SetClusterParent(id, parent); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "cluster %q", c.ID)
			}
		}
		for _, name := range c.Nodes {
			n, err := lookupNode(g, name)
			if err != nil {
				return errors.Wrap(errors.ErrCodeNotFound, err, "cluster %q", c.ID)
			}
			if err := g.AddToCluster(n, id); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "cluster %q", c.ID)
			}
		}
	}
	return nil
}

// FromDAG converts the input part of an arena graph back to the wire
// format. Synthetic nodes and chain segments are skipped; cluster
// membership is taken from resolved direct members when the graph has been
// validated.
func FromDAG(g *dag.Graph) Graph {
	out := Graph{
		Attrs: attrsFromMeta(g.Meta()),
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}

	for _, n := range g.Nodes() {
		if n.Kind != dag.NodeKindReal {
			continue
		}
		node := Node{
			ID:     n.Name,
			Width:  n.Width,
			Height: n.Height,
			Shape:  string(n.Shape),
			Meta:   copyMeta(n.Meta),
		}
		if label, ok := node.Meta[AttrLabel].(string); ok {
			node.Label = label
			delete(node.Meta, AttrLabel)
		}
		if len(node.Meta) == 0 {
			node.Meta = nil
		}
		out.Nodes = append(out.Nodes, node)
	}

	for _, e := range g.Edges() {
		if e.Kind != dag.EdgeKindReal {
			continue
		}
		w, m, c := e.Weight, e.Minlen, e.Constraint
		edge := Edge{
			From:       g.Node(e.From).Name,
			To:         g.Node(e.To).Name,
			Weight:     &w,
			Minlen:     &m,
			Constraint: &c,
			Meta:       copyMeta(e.Meta),
		}
		if e.Dir != dag.DirForward {
			edge.Dir = string(e.Dir)
		}
		if len(edge.Meta) == 0 {
			edge.Meta = nil
		}
		out.Edges = append(out.Edges, edge)
	}

	for _, c := range g.Clusters() {
		margin := c.Margin
		cl := Cluster{ID: c.Name, Margin: &margin, LabelHeight: c.LabelHeight}
		if c.Parent != dag.NoCluster {
			cl.Parent = g.Cluster(c.Parent).Name
		}
		for _, id := range c.Nodes {
			cl.Nodes = append(cl.Nodes, g.Node(id).Name)
		}
		out.Clusters = append(out.Clusters, cl)
	}

	for _, rc := range g.RankConstraints() {
		r := Rank{Kind: string(rc.Kind)}
		for _, id := range rc.Nodes {
			r.Nodes = append(r.Nodes, g.Node(id).Name)
		}
		out.Ranks = append(out.Ranks, r)
	}
	return out
}

// =============================================================================
// Internal Helpers
// =============================================================================

func lookupNode(g *dag.Graph, name string) (dag.NodeID, error) {
	id, ok := g.NodeByName(name)
	if !ok {
		return dag.NoNode, errors.New(errors.ErrCodeNotFound, "unknown node %q", name)
	}
	return id, nil
}

func (a Attrs) meta() dag.Metadata {
	m := dag.Metadata{}
	if a.RankDir != "" {
		m[AttrRankDir] = strings.ToUpper(a.RankDir)
	}
	if a.RankSep != 0 {
		m[AttrRankSep] = a.RankSep
	}
	if a.NodeSep != 0 {
		m[AttrNodeSep] = a.NodeSep
	}
	if a.Splines != "" {
		m[AttrSplines] = a.Splines
	}
	return m
}

func attrsFromMeta(m dag.Metadata) Attrs {
	var a Attrs
	a.RankDir, _ = m[AttrRankDir].(string)
	a.RankSep, _ = m[AttrRankSep].(float64)
	a.NodeSep, _ = m[AttrNodeSep].(float64)
	a.Splines, _ = m[AttrSplines].(string)
	return a
}

func copyMeta(m map[string]any) dag.Metadata {
	out := make(dag.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
