package io

import (
	"context"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/graph"
)

const (
	pointsPerInch = 72.0

	// Cluster label bands are sized from the label's line count.
	defaultFontSize  = 14.0
	labelLineSpacing = 1.2
)

// ReadDOT parses DOT source into an arena graph.
func ReadDOT(ctx context.Context, data []byte) (*dag.Graph, error) {
	in, err := ParseDOT(ctx, data)
	if err != nil {
		return nil, err
	}
	return graph.ToDAG(in)
}

// ParseDOT converts DOT source to the JSON input model. Syntax errors fail
// with INVALID_FORMAT, unparseable attribute values with INVALID_INPUT.
func ParseDOT(ctx context.Context, data []byte) (graph.Graph, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return graph.Graph{}, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	cg, err := graphviz.ParseBytes(data)
	if err != nil {
		return graph.Graph{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer cg.Close()

	r := &dotReader{}
	if err := r.graphAttrs(cg); err != nil {
		return graph.Graph{}, err
	}
	if err := r.nodes(cg); err != nil {
		return graph.Graph{}, err
	}
	if err := r.edges(cg); err != nil {
		return graph.Graph{}, err
	}
	if err := r.subgraphs(cg, ""); err != nil {
		return graph.Graph{}, err
	}
	if r.out.Nodes == nil {
		r.out.Nodes = []graph.Node{}
	}
	if r.out.Edges == nil {
		r.out.Edges = []graph.Edge{}
	}
	return r.out, nil
}

type dotReader struct {
	out graph.Graph
}

func (r *dotReader) graphAttrs(g *cgraph.Graph) error {
	a := &r.out.Attrs
	a.RankDir = g.GetStr("rankdir")
	a.Splines = g.GetStr("splines")

	var err error
	// ranksep may carry a trailing "equally".
	if a.RankSep, err = inches("ranksep", firstField(g.GetStr("ranksep"))); err != nil {
		return err
	}
	if a.NodeSep, err = inches("nodesep", g.GetStr("nodesep")); err != nil {
		return err
	}
	return nil
}

func (r *dotReader) nodes(g *cgraph.Graph) error {
	return eachNode(g, func(n *cgraph.Node) error {
		name, err := n.Name()
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "node name")
		}
		node := graph.Node{ID: name, Shape: n.GetStr("shape")}
		if node.Width, err = inches("node "+name+" width", n.GetStr("width")); err != nil {
			return err
		}
		if node.Height, err = inches("node "+name+" height", n.GetStr("height")); err != nil {
			return err
		}
		if label := n.GetStr("label"); label != "" && label != `\N` && label != name {
			node.Label = label
		}
		r.out.Nodes = append(r.out.Nodes, node)
		return nil
	})
}

func (r *dotReader) edges(g *cgraph.Graph) error {
	return eachNode(g, func(n *cgraph.Node) error {
		e, err := g.FirstOut(n)
		for e != nil && err == nil {
			if err := r.edge(e); err != nil {
				return err
			}
			e, err = g.NextOut(e)
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "edge iteration")
		}
		return nil
	})
}

func (r *dotReader) edge(e *cgraph.Edge) error {
	tail, err := e.Tail()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "edge tail")
	}
	head, err := e.Head()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "edge head")
	}
	from, _ := tail.Name()
	to, _ := head.Name()
	name := from + "->" + to

	out := graph.Edge{From: from, To: to, Dir: e.GetStr("dir")}
	if out.Weight, err = optInt(name+" weight", e.GetStr("weight")); err != nil {
		return err
	}
	if out.Minlen, err = optInt(name+" minlen", e.GetStr("minlen")); err != nil {
		return err
	}
	if v := e.GetStr("constraint"); v != "" {
		c := parseBool(v)
		out.Constraint = &c
	}
	r.out.Edges = append(r.out.Edges, out)
	return nil
}

// subgraphs walks nested subgraphs. Subgraphs inherit attribute values from
// their parent, so only values that differ from the parent's count.
func (r *dotReader) subgraphs(g *cgraph.Graph, cluster string) error {
	sub, err := g.FirstSubGraph()
	for sub != nil && err == nil {
		name, _ := sub.Name()
		members, nerr := nodeNames(sub)
		if nerr != nil {
			return nerr
		}

		inner := cluster
		if strings.HasPrefix(name, "cluster") {
			c := graph.Cluster{ID: name, Parent: cluster, Nodes: members}
			if v := sub.GetStr("margin"); v != "" && v != g.GetStr("margin") {
				m, err := strconv.ParseFloat(firstField(strings.ReplaceAll(v, ",", " ")), 64)
				if err != nil {
					return errors.New(errors.ErrCodeInvalidInput, "cluster %s margin %q is not a number", name, v)
				}
				c.Margin = &m
			}
			if label := sub.GetStr("label"); label != "" && label != g.GetStr("label") {
				c.LabelHeight = labelHeight(label, sub.GetStr("fontsize"))
			}
			r.out.Clusters = append(r.out.Clusters, c)
			inner = name
		}

		if kind := sub.GetStr("rank"); kind != "" && kind != g.GetStr("rank") && len(members) > 0 {
			r.out.Ranks = append(r.out.Ranks, graph.Rank{Kind: kind, Nodes: members})
		}

		if err := r.subgraphs(sub, inner); err != nil {
			return err
		}
		sub, err = sub.NextSubGraph()
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "subgraph iteration")
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func eachNode(g *cgraph.Graph, fn func(*cgraph.Node) error) error {
	n, err := g.FirstNode()
	for n != nil && err == nil {
		if err := fn(n); err != nil {
			return err
		}
		n, err = g.NextNode(n)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "node iteration")
	}
	return nil
}

func nodeNames(g *cgraph.Graph) ([]string, error) {
	var names []string
	err := eachNode(g, func(n *cgraph.Node) error {
		name, err := n.Name()
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "node name")
		}
		names = append(names, name)
		return nil
	})
	return names, err
}

// inches converts a DOT length in inches to points. Empty means unset.
func inches(what, v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s %q is not a number", what, v)
	}
	return f * pointsPerInch, nil
}

func optInt(what, v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s %q is not an integer", what, v)
	}
	i := int(f)
	return &i, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "false", "no", "0":
		return false
	}
	return true
}

func firstField(v string) string {
	if f := strings.Fields(v); len(f) > 0 {
		return f[0]
	}
	return ""
}

func labelHeight(label, fontsize string) float64 {
	size := defaultFontSize
	if f, err := strconv.ParseFloat(fontsize, 64); err == nil && f > 0 {
		size = f
	}
	lines := strings.Count(label, `\n`) + strings.Count(label, "\n") + 1
	return float64(lines) * size * labelLineSpacing
}
