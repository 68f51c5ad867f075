package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
	"github.com/matzehuels/stratum/pkg/graph"
	"github.com/matzehuels/stratum/pkg/render"
)

// Write encodes a layout in the given format.
func Write(w io.Writer, l graph.Layout, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, l)
	case FormatDOT:
		return WriteDOT(w, l)
	case FormatSVG:
		_, err := w.Write(render.SVG(l))
		return err
	}
	return errors.New(errors.ErrCodeInvalidFormat, "format %q cannot be written", format)
}

// WriteFile writes a layout to path, detecting the format from the
// extension.
func WriteFile(path string, l graph.Layout) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, l, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes the layout as indented JSON.
func WriteJSON(w io.Writer, l graph.Layout) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteDOT writes the layout as positioned DOT. Coordinates are flipped
// into Graphviz's y-up system; sizes are in inches as Graphviz expects.
func WriteDOT(w io.Writer, l graph.Layout) error {
	d := &dotWriter{w: bufio.NewWriter(w), l: l}
	d.write()
	return d.w.Flush()
}

type dotWriter struct {
	w *bufio.Writer
	l graph.Layout
}

func (d *dotWriter) write() {
	fmt.Fprintf(d.w, "digraph {\n")
	attrs := []string{"bb=" + quote(d.box(geom.Box{Right: d.l.Width, Bottom: d.l.Height}))}
	if d.l.RankDir != "" {
		attrs = append(attrs, "rankdir="+d.l.RankDir)
	}
	fmt.Fprintf(d.w, "\tgraph [%s];\n", strings.Join(attrs, ", "))

	members := make(map[string][]graph.PlacedNode)
	for _, n := range d.l.Nodes {
		members[n.Cluster] = append(members[n.Cluster], n)
	}
	children := make(map[string][]graph.PlacedCluster)
	for _, c := range d.l.Clusters {
		children[c.Parent] = append(children[c.Parent], c)
	}
	d.cluster("", members, children, 1)

	for _, e := range d.l.Edges {
		fmt.Fprintf(d.w, "\t%s -> %s", quote(e.From), quote(e.To))
		if pos := d.edgePos(e); pos != "" {
			fmt.Fprintf(d.w, " [pos=%s]", quote(pos))
		}
		fmt.Fprintf(d.w, ";\n")
	}
	fmt.Fprintf(d.w, "}\n")
}

// cluster writes the nodes and subclusters of one cluster. The root is "".
func (d *dotWriter) cluster(id string, members map[string][]graph.PlacedNode, children map[string][]graph.PlacedCluster, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, n := range members[id] {
		attrs := []string{
			"pos=" + quote(d.point(geom.Pt(n.X, n.Y))),
			"width=" + num(n.Width/pointsPerInch),
			"height=" + num(n.Height/pointsPerInch),
		}
		if n.Shape != "" {
			attrs = append(attrs, "shape="+n.Shape)
		}
		if n.Label != "" {
			attrs = append(attrs, "label="+quote(n.Label))
		}
		fmt.Fprintf(d.w, "%s%s [%s];\n", indent, quote(n.ID), strings.Join(attrs, ", "))
	}
	for _, c := range children[id] {
		fmt.Fprintf(d.w, "%ssubgraph %s {\n", indent, quote(c.ID))
		fmt.Fprintf(d.w, "%s\tgraph [bb=%s];\n", indent, quote(d.box(c.Box)))
		d.cluster(c.ID, members, children, depth+1)
		fmt.Fprintf(d.w, "%s}\n", indent)
	}
}

// edgePos renders Graphviz's "e,x,y s,x,y p0 p1 ..." spline attribute.
func (d *dotWriter) edgePos(e graph.RoutedEdge) string {
	if len(e.Points) == 0 {
		return ""
	}
	var parts []string
	if e.HeadArrow != nil {
		parts = append(parts, "e,"+d.point(*e.HeadArrow))
	}
	if e.TailArrow != nil {
		parts = append(parts, "s,"+d.point(*e.TailArrow))
	}
	for _, p := range e.Points {
		parts = append(parts, d.point(p))
	}
	return strings.Join(parts, " ")
}

func (d *dotWriter) point(p geom.Point) string {
	return num(p.X) + "," + num(d.l.Height-p.Y)
}

func (d *dotWriter) box(b geom.Box) string {
	return num(b.Left) + "," + num(d.l.Height-b.Bottom) + "," + num(b.Right) + "," + num(d.l.Height-b.Top)
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
