// Package io reads input graphs and writes finished layouts in the formats
// the CLI and HTTP server accept.
//
// # Formats
//
// Input graphs come as JSON ([graph.Graph]) or as Graphviz DOT. Layouts are
// written as JSON ([graph.Layout]), as positioned DOT in the style of
// `dot -Tdot`, or as SVG via [render.SVG]. The format is taken from the
// file extension unless given explicitly:
//
//	.json          JSON
//	.dot, .gv      DOT
//	.svg           SVG (output only)
//
// # DOT Import
//
// DOT is parsed with go-graphviz. The importer understands the attributes
// the layout engine uses and ignores the rest:
//
//   - graph: rankdir, ranksep, nodesep (inches), splines
//   - node: width, height (inches), shape, label
//   - edge: weight, minlen, constraint, dir
//   - subgraphs named cluster* become clusters; margin is in points and a
//     non-empty label reserves a label band
//   - subgraphs with rank=same|min|max|source|sink become rank constraints
//
// # Positioned DOT Export
//
// [WriteDOT] annotates the graph with pos, width, height and bb attributes
// in Graphviz's coordinate system (points, y growing upwards), so that the
// result can be rendered with `neato -n2`.
//
// [graph.Graph]: github.com/matzehuels/stratum/pkg/graph.Graph
// [graph.Layout]: github.com/matzehuels/stratum/pkg/graph.Layout
// [render.SVG]: github.com/matzehuels/stratum/pkg/render.SVG
package io
