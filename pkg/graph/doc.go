// Package graph provides the JSON wire formats for input graphs and finished
// layouts.
//
// This package is the serialization boundary between the layout engine's
// arena graph ([dag.Graph]) and the outside world: files, HTTP bodies and
// cache entries all use the types defined here.
//
// # Core Types
//
//   - [Graph]: input graph with nodes, edges, clusters and rank constraints
//   - [Attrs]: graph-level layout attributes (rankdir, ranksep, ...)
//   - [Layout]: positioned nodes, routed edges and cluster boxes
//
// Use [ToDAG]/[FromDAG] to convert input graphs and [Export] to turn a laid
// out graph into a [Layout].
//
// # Graph Serialization
//
//	{
//	  "attrs": {"rankdir": "LR"},
//	  "nodes": [{"id": "a"}, {"id": "b", "shape": "box"}],
//	  "edges": [{"from": "a", "to": "b", "minlen": 2}],
//	  "clusters": [{"id": "c1", "nodes": ["b"]}],
//	  "ranks": [{"kind": "same", "nodes": ["a"]}]
//	}
//
// Omitted fields take dot's defaults: 54x36 ellipse nodes, weight 1,
// minlen 1, constraint true, forward direction and an 8 unit cluster
// margin.
//
// # Layout Serialization
//
// Coordinates are in points with the origin at the top-left corner of the
// drawing and y growing downwards. Edge points are cubic Bezier control
// points (3n+1 of them) from tail to head.
//
//	{
//	  "width": 54, "height": 108,
//	  "nodes": [{"id": "a", "x": 27, "y": 18, "width": 54, "height": 36, "rank": 0}],
//	  "edges": [{"from": "a", "to": "b", "points": [...], "head_arrow": {...}}],
//	  "stats": {"run_id": "...", "crossings": 0}
//	}
//
// # File I/O
//
//	g, err := graph.ReadGraphFile("graph.json")
//	err = graph.WriteLayoutFile(l, "layout.json")
//
// [dag.Graph]: github.com/matzehuels/stratum/pkg/dag.Graph
package graph
