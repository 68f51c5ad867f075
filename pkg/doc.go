// Package pkg provides the libraries behind stratum, a hierarchical graph
// layout engine in the style of Graphviz dot.
//
// # Overview
//
// Stratum takes a directed graph with node sizes, edge weights, clusters
// and rank constraints, and computes positions for every node plus a
// Bézier route for every edge. The pkg directory is organized into three
// areas:
//
//  1. Algorithms - [dag], [netsimplex], [rank], [ordering], [position], [spline]
//  2. Engine - [layout] runs the phases in order
//  3. Plumbing - [graph], [io], [render], [pipeline], [cache], [config]
//
// # Architecture
//
// The data flow through a layout:
//
//	JSON / DOT input
//	       ↓
//	  [io] + [graph] (parse, validate, build arena graph)
//	       ↓
//	  [dag/transform] (break cycles, merge rank sets)
//	       ↓
//	  [rank] (network simplex over [netsimplex])
//	       ↓
//	  [dag/transform] (expand long edges into virtual chains)
//	       ↓
//	  [ordering] (median heuristic + transpose)
//	       ↓
//	  [position] (x/y coordinates, rank direction)
//	       ↓
//	  [spline] (piecewise cubic edge routes)
//	       ↓
//	  [graph.Layout] → JSON / positioned DOT / SVG
//
// # Quick Start
//
//	g, _ := graph.ReadGraph(strings.NewReader(`{
//	    "nodes": [{"id": "a"}, {"id": "b"}],
//	    "edges": [{"from": "a", "to": "b"}]
//	}`))
//
//	res, err := layout.Layout(ctx, g, layout.Options{RankDir: position.RankDirLR})
//	if err != nil {
//	    return err
//	}
//	l := graph.Export(g, res)
//	return io.WriteFile("out.svg", l)
//
// The [pipeline] package wraps the same steps with caching and
// observability hooks; the CLI and the HTTP server both go through it.
//
// # Errors
//
// Every package reports failures as [errors.Error] values carrying a code
// (INVALID_INPUT, INVALID_TOPOLOGY, INFEASIBLE_CONSTRAINTS, ...), so that
// callers can map them to exit codes and HTTP statuses.
//
// [dag]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/dag
// [netsimplex]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/netsimplex
// [rank]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/rank
// [ordering]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/ordering
// [position]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/position
// [spline]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/spline
// [layout]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/layout
// [graph]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/graph
// [io]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/io
// [render]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/config
// [errors.Error]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/errors#Error
//
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/dag/transform
// [graph.Layout]: https://pkg.go.dev/github.com/matzehuels/stratum/pkg/graph#Layout
package pkg
