// Package layout computes a drawing for a [dag.Graph]: a center for every
// node, a Bezier route for every edge and a bounding box for every cluster.
//
// # Engines
//
// Layout algorithms form a closed set of [Engine] variants selected by name
// once per graph. Only "dot", the hierarchical engine, is implemented;
// "neato", "fdp", "circo" and "twopi" are known names that fail with an
// UNSUPPORTED error.
//
// # Hierarchical Layout
//
// The dot engine runs one pipeline per level of the cluster tree, bottom-up:
//
//  1. Acyclify: reverse a minimal DFS set of back edges
//  2. Rank: assign integer ranks by network simplex
//  3. Expand: insert virtual nodes for edges spanning several ranks
//  4. Order: minimize crossings within each rank
//  5. Position: assign x and y
//  6. Route: fit splines through the channel of each edge
//
// A level contains the cluster's direct nodes and one skeleton node per
// child cluster, sized to the child's finished bounding box. An edge
// belongs to the innermost cluster containing both of its endpoints and is
// laid out at that level, with skeleton nodes standing in for endpoints
// inside child clusters. Once the level is positioned, each child's content
// is translated onto its skeleton and the edges are routed through the
// skeleton boundary to their true endpoints.
//
// # Determinism
//
// Every stage breaks ties explicitly, so repeated runs produce identical
// coordinates. Sibling clusters share no state and may be laid out
// concurrently (see [Options.Parallel]) without changing the result.
//
// # Usage
//
//	res, err := layout.Layout(ctx, g, layout.Options{RankDir: position.RankDirLR})
//	if err != nil {
//	    return err
//	}
//	for _, n := range g.Nodes() {
//	    fmt.Println(n.Name, n.X, n.Y)
//	}
package layout
