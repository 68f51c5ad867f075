// Package dag provides the graph model of the layout engine: an arena of
// nodes, edges and clusters addressed by stable integer IDs.
//
// # Overview
//
// Layout stages never hold pointers between graph elements. Nodes refer to
// their cluster by [ClusterID], edges to their endpoints by [NodeID], and a
// long edge to its virtual nodes by a [NodeID] chain. Adjacency is kept as
// per-node lists of [EdgeID]. Adding virtual nodes or marking an edge
// reversed is therefore a cheap in-place update.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	a, _ := g.AddNode(dag.Node{Name: "a", Width: 54, Height: 36})
//	b, _ := g.AddNode(dag.Node{Name: "b", Width: 54, Height: 36})
//	g.AddEdge(dag.Edge{From: a, To: b, Weight: 1, Minlen: 1, Constraint: true})
//	if err := g.Validate(); err != nil {
//	    // reject input
//	}
//
// # Orientation
//
// [Edge.From] and [Edge.To] always keep the input orientation. The
// acyclifier sets [Edge.Reversed] on back edges; every layout stage reads
// the layout orientation through [Edge.Src], [Edge.Dst], [Graph.Out] and
// [Graph.In]. Routed points are stored from From to To so renderers never
// see the reversal.
//
// # Node Types
//
//   - [NodeKindReal]: nodes from the input graph
//   - [NodeKindVirtual]: one per intermediate rank of a long edge
//   - [NodeKindSkeleton]: a laid-out cluster collapsed to a single box
//
// # Clusters
//
// Clusters form a tree through [Cluster.Parent]. Nodes are attached with
// [Graph.AddToCluster]; [Graph.Validate] rejects parent cycles and nodes
// claimed by unrelated clusters, and resolves each node to its innermost
// cluster.
//
// # Edge Crossings
//
// [CountCrossings] and [CountLayerCrossings] count crossings between
// consecutive ranks with a Fenwick tree in O(E log V).
//
// # Concurrency
//
// Graph instances are not safe for concurrent use.
//
// [transform]: github.com/matzehuels/stratum/pkg/dag/transform
package dag
