// Package transform provides the graph rewrites that bracket rank
// assignment in the hierarchical layout pipeline.
//
// # Acyclification
//
// [Acyclify] makes the constraint graph acyclic by marking back edges of a
// depth-first search as reversed. Nothing is deleted: the edge keeps its
// input endpoints and every later stage reads the layout orientation
// through [dag.Edge.Src] and [dag.Edge.Dst].
//
//	Before: a -> b -> c -> a
//	After:  a -> b -> c, with c -> a reversed (laid out as a -> c)
//
// # Rank Sets
//
// [RankSets] is the union-find over explicit same/min/max/source/sink
// constraints shared by the acyclifier and the rank assigner.
//
// # Virtual-Node Expansion
//
// [Expand] replaces every edge spanning several ranks by a chain of
// unit-span segments through virtual nodes, so crossing minimization and
// coordinate assignment only ever see edges between adjacent ranks:
//
//	Before: app (rank 0) -> core (rank 3)
//	After:  app -> v -> v -> core
//
// The original edge keeps a back-reference to its chain for spline
// assembly.
package transform
