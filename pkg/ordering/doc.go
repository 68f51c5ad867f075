// Package ordering reduces edge crossings by permuting the nodes within each
// rank of a layered graph.
//
// # Overview
//
// Crossing minimization on layered graphs is NP-hard. This package
// implements the median heuristic with local transposition: an initial order
// is built by breadth-first search, then alternating downward and upward
// sweeps re-sort each rank by the weighted median position of its neighbours
// on the adjacent rank, and a transpose pass swaps neighbouring pairs while
// that lowers the crossing count.
//
// The best order seen across all passes is committed, so an iteration that
// temporarily worsens the count does no harm.
//
// # Determinism
//
// Every decision has an explicit tie-break: BFS starts in NodeID order,
// equal medians keep their current relative order (or are exchanged on
// reverse iterations), and transpose only swaps equal pairs on reverse
// iterations. Running [Median.Order] twice on the same graph yields the
// same order.
//
// # Clusters
//
// A cluster is a single skeleton node at its parent's level, so nodes of one
// cluster can never interleave with a sibling's. No extra contiguity
// constraint is needed here.
package ordering
