// Package position assigns coordinates to a ranked and ordered layout graph.
//
// All computation happens in the top-to-bottom frame: ranks are horizontal
// rows, y grows downward, and rank r+1 sits at
//
//	y(r+1) = y(r) + below(r) + RankSep + above(r+1)
//
// where above and below are the largest half-heights on a rank. The x
// coordinates honour the separation constraint
//
//	x(v) - x(u) >= rw(u) + lw(v) + NodeSep
//
// for every pair u, v adjacent within a rank, where lw and rw are the left
// and right half-widths (the right half grows by LoopSize per self-loop).
//
// Two strategies are available:
//
//   - [StrategySimplex] builds the auxiliary graph of dot: one variable per
//     node, a separation edge per adjacent pair and, per layer edge, a slack
//     node whose two outgoing edges make the cost equal to
//     omega*weight*|x(u)-x(v)|, with omega 1, 2 or 8 for real-real,
//     real-virtual and virtual-virtual edges. The graph is solved by
//     network simplex with left-right balancing.
//   - [StrategyPriority] sweeps down and up, placing each node at the
//     weighted mean of its neighbours on the reference rank, highest
//     priority first, clamped by the nodes already placed.
//
// Both strategies verify the separation invariant before returning.
//
// Other rank directions are produced afterwards by [Rotate], which maps
// the finished top-to-bottom drawing (nodes, routes and cluster boxes) to
// LR, BT or RL. Callers must swap node sizes with [SwapSizes] before
// layout for LR and RL.
package position
