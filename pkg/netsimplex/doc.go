// Package netsimplex solves the integer layering problem
//
//	minimize   sum over edges e of weight(e) * (rank(head(e)) - rank(tail(e)))
//	subject to rank(head(e)) - rank(tail(e)) >= minlen(e)
//
// with the network simplex method. The layout engine uses it twice: once
// to assign ranks to nodes and once, on an auxiliary graph, to assign
// x-coordinates.
//
// # Algorithm
//
//  1. A longest-path pass from the sources yields a feasible ranking.
//  2. A spanning tree of tight edges (slack 0) is grown per connected
//     component, shifting partial trees along a minimum-slack edge when no
//     tight edge reaches a new node.
//  3. Cut values are computed from a postorder low/lim numbering of the
//     tree, so subtree membership is a range test.
//  4. While some tree edge has a negative cut value, the most negative
//     one (lowest edge index on ties) leaves the tree and the
//     minimum-slack edge crossing the cut in the opposite direction (lowest
//     index on ties) enters it. Ranks on one side shift by that slack and
//     cut values along the tree path between the entering edge's endpoints
//     are updated incrementally.
//  5. Ranks are normalized so each component starts at 0 and optionally
//     balanced.
//
// The solver is deterministic: every choice has an explicit tie-break on
// node or edge index.
//
// # Limits
//
// Options.MaxIter bounds the number of pivots. Hitting the bound still
// yields a feasible, if suboptimal, ranking and sets Result.Capped. Sums of
// weights are computed in int64 and inputs whose totals could leave the
// safe range are rejected with [ErrOverflow].
package netsimplex
