// Package spline routes the edges of a positioned layout graph as
// piecewise cubic Bezier curves.
//
// Routing happens in the top-to-bottom frame of a single level graph. For
// an edge spanning ranks, the path through its virtual-node chain is
// widened into a channel of boxes:
//
//	tail box   below the tail center, between its real neighbours
//	gap box    the inter-rank space, full drawing width
//	rank box   around each virtual node, between its real neighbours
//	head box   above the head center
//
// The shortest path through the portals shared by consecutive boxes is
// found with a funnel (visibility cone) search, then smoothed into cubic
// segments. Smoothing starts at full tension and backs off through 0.5 and
// 0.25 to 0 (the polyline itself) until every sampled point lies in the
// channel. A route that still leaves the channel is kept and counted as
// degenerate; routing never fails a layout.
//
// Endpoints are clipped to the node outline, so curves start and end on
// boxes or ellipses rather than at centers. Arrowhead tips are recorded in
// HeadArrow and TailArrow and the curve is shortened by ArrowSize to leave
// room for them.
//
// Self-loops are drawn on the right of their node, one LoopSize further
// out per loop. Flat edges between adjacent nodes are straight; other flat
// edges arc over the rank. Parallel edges between the same pair of nodes
// are spread by MultiSep.
package spline
