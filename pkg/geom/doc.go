// Package geom provides the small amount of planar geometry the layout
// engine needs: points, axis-aligned boxes and cubic Bezier curves.
//
// Coordinates follow screen conventions: x grows to the right and y grows
// downward, so a Box's Top is numerically smaller than its Bottom.
//
// Curves are stored the way renderers consume them: a piecewise cubic
// Bezier with n segments is a []Point of length 3n+1 where consecutive
// segments share their end/start point.
package geom
