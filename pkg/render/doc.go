// Package render draws finished layouts as SVG.
//
// The renderer is deliberately plain: clusters as rounded rectangles,
// nodes in their clipping shape with a centered label, edges as cubic
// Bezier paths and arrowheads as filled triangles ending at the arrow tip.
// It exists so that `stratum layout -o out.svg` produces something to look
// at; styling beyond stroke and fill colours is out of scope.
//
//	svg := render.SVG(l, render.WithPadding(8))
package render
