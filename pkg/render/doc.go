// Package render converts rendered SVG documents into raster and print
// formats.
//
// The renderers themselves live in subpackages; [constraintgraph] draws a
// solver snapshot as a Graphviz diagram. [ToPDF] and [ToPNG] shell out to
// rsvg-convert (from librsvg), so they fail with [ErrNoConverter] when it is
// not installed:
//
//	svg, err := constraintgraph.RenderSVG(dot)
//	png, err := render.ToPNG(ctx, svg, 2.0)
//
// [constraintgraph]: github.com/matzehuels/limn/pkg/render/constraintgraph
package render
