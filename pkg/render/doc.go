// Package render turns engine frames into files.
//
// # Overview
//
// A frame already carries every resolved color, width and opacity; the
// renderers here only place them:
//
//   - [sink]: SVG, JSON, PDF and PNG writers for a settled frame
//   - [nodelink]: Graphviz DOT source with pinned positions, rendered
//     in-process through go-graphviz
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG with the external rsvg-convert tool
// (from librsvg). Both sinks use them.
//
//	svg := sink.RenderSVG(frame, sink.WithLegend())
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)
//
// [sink]: github.com/matzehuels/macroviewer/pkg/render/sink
// [nodelink]: github.com/matzehuels/macroviewer/pkg/render/nodelink
package render
