// Package sink writes settled engine frames as SVG, JSON, PDF or PNG.
//
// # SVG Output
//
// [RenderSVG] draws links under nodes, each node as a filled circle with
// an optional dashed ring and its name label, all with the colors and
// opacities the lens resolved. Panels are opt-in:
//
//	svg := sink.RenderSVG(frame,
//	    sink.WithHeader(),
//	    sink.WithLegend(),
//	    sink.WithTop10(),
//	    sink.WithInteraction(),
//	)
//
// # JSON Output
//
// [RenderJSON] exports positions and resolved styles for external tools.
// [WithJSONPanels] adds the panel texts; [WithJSONSeed] records the seed
// that produced the positions.
//
// # PDF and PNG
//
// [RenderPDF] and [RenderPNG] render SVG first and convert it with
// rsvg-convert (librsvg).
package sink
