// Package nodelink renders engine frames through Graphviz.
//
// [ToDOT] writes DOT source with every country pinned at its layout
// position (pos="x,y!") and the lens colors translated to #rrggbbaa, so
// the neato engine draws the same picture the SVG sink does:
//
//	dot := nodelink.ToDOT(frame, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT can also be saved and post-processed with external Graphviz
// tools (neato -n2).
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF conversion requires librsvg (rsvg-convert).
package nodelink
