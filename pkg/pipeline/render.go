package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/observability"
	"github.com/matzehuels/macroviewer/pkg/render"
	"github.com/matzehuels/macroviewer/pkg/render/nodelink"
	"github.com/matzehuels/macroviewer/pkg/render/sink"
)

// Render generates output artifacts for f in the requested formats.
func Render(ctx context.Context, f engine.Frame, formats []render.Format, opts Options) (map[render.Format][]byte, error) {
	names := make([]string, len(formats))
	for i, format := range formats {
		names[i] = string(format)
	}
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, names)
	start := time.Now()

	artifacts, err := renderFormats(ctx, f, formats, opts)
	hooks.OnRenderComplete(ctx, names, time.Since(start), err)
	return artifacts, err
}

func renderFormats(ctx context.Context, f engine.Frame, formats []render.Format, opts Options) (map[render.Format][]byte, error) {
	svgOpts := buildSVGOptions(opts)
	artifacts := make(map[render.Format][]byte, len(formats))

	var dot string
	for _, format := range formats {
		var data []byte
		var err error

		switch format {
		case render.FormatSVG:
			data = sink.RenderSVG(f, svgOpts...)
		case render.FormatJSON:
			data, err = sink.RenderJSON(f, buildJSONOptions(opts)...)
		case render.FormatPDF:
			data, err = sink.RenderPDF(ctx, f, sink.WithPDFSVGOptions(svgOpts...))
		case render.FormatPNG:
			scale := opts.Scale
			if scale <= 0 {
				scale = DefaultScale
			}
			data, err = sink.RenderPNG(ctx, f, sink.WithPNGSVGOptions(svgOpts...), sink.WithScale(scale))
		case render.FormatDOT, render.FormatDOTSVG:
			if dot == "" {
				dot = nodelink.ToDOT(f, nodelink.Options{Detailed: opts.Detailed, Directed: true})
			}
			if format == render.FormatDOT {
				data = []byte(dot)
			} else {
				data, err = nodelink.RenderSVG(ctx, dot)
			}
		default:
			return nil, ValidateFormat(format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// buildSVGOptions maps pipeline options onto the frame sink.
func buildSVGOptions(opts Options) []sink.SVGOption {
	var svgOpts []sink.SVGOption
	if opts.Title != "" {
		svgOpts = append(svgOpts, sink.WithTitle(opts.Title))
	}
	if opts.Panels {
		svgOpts = append(svgOpts, sink.WithHeader(), sink.WithLegend(), sink.WithTop10())
	}
	if opts.Labels {
		svgOpts = append(svgOpts, sink.WithGDPLabels())
	}
	return svgOpts
}

func buildJSONOptions(opts Options) []sink.JSONOption {
	jsonOpts := []sink.JSONOption{sink.WithJSONSeed(opts.Seed)}
	if opts.Panels {
		jsonOpts = append(jsonOpts, sink.WithJSONPanels())
	}
	return jsonOpts
}
