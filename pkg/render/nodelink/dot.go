package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/render"
)

// pointsPerInch is the Graphviz unit conversion for node sizes.
const pointsPerInch = 72.0

// Options configures DOT generation.
type Options struct {
	// Detailed adds the GDP line and, under the sector lens, the rank to
	// node labels. When false only the iso2 code is shown.
	Detailed bool
	// Directed draws arrowheads from exporter to importer.
	Directed bool
}

// ToDOT converts a frame to Graphviz DOT with every node pinned at its
// layout position, for rendering with the neato engine. The y axis is
// flipped because Graphviz grows upwards.
func ToDOT(f engine.Frame, opts Options) string {
	pos := make(map[string]layout.Position, len(f.Positions))
	for _, p := range f.Positions {
		pos[p.ID] = p
	}
	h := f.Viewport.Height

	kind, arrow := "graph", "--"
	if opts.Directed {
		kind, arrow = "digraph", "->"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s G {\n", kind)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, fontname=\"Helvetica\", fontsize=8, fontcolor=\"#dddddd\"];\n")
	buf.WriteString("  edge [arrowsize=0.4];\n")
	buf.WriteString("\n")

	for _, n := range f.Lens.Nodes {
		p, ok := pos[n.ISO2]
		if !ok {
			continue
		}
		label := n.ISO2
		if opts.Detailed {
			label = fmtLabel(n.ISO2, n.GDPLabel.Text, n.SectorRank)
		}
		attrs := []string{
			fmt.Sprintf("label=%q", label),
			fmt.Sprintf("pos=\"%.2f,%.2f!\"", p.X, h-p.Y),
			fmt.Sprintf("width=%.3f", 2*n.DisplayZ/pointsPerInch),
			fmt.Sprintf("fillcolor=%q", dotColor(n.Fill, n.FillOpacity)),
			fmt.Sprintf("color=%q", dotColor(n.Stroke, 1)),
			fmt.Sprintf("penwidth=%.2f", n.StrokeWidth),
			fmt.Sprintf("tooltip=%q", n.Label.Text),
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ISO2, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range f.Lens.Links {
		if _, ok := pos[l.Source]; !ok {
			continue
		}
		if _, ok := pos[l.Target]; !ok {
			continue
		}
		fmt.Fprintf(&buf, "  %q %s %q [color=%q, penwidth=%.2f];\n",
			l.Source, arrow, l.Target, dotColor(l.Stroke, l.Opacity), l.Width)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(iso2, gdp string, rank int) string {
	parts := []string{iso2}
	if gdp != "" {
		parts = append(parts, gdp)
	}
	if rank > 0 {
		parts = append(parts, fmt.Sprintf("#%d", rank))
	}
	return strings.Join(parts, "\n")
}

var rgbaRe = regexp.MustCompile(`^rgba\((\d+),(\d+),(\d+),([0-9.]+)\)$`)

// dotColor converts a CSS color with an extra opacity to Graphviz #rrggbbaa.
func dotColor(css string, opacity float64) string {
	css = strings.ReplaceAll(strings.TrimSpace(css), " ", "")
	if css == "" || css == "transparent" {
		return "#00000000"
	}
	var c colorful.Color
	alpha := opacity
	if m := rgbaRe.FindStringSubmatch(css); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		a, _ := strconv.ParseFloat(m[4], 64)
		c = colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
		alpha *= a
	} else {
		if len(css) == 4 {
			css = "#" + strings.Repeat(css[1:2], 2) + strings.Repeat(css[2:3], 2) + strings.Repeat(css[3:4], 2)
		}
		parsed, err := colorful.Hex(css)
		if err != nil {
			return "#888888ff"
		}
		c = parsed
	}
	alpha = math.Max(0, math.Min(1, alpha))
	return fmt.Sprintf("%s%02x", c.Clamped().Hex(), int(math.Round(alpha*255)))
}

// RenderSVG renders DOT source with the neato engine, honouring pinned
// positions. Returns the SVG bytes ready for display or conversion with
// [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders DOT source as PDF via SVG conversion.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}
