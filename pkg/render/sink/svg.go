package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/format"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/lens"
)

const (
	defaultBackground = "#0b0f14"
	headerHeight      = 78.0
	panelWidth        = 260.0
)

const nodeInteractionCSS = `
    .node circle.body { transition: fill-opacity 0.15s ease; }
    .link { transition: stroke-opacity 0.15s ease; }
    svg.focus .node:not(.near) circle.body { fill-opacity: 0.08; }
    svg.focus .link:not(.near) { stroke-opacity: 0.03; }
    svg.focus .link.near { stroke-opacity: 1; }`

const nodeInteractionJS = `
    const root = document.currentScript.closest('svg');
    function focus(id) {
      root.classList.add('focus');
      root.querySelectorAll('.link').forEach(l => {
        const near = l.dataset.s === id || l.dataset.t === id;
        l.classList.toggle('near', near);
        if (near) {
          root.getElementById('node-' + l.dataset.s).classList.add('near');
          root.getElementById('node-' + l.dataset.t).classList.add('near');
        }
      });
      root.getElementById('node-' + id).classList.add('near');
    }
    function clearFocus() {
      root.classList.remove('focus');
      root.querySelectorAll('.near').forEach(el => el.classList.remove('near'));
    }
    root.querySelectorAll('.node').forEach(el => {
      el.addEventListener('mouseenter', () => focus(el.id.replace('node-', '')));
      el.addEventListener('mouseleave', clearFocus);
    });`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	background  string
	title       string
	header      bool
	legend      bool
	top10       bool
	gdpLabels   bool
	interactive bool
}

// WithBackground sets the canvas color. An empty color leaves the canvas
// transparent.
func WithBackground(c string) SVGOption { return func(r *svgRenderer) { r.background = c } }

// WithTitle writes a title line into the header band.
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

// WithHeader draws the control-bar labels and the header stats.
func WithHeader() SVGOption { return func(r *svgRenderer) { r.header = true } }

// WithLegend draws the lens legend in the lower left corner.
func WithLegend() SVGOption { return func(r *svgRenderer) { r.legend = true } }

// WithTop10 draws the producer ranking of the selected sector on the right.
func WithTop10() SVGOption { return func(r *svgRenderer) { r.top10 = true } }

// WithGDPLabels draws the GDP line under every country name.
func WithGDPLabels() SVGOption { return func(r *svgRenderer) { r.gdpLabels = true } }

// WithInteraction embeds the hover highlight script.
func WithInteraction() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// RenderSVG draws f at its layout positions. Styles come from the frame's
// lens result unchanged; nodes without a position are skipped.
func RenderSVG(f engine.Frame, opts ...SVGOption) []byte {
	r := svgRenderer{background: defaultBackground}
	for _, opt := range opts {
		opt(&r)
	}

	pos := make(map[string]layout.Position, len(f.Positions))
	for _, p := range f.Positions {
		pos[p.ID] = p
	}
	w, h := f.Viewport.Width, f.Viewport.Height

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="Helvetica, Arial, sans-serif">`+"\n",
		w, h, w, h)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", r.background)
	}

	buf.WriteString(`  <g class="links">` + "\n")
	for _, l := range f.Lens.Links {
		s, okS := pos[l.Source]
		t, okT := pos[l.Target]
		if !okS || !okT {
			continue
		}
		renderLink(&buf, l, s, t)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="nodes">` + "\n")
	for _, n := range f.Lens.Nodes {
		p, ok := pos[n.ISO2]
		if !ok {
			continue
		}
		renderNode(&buf, n, p, r.gdpLabels)
	}
	buf.WriteString("  </g>\n")

	if r.header || r.title != "" {
		renderHeader(&buf, &r, f, w)
	}
	if r.legend {
		renderLegend(&buf, f.Legend, h)
	}
	if r.top10 && len(f.Top10.Rows) > 0 {
		renderTop10(&buf, f.Top10, w)
	}
	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", nodeInteractionCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", nodeInteractionJS)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderLink(buf *bytes.Buffer, l lens.LinkStyle, s, t layout.Position) {
	fmt.Fprintf(buf, `    <line class="link" data-s="%s" data-t="%s" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.2f" stroke-opacity="%.3f"><title>%s</title></line>`+"\n",
		l.Source, l.Target, s.X, s.Y, t.X, t.Y, l.Stroke, l.Width, l.Opacity,
		escapeXML(l.Source+" -> "+l.Target+": "+format.Currency(l.TradeUsd)))
}

func renderNode(buf *bytes.Buffer, n lens.NodeStyle, p layout.Position, gdp bool) {
	fmt.Fprintf(buf, `    <g class="node" id="node-%s" transform="translate(%.2f,%.2f)">`+"\n", n.ISO2, p.X, p.Y)
	if n.Ring.Opacity > 0 {
		fmt.Fprintf(buf, `      <circle class="ring" r="%.2f" fill="none" stroke="%s" stroke-opacity="%.3f" stroke-width="%.2f" stroke-dasharray="%s"/>`+"\n",
			n.Ring.R, n.Ring.Stroke, n.Ring.Opacity, n.Ring.Width, n.Ring.Dash)
	}
	fmt.Fprintf(buf, `      <circle class="body" r="%.2f" fill="%s" fill-opacity="%.3f" stroke="%s" stroke-width="%.2f"><title>%s</title></circle>`+"\n",
		n.DisplayZ, n.Fill, n.FillOpacity, n.Stroke, n.StrokeWidth, escapeXML(n.Label.Text))
	renderText(buf, n.Label)
	if gdp {
		renderText(buf, n.GDPLabel)
	}
	buf.WriteString("    </g>\n")
}

func renderText(buf *bytes.Buffer, l lens.Label) {
	if l.Text == "" || l.Opacity <= 0 {
		return
	}
	fmt.Fprintf(buf, `      <text y="%.2f" text-anchor="middle" font-size="%.1f" fill="%s" fill-opacity="%.3f">%s</text>`+"\n",
		l.Dy, l.FontSize, l.Fill, l.Opacity, escapeXML(l.Text))
}

func renderHeader(buf *bytes.Buffer, r *svgRenderer, f engine.Frame, w float64) {
	fmt.Fprintf(buf, `  <g class="header"><rect width="%.1f" height="%.1f" fill="#000" fill-opacity="0.35"/>`+"\n", w, headerHeight)
	if r.title != "" {
		fmt.Fprintf(buf, `    <text x="16" y="26" font-size="16" fill="#eee">%s</text>`+"\n", escapeXML(r.title))
	}
	if r.header {
		controls := strings.Join([]string{f.Labels.Year, f.Labels.Direction, f.Labels.Threshold, f.Labels.Bloc}, "   ")
		fmt.Fprintf(buf, `    <text x="16" y="50" font-size="11" fill="#9fb3c8">%s</text>`+"\n", escapeXML(controls))
		stats := fmt.Sprintf("%d countries   %d links   GDP %s", f.Stats.Countries, f.Stats.Links, f.Stats.GDP)
		fmt.Fprintf(buf, `    <text x="16" y="68" font-size="10" fill="#677487">%s</text>`+"\n", escapeXML(stats))
		fmt.Fprintf(buf, `    <text x="%.1f" y="68" font-size="9" fill="#4a4f59" text-anchor="end">%s</text>`+"\n",
			w-16, escapeXML(f.Labels.LastUpdated))
	}
	buf.WriteString("  </g>\n")
}

func renderLegend(buf *bytes.Buffer, l engine.Legend, h float64) {
	y := h - 92
	fmt.Fprintf(buf, `  <g class="legend" transform="translate(16,%.1f)">`+"\n", y)
	fmt.Fprintf(buf, `    <rect width="%.0f" height="76" rx="6" fill="#000" fill-opacity="0.45"/>`+"\n", panelWidth)
	fmt.Fprintf(buf, `    <circle cx="14" cy="16" r="5" fill="%s"/>`+"\n", l.Color)
	fmt.Fprintf(buf, `    <text x="26" y="20" font-size="12" fill="#eee">%s</text>`+"\n", escapeXML(l.Title))
	fmt.Fprintf(buf, `    <text x="10" y="38" font-size="10" fill="#ccc">Top: %s</text>`+"\n", escapeXML(l.TopProducer))
	fmt.Fprintf(buf, `    <text x="10" y="52" font-size="10" fill="#ccc">Total: %s</text>`+"\n", escapeXML(l.Total))
	fmt.Fprintf(buf, `    <text x="10" y="66" font-size="9" fill="#888">%s</text>`+"\n", escapeXML(l.Note))
	buf.WriteString("  </g>\n")
}

func renderTop10(buf *bytes.Buffer, t engine.Top10, w float64) {
	x := w - panelWidth - 16
	height := 30 + float64(len(t.Rows))*18
	fmt.Fprintf(buf, `  <g class="top10" transform="translate(%.1f,%.1f)">`+"\n", x, headerHeight+12)
	fmt.Fprintf(buf, `    <rect width="%.0f" height="%.0f" rx="6" fill="#000" fill-opacity="0.45"/>`+"\n", panelWidth, height)
	fmt.Fprintf(buf, `    <text x="10" y="20" font-size="12" fill="%s">Top producers: %s</text>`+"\n", t.Color, escapeXML(format.TitleCase(t.Sector)))
	for i, row := range t.Rows {
		y := 40 + float64(i)*18
		fmt.Fprintf(buf, `    <text x="10" y="%.0f" font-size="10" fill="#ddd">%d. %s %s</text>`+"\n",
			y, row.Rank, row.Flag, escapeXML(row.Name))
		fmt.Fprintf(buf, `    <rect x="150" y="%.0f" width="%.1f" height="6" fill="%s" fill-opacity="0.7"/>`+"\n",
			y-7, float64(row.SharePct)*0.5, t.Color)
		fmt.Fprintf(buf, `    <text x="%.0f" y="%.0f" font-size="9" fill="#999" text-anchor="end">%s</text>`+"\n",
			panelWidth-8, y, escapeXML(row.ValueLabel))
	}
	buf.WriteString("  </g>\n")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
