package sink

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/lens"
)

func testFrame() engine.Frame {
	return engine.Frame{
		Generation: 3,
		Viewport:   layout.Viewport{Width: 800, Height: 600},
		Positions:  []layout.Position{{ID: "US", X: 200, Y: 300}, {ID: "CN", X: 500, Y: 320}},
		Lens: lens.Result{
			Kind: lens.KindSector,
			Nodes: []lens.NodeStyle{
				{ISO2: "US", DisplayZ: 30, Fill: "#e8453c", FillOpacity: 0.8, Stroke: "#222", StrokeWidth: 2, Producer: true, SectorRank: 1,
					Ring:  lens.Ring{Stroke: "#ff9f43", Opacity: 0.86, R: 34, Width: 1.2, Dash: "4 4"},
					Label: lens.Label{Text: "United States & Co", Fill: "#ddd", Opacity: 1, Dy: -34, FontSize: 9}},
				{ISO2: "CN", DisplayZ: 20, Fill: "#222", FillOpacity: 0.34, Stroke: "#222", StrokeWidth: 1,
					Label: lens.Label{Text: "China", Fill: "#677487", Opacity: 0.6, Dy: -24, FontSize: 9}},
				{ISO2: "ZZ", DisplayZ: 5},
			},
			Links: []lens.LinkStyle{{Source: "US", Target: "CN", TradeUsd: 5e11, Stroke: "#e8453c", Width: 2.6, Opacity: 0.94}},
		},
		Labels: engine.Labels{Year: "Year: 2023", Direction: "Direction: Both", Threshold: "Min Trade: $1.00B", Bloc: "Bloc: Global", LastUpdated: "Last updated: 2024-05-01"},
		Legend: engine.Legend{Title: "Medicine", Color: "#e8453c", TopProducer: "United States", Total: "$15.00B", Note: "Data provenance: 1 observed / 0 estimated"},
		Stats:  engine.Stats{Countries: 2, Links: 1, GDP: "$43.00T"},
		Top10: engine.Top10{Sector: "medicine", Color: "#e8453c", Rows: []engine.Top10Row{
			{Rank: 1, ISO2: "US", Name: "United States", SharePct: 100, ValueLabel: "$15.00B"},
		}},
	}
}

func TestRenderSVG(t *testing.T) {
	svg := string(RenderSVG(testFrame()))

	if !strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.0 600.0"`) {
		t.Errorf("unexpected svg header: %.120s", svg)
	}
	for _, want := range []string{
		`id="node-US" transform="translate(200.00,300.00)"`,
		`class="ring" r="34.00"`,
		`data-s="US" data-t="CN" x1="200.00" y1="300.00" x2="500.00" y2="320.00"`,
		`United States &amp; Co`,
		`fill="#0b0f14"`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("RenderSVG() missing %q", want)
		}
	}
	if strings.Contains(svg, "node-ZZ") {
		t.Error("node without a position must be skipped")
	}
	if strings.Count(svg, `class="ring"`) != 1 {
		t.Error("only visible rings are drawn")
	}
	if strings.Contains(svg, "<script") || strings.Contains(svg, `class="legend"`) {
		t.Error("panels and scripts are opt-in")
	}
}

func TestRenderSVGOptions(t *testing.T) {
	svg := string(RenderSVG(testFrame(),
		WithBackground(""),
		WithTitle("Macro <view>"),
		WithHeader(),
		WithLegend(),
		WithTop10(),
		WithInteraction(),
	))
	for _, want := range []string{
		"Macro &lt;view&gt;",
		"Year: 2023   Direction: Both",
		"2 countries   1 links   GDP $43.00T",
		`class="legend"`,
		"Data provenance: 1 observed / 0 estimated",
		"Top producers: Medicine",
		"<script",
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("RenderSVG() with options missing %q", want)
		}
	}
	if strings.Contains(svg, `<rect width="100%" height="100%"`) {
		t.Error("empty background should not paint the canvas")
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := RenderJSON(testFrame(), WithJSONSeed(42))
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if out.Width != 800 || out.Generation != 3 || out.Seed != 42 || out.Lens != "sector" {
		t.Errorf("header = %+v", out)
	}
	if len(out.Nodes) != 2 || out.Nodes[0].Ring != "#ff9f43" || out.Nodes[1].Ring != "" {
		t.Errorf("nodes = %+v", out.Nodes)
	}
	if len(out.Links) != 1 || out.Links[0].TradeUsd != 5e11 {
		t.Errorf("links = %+v", out.Links)
	}
	if out.Legend != nil || out.Top10 != nil {
		t.Error("panels are opt-in")
	}
}

func TestRenderJSONPanels(t *testing.T) {
	data, err := RenderJSON(testFrame(), WithJSONPanels(), WithJSONCompact())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "\n") {
		t.Error("compact output should be one line")
	}
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Legend == nil || out.Legend.Title != "Medicine" || out.Top10 == nil || len(out.Top10.Rows) != 1 {
		t.Errorf("panels = %+v %+v", out.Legend, out.Top10)
	}
	if out.Detail != nil {
		t.Error("frame without a locked country has no detail")
	}
}
