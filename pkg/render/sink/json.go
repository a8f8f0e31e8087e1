package sink

import (
	"encoding/json"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/layout"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	seed    int64
	panels  bool
	compact bool
}

// WithJSONSeed records the layout seed, so the same positions can be
// reproduced from the same dataset and state.
func WithJSONSeed(seed int64) JSONOption { return func(r *jsonRenderer) { r.seed = seed } }

// WithJSONPanels includes labels, legend, stats, top-10 and the detail panel.
func WithJSONPanels() JSONOption { return func(r *jsonRenderer) { r.panels = true } }

// WithJSONCompact writes the document without indentation.
func WithJSONCompact() JSONOption { return func(r *jsonRenderer) { r.compact = true } }

type jsonOutput struct {
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Generation uint64         `json:"generation"`
	Seed       int64          `json:"seed,omitempty"`
	Lens       string         `json:"lens"`
	State      filter.State   `json:"state"`
	Nodes      []jsonNode     `json:"nodes"`
	Links      []jsonLink     `json:"links"`
	Labels     *engine.Labels `json:"labels,omitempty"`
	Legend     *engine.Legend `json:"legend,omitempty"`
	Stats      *engine.Stats  `json:"stats,omitempty"`
	Top10      *engine.Top10  `json:"top10,omitempty"`
	Detail     *engine.Detail `json:"detail,omitempty"`
}

type jsonNode struct {
	ISO2        string  `json:"iso2"`
	Name        string  `json:"name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	R           float64 `json:"r"`
	Fill        string  `json:"fill"`
	FillOpacity float64 `json:"fillOpacity"`
	Stroke      string  `json:"stroke"`
	Ring        string  `json:"ring,omitempty"`
	Leader      bool    `json:"leader,omitempty"`
	Producer    bool    `json:"producer,omitempty"`
	Member      bool    `json:"member,omitempty"`
	Score       float64 `json:"score,omitempty"`
	SectorRank  int     `json:"sectorRank,omitempty"`
}

type jsonLink struct {
	Source   string  `json:"s"`
	Target   string  `json:"t"`
	TradeUsd float64 `json:"tradeUsd"`
	Stroke   string  `json:"stroke"`
	Width    float64 `json:"width"`
	Opacity  float64 `json:"opacity"`
}

// RenderJSON exports the positioned, styled graph of f. Nodes without a
// position are left out, as are links to them. It does not modify f and is
// safe to call concurrently.
func RenderJSON(f engine.Frame, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	pos := make(map[string]layout.Position, len(f.Positions))
	for _, p := range f.Positions {
		pos[p.ID] = p
	}

	out := jsonOutput{
		Width:      f.Viewport.Width,
		Height:     f.Viewport.Height,
		Generation: f.Generation,
		Seed:       r.seed,
		Lens:       string(f.Lens.Kind),
		State:      f.State,
		Nodes:      make([]jsonNode, 0, len(f.Lens.Nodes)),
		Links:      make([]jsonLink, 0, len(f.Lens.Links)),
	}
	for _, n := range f.Lens.Nodes {
		p, ok := pos[n.ISO2]
		if !ok {
			continue
		}
		jn := jsonNode{
			ISO2: n.ISO2, Name: n.Label.Text,
			X: p.X, Y: p.Y, R: n.DisplayZ,
			Fill: n.Fill, FillOpacity: n.FillOpacity, Stroke: n.Stroke,
			Leader: n.Leader, Producer: n.Producer, Member: n.Member,
			Score: n.Score, SectorRank: n.SectorRank,
		}
		if n.Ring.Opacity > 0 {
			jn.Ring = n.Ring.Stroke
		}
		out.Nodes = append(out.Nodes, jn)
	}
	for _, l := range f.Lens.Links {
		if _, ok := pos[l.Source]; !ok {
			continue
		}
		if _, ok := pos[l.Target]; !ok {
			continue
		}
		out.Links = append(out.Links, jsonLink{
			Source: l.Source, Target: l.Target, TradeUsd: l.TradeUsd,
			Stroke: l.Stroke, Width: l.Width, Opacity: l.Opacity,
		})
	}
	if r.panels {
		out.Labels, out.Legend, out.Stats, out.Top10 = &f.Labels, &f.Legend, &f.Stats, &f.Top10
		out.Detail = f.Detail
	}

	if r.compact {
		return json.Marshal(out)
	}
	return json.MarshalIndent(out, "", "  ")
}
