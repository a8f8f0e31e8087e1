package engine

import (
	"fmt"
	"math"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/format"
	"github.com/matzehuels/macroviewer/pkg/index"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/lens"
)

// Frame is everything a renderer needs to draw the current view.
type Frame struct {
	Generation  uint64            `json:"generation"`
	Effect      string            `json:"effect"`
	State       filter.State      `json:"state"`
	Viewport    layout.Viewport   `json:"viewport"`
	LayoutState layout.State      `json:"layoutState"`
	Lens        lens.Result       `json:"lens"`
	Positions   []layout.Position `json:"positions"`
	Labels      Labels            `json:"labels"`
	Legend      Legend            `json:"legend"`
	Stats       Stats             `json:"stats"`
	Top10       Top10             `json:"top10"`
	Detail      *Detail           `json:"detail,omitempty"`
	Suggestions []Suggestion      `json:"suggestions,omitempty"`
}

// Position returns the layout position of iso2.
func (f *Frame) Position(iso2 string) (layout.Position, bool) {
	for _, p := range f.Positions {
		if p.ID == iso2 {
			return p, true
		}
	}
	return layout.Position{}, false
}

// Labels are the texts of the control bar.
type Labels struct {
	Year        string `json:"year"`
	Direction   string `json:"direction"`
	Threshold   string `json:"threshold"`
	Bloc        string `json:"bloc"`
	LastUpdated string `json:"lastUpdated"`
}

// Legend summarizes the active lens.
type Legend struct {
	Title       string `json:"title"`
	Color       string `json:"color"`
	TopProducer string `json:"topProducer"`
	Total       string `json:"total"`
	Note        string `json:"note"`
}

// Stats are the header counters.
type Stats struct {
	Countries int     `json:"countries"`
	Links     int     `json:"links"`
	GDPUsd    float64 `json:"gdpUsd"`
	GDP       string  `json:"gdp"`
}

// Top10 is the producer ranking panel of the selected sector.
type Top10 struct {
	Sector  string     `json:"sector"`
	Color   string     `json:"color"`
	Message string     `json:"message,omitempty"`
	Rows    []Top10Row `json:"rows,omitempty"`
}

// Top10Row is one producer in the ranking panel.
type Top10Row struct {
	Rank       int                `json:"rank"`
	ISO2       string             `json:"iso2"`
	Flag       string             `json:"flag"`
	Name       string             `json:"name"`
	SharePct   int                `json:"sharePct"`
	Provenance dataset.Provenance `json:"provenance"`
	Badge      string             `json:"badge"`
	Value      float64            `json:"value"`
	ValueLabel string             `json:"valueLabel"`
}

// Suggestion is one search hit.
type Suggestion struct {
	ISO2 string `json:"iso2"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

const (
	defaultLegendColor = "#9fb3c8"
	neutralTitleColor  = "#dddddd"
)

func (c *Controller) frameLocked() Frame {
	snap := c.driver.Snapshot()
	f := Frame{
		Generation:  snap.Generation,
		Effect:      c.effect.String(),
		State:       c.state.Clone(),
		Viewport:    c.vp,
		LayoutState: snap.State,
		Lens:        c.highlighted(),
		Positions:   snap.Positions,
		Labels:      c.labels(),
		Legend:      c.legend(),
		Stats:       c.stats(),
		Top10:       c.top10(),
	}
	if c.state.Locked != "" {
		if d, err := c.detailLocked(c.state.Locked); err == nil {
			f.Detail = &d
		}
	}
	f.Suggestions = c.Search(c.state.Search)
	return f
}

// BlocLabel is the bloc button text for the active blocs.
func BlocLabel(active []*index.BlocEntry, mode index.Combination, scope filter.EdgeScope) string {
	label := "Global"
	switch {
	case len(active) == 1:
		label = active[0].Name
	case len(active) == 2:
		label = active[0].Name + " + " + active[1].Name
	case len(active) > 2:
		label = fmt.Sprintf("%d Blocs", len(active))
	}
	if len(active) > 0 {
		label = fmt.Sprintf("%s [%s/%s]", label, mode, scope)
	}
	return "Bloc: " + label
}

func (c *Controller) labels() Labels {
	updated := c.data.LastUpdated()
	if updated == "" {
		updated = c.now().UTC().Format("2006-01-02")
	}
	return Labels{
		Year:        fmt.Sprintf("Year: %d", c.state.Year),
		Direction:   "Direction: " + format.TitleCase(string(c.state.Direction)),
		Threshold:   "Min Trade: " + format.Currency(c.state.MinTrade),
		Bloc:        BlocLabel(c.pass.active, c.state.Mode, c.state.Scope),
		LastUpdated: "Last updated: " + updated,
	}
}

func (c *Controller) stats() Stats {
	s := Stats{Countries: len(c.data.Nodes), Links: len(c.pass.visible)}
	if c.pass.members != nil {
		s.Countries = c.pass.members.Len()
	}
	for _, n := range c.data.Nodes {
		if c.pass.members == nil || c.pass.members.Has(n.ISO2) {
			s.GDPUsd += n.GDPUsd
		}
	}
	s.GDP = format.Currency(s.GDPUsd)
	return s
}

func (c *Controller) legend() Legend {
	if !c.state.SectorLens() {
		l := Legend{
			Title:       "Default Lens",
			Color:       defaultLegendColor,
			TopProducer: "-",
			Note: fmt.Sprintf("Default lens: %d%% GDP + %d%% trade intensity",
				int(math.Round(lens.GDPWeight*100)), int(math.Round(lens.TradeWeight*100))),
		}
		var leader *lens.NodeStyle
		for i := range c.pass.styled.Nodes {
			n := &c.pass.styled.Nodes[i]
			if leader == nil || n.Score > leader.Score {
				leader = n
			}
		}
		if leader != nil {
			country, _ := c.data.Country(leader.ISO2)
			l.TopProducer = fmt.Sprintf("%s (%d/100)", country.Name, int(math.Round(leader.Score*100)))
		}
		var visible float64
		for _, link := range c.pass.visible {
			visible += link.TradeUsd
		}
		l.Total = format.Currency(visible)
		return l
	}

	l := Legend{
		Title:       format.TitleCase(c.state.Sector),
		Color:       index.SectorColor(c.state.Sector),
		TopProducer: "-",
		Total:       "-",
		Note:        "Data provenance: no data",
	}
	rows := c.data.ProducersFor(c.state.Year, c.state.Sector)
	if len(rows) == 0 {
		return l
	}
	l.TopProducer = c.countryName(rows[0].ISO2)
	var total float64
	estimated := 0
	for _, r := range rows {
		total += r.Value
		if r.Provenance == dataset.ProvenanceEstimated {
			estimated++
		}
	}
	l.Total = format.Currency(total)
	l.Note = fmt.Sprintf("Data provenance: %d observed / %d estimated", len(rows)-estimated, estimated)
	return l
}

func (c *Controller) top10() Top10 {
	t := Top10{Sector: c.state.Sector, Color: index.SectorColor(c.state.Sector)}
	if !c.state.SectorLens() {
		t.Message = "Choose a product sector to view top producers."
		return t
	}
	rows := c.data.ProducersFor(c.state.Year, c.state.Sector)
	if len(rows) == 0 {
		t.Message = fmt.Sprintf("No %s producer data for %d", format.TitleCase(c.state.Sector), c.state.Year)
		return t
	}
	leader := rows[0].Value
	if !(leader > 0) {
		leader = 1
	}
	for i, r := range rows {
		if i == 10 {
			break
		}
		prov := dataset.ProvenanceObserved
		if r.Provenance == dataset.ProvenanceEstimated {
			prov = dataset.ProvenanceEstimated
		}
		t.Rows = append(t.Rows, Top10Row{
			Rank:       i + 1,
			ISO2:       r.ISO2,
			Flag:       format.Flag(r.ISO2),
			Name:       c.countryName(r.ISO2),
			SharePct:   int(math.Round(r.Value / leader * 100)),
			Provenance: prov,
			Badge:      ProvenanceLabel(SectorProvenance(prov)),
			Value:      r.Value,
			ValueLabel: format.Currency(r.Value),
		})
	}
	return t
}

// countryName is the display name of iso2, falling back to the code.
func (c *Controller) countryName(iso2 string) string {
	if n, ok := c.data.Country(iso2); ok && n.Name != "" {
		return n.Name
	}
	return iso2
}

// Search returns up to ten countries matching q without touching the state.
func (c *Controller) Search(q string) []Suggestion {
	var out []Suggestion
	for _, n := range filter.Search(c.data, q) {
		out = append(out, Suggestion{ISO2: n.ISO2, Name: n.Name, Flag: format.Flag(n.ISO2)})
	}
	return out
}
