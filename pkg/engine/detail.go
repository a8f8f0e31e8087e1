package engine

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/edges"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/format"
	"github.com/matzehuels/macroviewer/pkg/index"
)

// Panel sizes.
const (
	MaxPartners      = 6
	MaxDetailSectors = 5
)

// SectorProvenance classifies where a country's sector figure came from.
type SectorProvenance string

const (
	ProvenanceEstimated   SectorProvenance = "estimated"
	ProvenanceObserved    SectorProvenance = "observed"
	ProvenanceNotSelected SectorProvenance = "not-selected"
	ProvenanceNotRanked   SectorProvenance = "not-ranked"
)

// ProvenanceLabel is the display text of p.
func ProvenanceLabel(p SectorProvenance) string {
	switch p {
	case ProvenanceEstimated:
		return "Estimated"
	case ProvenanceObserved:
		return "Observed"
	case ProvenanceNotSelected:
		return "Not selected"
	}
	return "Not ranked"
}

// Row is a label/value line of a panel.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// Partner is one trade partner of a country in the current year.
type Partner struct {
	ISO2     string  `json:"iso2"`
	Name     string  `json:"name"`
	TradeUsd float64 `json:"tradeUsd"`
	Trade    string  `json:"trade"`
}

// SectorEntry is one sector a country produces.
type SectorEntry struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Rank  int     `json:"rank"`
	Label string  `json:"label"`
}

// BlocMembership is one bloc a country belongs to.
type BlocMembership struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Members int    `json:"members"`
}

// Detail is the country panel.
type Detail struct {
	ISO2  string `json:"iso2"`
	ISO3  string `json:"iso3"`
	Codes string `json:"codes"`
	Name  string `json:"name"`
	Flag  string `json:"flag"`
	Color string `json:"color"`

	GDPUsd     float64 `json:"gdpUsd"`
	ExportsUsd float64 `json:"exportsUsd"`
	ImportsUsd float64 `json:"importsUsd"`
	BalanceUsd float64 `json:"balanceUsd"`
	GDP        string  `json:"gdp"`
	Exports    string  `json:"exports"`
	Imports    string  `json:"imports"`
	Balance    string  `json:"balance"`

	Partners     []Partner        `json:"partners"`
	PartnersNote string           `json:"partnersNote,omitempty"`
	Focus        []Row            `json:"focus"`
	Sectors      []SectorEntry    `json:"sectors"`
	Blocs        []BlocMembership `json:"blocs"`
	Provenance   []Row            `json:"provenance"`
}

// Tooltip is the hover card of a node or link.
type Tooltip struct {
	Title    string   `json:"title"`
	Color    string   `json:"color"`
	Subtitle string   `json:"subtitle"`
	Lines    []string `json:"lines"`
}

// Detail returns the country panel for iso2 under the current state.
func (c *Controller) Detail(iso2 string) (Detail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detailLocked(strings.ToUpper(iso2))
}

func (c *Controller) detailLocked(iso2 string) (Detail, error) {
	n, ok := c.data.Country(iso2)
	if !ok {
		return Detail{}, errors.New(errors.ErrCodeNotFound, "country %q not found", iso2)
	}
	year, sector := c.state.Year, c.state.Sector

	d := Detail{
		ISO2:       n.ISO2,
		ISO3:       n.ISO3,
		Codes:      n.ISO2 + " | " + n.ISO3,
		Name:       n.Name,
		Flag:       format.Flag(n.ISO2),
		Color:      c.titleColor(),
		GDPUsd:     n.GDPUsd,
		ExportsUsd: n.ExportsUsd,
		ImportsUsd: n.ImportsUsd,
		BalanceUsd: n.ExportsUsd - n.ImportsUsd,
		GDP:        format.Currency(n.GDPUsd),
		Exports:    format.Currency(n.ExportsUsd),
		Imports:    format.Currency(n.ImportsUsd),
	}
	d.Balance = format.SignedCurrency(d.BalanceUsd)

	for _, p := range c.partners(iso2) {
		if len(d.Partners) == MaxPartners {
			break
		}
		d.Partners = append(d.Partners, p)
	}
	if len(d.Partners) == 0 {
		d.PartnersNote = fmt.Sprintf("No partner data for %d", year)
	}

	if !c.state.SectorLens() {
		style, _ := c.pass.styled.Node(iso2)
		var score, gdp, trade, flow float64
		if style != nil {
			score, gdp, trade, flow = style.Score, style.GDPNorm, style.TradeNorm, style.TradeFlowUsd
		}
		d.Focus = []Row{
			{Label: "Current mode", Value: "Default lens: GDP + Trade Heat"},
			{Label: "Lens score", Value: fmt.Sprintf("%d/100", pct(score))},
			{Label: "GDP signal / Trade signal", Value: fmt.Sprintf("%d / %d", pct(gdp), pct(trade))},
			{Label: "Visible trade intensity", Value: format.Currency(flow)},
		}
	} else {
		summary := "Not in current top producers"
		if v := c.index.SectorValue(year, sector, iso2); v > 0 {
			summary = fmt.Sprintf("%s (rank #%d)", format.Currency(v), c.index.SectorRank(year, sector, iso2))
		}
		d.Focus = []Row{{Label: format.TitleCase(sector) + " focus", Value: summary, Color: d.Color}}
	}

	d.Sectors = c.topSectors(iso2)
	d.Blocs = c.memberships(iso2)

	tradeProv := ProvenanceObserved
	if n.ExportsEstimated || n.ImportsEstimated {
		tradeProv = ProvenanceEstimated
	}
	rankingLabel, rankingValue := "Product ranking", ProvenanceLabel(ProvenanceNotSelected)
	if c.state.SectorLens() {
		rankingLabel = format.TitleCase(sector) + " ranking"
		rankingValue = ProvenanceLabel(c.sectorProvenance(iso2))
	}
	d.Provenance = []Row{
		{Label: fmt.Sprintf("Trade totals (%d)", year), Value: ProvenanceLabel(tradeProv)},
		{Label: "Exports value", Value: ProvenanceLabel(estimatedIf(n.ExportsEstimated))},
		{Label: "Imports value", Value: ProvenanceLabel(estimatedIf(n.ImportsEstimated))},
		{Label: rankingLabel, Value: rankingValue},
	}
	return d, nil
}

// Partners returns every trade partner of iso2 in the current year,
// regardless of direction and threshold, by descending combined trade.
func (c *Controller) Partners(iso2 string) []Partner {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partners(strings.ToUpper(iso2))
}

func (c *Controller) partners(iso2 string) []Partner {
	var out []Partner
	at := make(map[string]int)
	credit := func(other string, v float64) {
		n, ok := c.data.Country(other)
		if !ok {
			return
		}
		i, seen := at[other]
		if !seen {
			i = len(out)
			at[other] = i
			out = append(out, Partner{ISO2: other, Name: n.Name})
		}
		out[i].TradeUsd += v
	}
	for _, l := range edges.ForYear(c.data.Links, c.state.Year) {
		if !(l.TradeUsd > 0) {
			continue
		}
		if l.Source == iso2 {
			credit(l.Target, l.TradeUsd)
		}
		if l.Target == iso2 {
			credit(l.Source, l.TradeUsd)
		}
	}
	slices.SortStableFunc(out, func(a, b Partner) int { return cmp.Compare(b.TradeUsd, a.TradeUsd) })
	for i := range out {
		out[i].Trade = format.Currency(out[i].TradeUsd)
	}
	return out
}

// TotalTrade sums every current-year link touching iso2.
func (c *Controller) TotalTrade(iso2 string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalTrade(iso2)
}

func (c *Controller) totalTrade(iso2 string) float64 {
	var sum float64
	for _, l := range edges.ForYear(c.data.Links, c.state.Year) {
		if l.Touches(iso2) {
			sum += l.TradeUsd
		}
	}
	return sum
}

func (c *Controller) topSectors(iso2 string) []SectorEntry {
	var out []SectorEntry
	for _, s := range c.data.Sectors {
		v := c.index.SectorValue(c.state.Year, s.ID, iso2)
		if !(v > 0) {
			continue
		}
		e := SectorEntry{ID: s.ID, Name: s.DisplayName(), Value: v, Rank: c.index.SectorRank(c.state.Year, s.ID, iso2)}
		e.Label = format.Currency(v)
		if e.Rank > 0 {
			e.Label += fmt.Sprintf(" (#%d)", e.Rank)
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b SectorEntry) int { return cmp.Compare(b.Value, a.Value) })
	if len(out) > MaxDetailSectors {
		out = out[:MaxDetailSectors]
	}
	return out
}

func (c *Controller) memberships(iso2 string) []BlocMembership {
	var out []BlocMembership
	for _, id := range c.index.BlocsOf(iso2) {
		b, ok := c.index.Bloc(id)
		if !ok {
			continue
		}
		out = append(out, BlocMembership{ID: b.ID, Name: b.Name, Color: b.Color, Members: b.MemberCount()})
	}
	return out
}

// sectorProvenance follows the top-producer entry when there is one, and
// otherwise calls any positive value observed.
func (c *Controller) sectorProvenance(iso2 string) SectorProvenance {
	if !c.state.SectorLens() {
		return ProvenanceNotSelected
	}
	for _, r := range c.data.ProducersFor(c.state.Year, c.state.Sector) {
		if r.ISO2 != iso2 {
			continue
		}
		if r.Provenance == dataset.ProvenanceEstimated {
			return ProvenanceEstimated
		}
		return ProvenanceObserved
	}
	if c.index.SectorValue(c.state.Year, c.state.Sector, iso2) > 0 {
		return ProvenanceObserved
	}
	return ProvenanceNotRanked
}

// NodeTooltip returns the hover card of iso2.
func (c *Controller) NodeTooltip(iso2 string) (Tooltip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.data.Country(strings.ToUpper(iso2))
	if !ok {
		return Tooltip{}, errors.New(errors.ErrCodeNotFound, "country %q not found", iso2)
	}
	year, sector := c.state.Year, c.state.Sector
	t := Tooltip{
		Title:    n.Name,
		Color:    c.titleColor(),
		Subtitle: fmt.Sprintf("GDP: %s | %d", format.Currency(n.GDPUsd), year),
	}

	var blocNames []string
	for _, m := range c.memberships(n.ISO2) {
		blocNames = append(blocNames, m.Name)
	}
	blocs := "None in configured blocs"
	if len(blocNames) > 0 {
		blocs = strings.Join(blocNames, ", ")
	}
	lensLine := "Default lens: GDP + Trade Heat"
	if c.state.SectorLens() {
		lensLine = fmt.Sprintf("%s data: %s", format.TitleCase(sector), ProvenanceLabel(c.sectorProvenance(n.ISO2)))
	}
	t.Lines = []string{
		fmt.Sprintf("Total trade links (%d): %s", year, format.Currency(c.totalTrade(n.ISO2))),
		"Exports: " + format.Currency(n.ExportsUsd),
		"Imports: " + format.Currency(n.ImportsUsd),
		"Trade data: " + ProvenanceLabel(estimatedIf(n.ExportsEstimated || n.ImportsEstimated)),
		"Blocs: " + blocs,
		lensLine,
	}

	switch {
	case !c.state.SectorLens():
		style, _ := c.pass.styled.Node(n.ISO2)
		if style != nil {
			t.Lines = append(t.Lines,
				fmt.Sprintf("Default lens: %d/100", pct(style.Score)),
				fmt.Sprintf("GDP signal %d | Trade signal %d", pct(style.GDPNorm), pct(style.TradeNorm)),
				"Visible trade intensity: "+format.Currency(style.TradeFlowUsd))
		}
	case c.index.SectorValue(year, sector, n.ISO2) > 0:
		t.Lines = append(t.Lines, fmt.Sprintf("%s: %s (rank #%d)", format.TitleCase(sector),
			format.Currency(c.index.SectorValue(year, sector, n.ISO2)), c.index.SectorRank(year, sector, n.ISO2)))
	default:
		t.Lines = append(t.Lines, fmt.Sprintf("No %s top-producer record", format.TitleCase(sector)))
	}
	return t, nil
}

// LinkTooltip returns the hover card of the visible link source -> target.
func (c *Controller) LinkTooltip(source, target string) (Tooltip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	source, target = strings.ToUpper(source), strings.ToUpper(target)
	for _, l := range c.pass.visible {
		if l.Source != source || l.Target != target {
			continue
		}
		return Tooltip{
			Title:    c.countryName(source) + " -> " + c.countryName(target),
			Color:    "#ddd",
			Subtitle: fmt.Sprintf("Year: %d | Direction: %s", l.Year, l.Direction),
			Lines:    []string{"Trade: " + format.Currency(l.TradeUsd)},
		}, nil
	}
	return Tooltip{}, errors.New(errors.ErrCodeNotFound, "no visible link %s -> %s", source, target)
}

// titleColor is the sector color under the sector lens, else neutral.
func (c *Controller) titleColor() string {
	if c.state.SectorLens() {
		return index.SectorColor(c.state.Sector)
	}
	return neutralTitleColor
}

func estimatedIf(b bool) SectorProvenance {
	if b {
		return ProvenanceEstimated
	}
	return ProvenanceObserved
}

func pct(f float64) int { return int(math.Round(f * 100)) }
