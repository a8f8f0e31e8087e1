package engine

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/lens"
)

const fixture = `{
	"meta": {"snapshotDate": "2024-05-01"},
	"nodes": [
		{"iso2": "US", "iso3": "USA", "country": "United States", "gdpUsd": 25e12, "exportsUsd": 2e12, "importsUsd": 3e12},
		{"iso2": "CN", "iso3": "CHN", "country": "China", "gdpUsd": 18e12, "exportsUsd": 3.5e12, "importsUsd": 2.6e12},
		{"iso2": "DE", "iso3": "DEU", "country": "Germany", "gdpUsd": 4.5e12, "exportsUsd": 1.7e12, "importsUsd": 1.5e12},
		{"iso2": "FR", "iso3": "FRA", "country": "France", "gdpUsd": 3e12, "exportsUsd": 0.6e12, "importsUsd": 0.8e12}
	],
	"links": [
		{"s": "US", "t": "CN", "tradeUsd": 5e11, "year": 2023, "direction": "export"},
		{"s": "DE", "t": "US", "tradeUsd": 2e11, "year": 2023, "direction": "export"},
		{"s": "FR", "t": "DE", "tradeUsd": 1e11, "year": 2023, "direction": "export"},
		{"s": "CN", "t": "FR", "tradeUsd": 5e8, "year": 2023, "direction": "export"},
		{"s": "US", "t": "DE", "tradeUsd": 1e11, "year": 2022, "direction": "export"}
	],
	"sectors": [{"id": "medicine", "name": "Medicine"}],
	"topProducersBySectorYear": {
		"2023": {"medicine": [
			{"iso2": "DE", "value": 1e10, "provenance": "observed"},
			{"iso2": "US", "value": 5e9, "provenance": "estimated"}
		]}
	}
}`

func loadFixture(t *testing.T, js string) *dataset.Dataset {
	t.Helper()
	raw, err := dataset.Decode(strings.NewReader(js))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	d, _ := dataset.Normalize(raw)
	return d
}

func newController(t *testing.T) *Controller {
	t.Helper()
	c, err := New(loadFixture(t, fixture), Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func dispatch(t *testing.T, c *Controller, a filter.Action) Frame {
	t.Helper()
	f, err := c.Dispatch(context.Background(), a)
	if err != nil {
		t.Fatalf("Dispatch(%s): %v", a.Kind, err)
	}
	return f
}

func TestNewWithoutDataset(t *testing.T) {
	if _, err := New(nil, Options{}); !errors.Is(err, errors.ErrCodeDatasetMissing) {
		t.Fatalf("New(nil) = %v, want DATASET_MISSING", err)
	}
}

func TestInitialFrame(t *testing.T) {
	f := newController(t).Frame()

	if f.Generation != 1 || f.Effect != "rebuild" {
		t.Errorf("generation %d effect %s", f.Generation, f.Effect)
	}
	want := Labels{
		Year:        "Year: 2023",
		Direction:   "Direction: Both",
		Threshold:   "Min Trade: $1.00B",
		Bloc:        "Bloc: Global",
		LastUpdated: "Last updated: 2024-05-01",
	}
	if f.Labels != want {
		t.Errorf("labels = %+v", f.Labels)
	}
	if f.Stats != (Stats{Countries: 4, Links: 3, GDPUsd: 50.5e12, GDP: "$50.50T"}) {
		t.Errorf("stats = %+v", f.Stats)
	}
	if len(f.Positions) != 4 || len(f.Lens.Nodes) != 4 {
		t.Errorf("every node must be laid out: %d positions, %d styles", len(f.Positions), len(f.Lens.Nodes))
	}
	if f.Legend.Title != "Default Lens" || f.Legend.TopProducer != "United States (100/100)" || f.Legend.Total != "$800.00B" {
		t.Errorf("legend = %+v", f.Legend)
	}
	if f.Legend.Note != "Default lens: 62% GDP + 38% trade intensity" {
		t.Errorf("legend note = %q", f.Legend.Note)
	}
	if f.Top10.Message != "Choose a product sector to view top producers." {
		t.Errorf("top10 = %+v", f.Top10)
	}
}

func TestLastUpdatedFallsBackToToday(t *testing.T) {
	d := loadFixture(t, `{"nodes": [{"iso2": "US", "country": "United States", "gdpUsd": 1e12}]}`)
	c, err := New(d, Options{Now: func() time.Time { return time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC) }})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if got := c.Frame().Labels.LastUpdated; got != "Last updated: 2025-03-09" {
		t.Errorf("LastUpdated = %q", got)
	}
}

func TestRebuildPreservesPositions(t *testing.T) {
	c := newController(t)
	c.Settle()
	before := c.Frame().Positions

	f := dispatch(t, c, filter.Action{Kind: filter.KindCycleThreshold})
	if f.Generation != 2 || f.Effect != "rebuild" {
		t.Errorf("generation %d effect %s", f.Generation, f.Effect)
	}
	if f.State.MinTrade != 5e9 || f.Labels.Threshold != "Min Trade: $5.00B" {
		t.Errorf("threshold = %v / %s", f.State.MinTrade, f.Labels.Threshold)
	}
	if !reflect.DeepEqual(before, f.Positions) {
		t.Errorf("positions moved across rebuild:\n%v\n%v", before, f.Positions)
	}
}

func TestSectorLensRestyles(t *testing.T) {
	c := newController(t)
	f := dispatch(t, c, filter.Action{Kind: filter.KindSelectSector, Sector: "medicine"})

	if f.Effect != "restyle" || f.Generation != 1 {
		t.Errorf("sector change must not rebuild: effect %s generation %d", f.Effect, f.Generation)
	}
	if f.Lens.Kind != lens.KindSector || f.LayoutState != layout.StateRunning {
		t.Errorf("lens %s layout %s", f.Lens.Kind, f.LayoutState)
	}
	if len(f.Top10.Rows) != 2 {
		t.Fatalf("top10 rows = %+v", f.Top10.Rows)
	}
	de, us := f.Top10.Rows[0], f.Top10.Rows[1]
	if de.ISO2 != "DE" || de.SharePct != 100 || de.Badge != "Observed" || de.Name != "Germany" {
		t.Errorf("row 1 = %+v", de)
	}
	if us.Rank != 2 || us.SharePct != 50 || us.Badge != "Estimated" || us.ValueLabel != "$5.00B" {
		t.Errorf("row 2 = %+v", us)
	}
	want := Legend{Title: "Medicine", Color: "#e8453c", TopProducer: "Germany", Total: "$15.00B", Note: "Data provenance: 1 observed / 1 estimated"}
	if f.Legend != want {
		t.Errorf("legend = %+v", f.Legend)
	}
}

func TestBlocFilter(t *testing.T) {
	c := newController(t)
	f := dispatch(t, c, filter.Action{Kind: filter.KindApplyBlocs, Blocs: []string{"eu"}})

	if f.Labels.Bloc != "Bloc: EU [union/touching]" {
		t.Errorf("bloc label = %q", f.Labels.Bloc)
	}
	if f.Stats.Countries != 2 || f.Stats.Links != 2 || f.Stats.GDP != "$7.50T" {
		t.Errorf("stats = %+v", f.Stats)
	}
	if len(f.Lens.Nodes) != 4 {
		t.Errorf("non-members must still be drawn, got %d nodes", len(f.Lens.Nodes))
	}
	us, _ := f.Lens.Node("US")
	if us.Member || us.FillOpacity != 0.1 {
		t.Errorf("US under EU filter = %+v", us)
	}

	f = dispatch(t, c, filter.Action{Kind: filter.KindApplyBlocs, Blocs: []string{"eu"}, Scope: filter.Internal})
	if f.Stats.Links != 1 {
		t.Errorf("internal EU links = %d, want 1", f.Stats.Links)
	}
}

func TestDetail(t *testing.T) {
	c := newController(t)
	f := dispatch(t, c, filter.Action{Kind: filter.KindClick, ISO2: "DE"})
	if f.Detail == nil {
		t.Fatal("locked country has no detail")
	}
	d := f.Detail
	if d.Codes != "DE | DEU" || d.Balance != "+$200.00B" || d.Flag != "🇩🇪" {
		t.Errorf("detail header = %+v", d)
	}
	if len(d.Partners) != 2 || d.Partners[0].ISO2 != "US" || d.Partners[1].Trade != "$100.00B" {
		t.Errorf("partners = %+v", d.Partners)
	}
	if len(d.Sectors) != 1 || d.Sectors[0].Label != "$10.00B (#1)" {
		t.Errorf("sectors = %+v", d.Sectors)
	}
	if len(d.Blocs) == 0 || d.Blocs[0].ID != "eu" || d.Blocs[0].Members != 2 {
		t.Errorf("blocs = %+v", d.Blocs)
	}
	if d.Focus[0].Value != "Default lens: GDP + Trade Heat" || d.Provenance[3] != (Row{Label: "Product ranking", Value: "Not selected"}) {
		t.Errorf("focus %+v provenance %+v", d.Focus, d.Provenance)
	}

	dispatch(t, c, filter.Action{Kind: filter.KindSelectSector, Sector: "medicine"})
	sd, err := c.Detail("us")
	if err != nil {
		t.Fatal(err)
	}
	if sd.Focus[0].Value != "$5.00B (rank #2)" || sd.Provenance[3].Value != "Estimated" {
		t.Errorf("sector focus %+v provenance %+v", sd.Focus, sd.Provenance)
	}
	fr, _ := c.Detail("FR")
	if fr.Focus[0].Value != "Not in current top producers" || fr.Provenance[3].Value != "Not ranked" {
		t.Errorf("FR focus %+v provenance %+v", fr.Focus, fr.Provenance)
	}

	if _, err := c.Detail("ZZ"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Detail(ZZ) = %v", err)
	}
}

func TestHighlightDoesNotLeak(t *testing.T) {
	c := newController(t)
	f := dispatch(t, c, filter.Action{Kind: filter.KindHover, ISO2: "DE"})
	if f.Effect != "highlight" {
		t.Errorf("effect = %s", f.Effect)
	}
	cn, _ := f.Lens.Node("CN")
	if cn.FillOpacity != 0.08 {
		t.Errorf("unconnected CN opacity = %v", cn.FillOpacity)
	}

	f = dispatch(t, c, filter.Action{Kind: filter.KindUnhover})
	cn, _ = f.Lens.Node("CN")
	if cn.FillOpacity == 0.08 {
		t.Error("highlight survived unhover")
	}
}

func TestEscape(t *testing.T) {
	c := newController(t)
	dispatch(t, c, filter.Action{Kind: filter.KindCycleYear})
	dispatch(t, c, filter.Action{Kind: filter.KindClick, ISO2: "US"})

	f := dispatch(t, c, filter.Action{Kind: filter.KindEscape})
	if f.State.Locked != "" || f.Detail != nil || f.State.Year != 2022 {
		t.Errorf("first escape should only close the detail: %+v", f.State)
	}
	f = dispatch(t, c, filter.Action{Kind: filter.KindEscape})
	if f.State.Year != 2023 || f.Effect != "rebuild" {
		t.Errorf("second escape should reset: year %d effect %s", f.State.Year, f.Effect)
	}
}

func TestInvalidActions(t *testing.T) {
	c := newController(t)
	before := c.State()
	for _, a := range []filter.Action{
		{Kind: filter.KindHover, ISO2: "ZZ"},
		{Kind: "teleport"},
		{Kind: filter.KindDragStart, ISO2: "ZZ"},
	} {
		if _, err := c.Dispatch(context.Background(), a); !errors.Is(err, errors.ErrCodeInvalidAction) {
			t.Errorf("Dispatch(%+v) = %v, want INVALID_ACTION", a, err)
		}
	}
	if !c.State().Equal(before) {
		t.Error("rejected actions changed the state")
	}
}

func TestDragAndSearch(t *testing.T) {
	c := newController(t)
	c.Settle()
	f := dispatch(t, c, filter.Action{Kind: filter.KindDragStart, ISO2: "DE"})
	if f.LayoutState != layout.StateRunning {
		t.Errorf("drag start layout state = %s", f.LayoutState)
	}
	dispatch(t, c, filter.Action{Kind: filter.KindDragMove, ISO2: "DE", X: 500, Y: 400})
	moved := c.Frame()
	if p, _ := moved.Position("DE"); !p.Pinned || p.X != 500 || p.Y != 400 {
		t.Errorf("DE not pinned: %+v", p)
	}
	dispatch(t, c, filter.Action{Kind: filter.KindDragEnd, ISO2: "DE"})

	f = dispatch(t, c, filter.Action{Kind: filter.KindSearch, Query: "germ"})
	if len(f.Suggestions) != 1 || f.Suggestions[0].ISO2 != "DE" {
		t.Errorf("suggestions = %+v", f.Suggestions)
	}
	if got := c.Search("x"); got != nil {
		t.Errorf("one-character search = %+v", got)
	}
}

func TestTooltips(t *testing.T) {
	c := newController(t)
	tip, err := c.NodeTooltip("DE")
	if err != nil {
		t.Fatal(err)
	}
	if tip.Subtitle != "GDP: $4.50T | 2023" || tip.Lines[0] != "Total trade links (2023): $300.00B" {
		t.Errorf("node tooltip = %+v", tip)
	}
	lt, err := c.LinkTooltip("US", "CN")
	if err != nil {
		t.Fatal(err)
	}
	if lt.Title != "United States -> China" || lt.Lines[0] != "Trade: $500.00B" {
		t.Errorf("link tooltip = %+v", lt)
	}
	if _, err := c.LinkTooltip("CN", "FR"); err == nil {
		t.Error("link below threshold should not have a tooltip")
	}
}
