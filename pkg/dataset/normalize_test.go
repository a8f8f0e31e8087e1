package dataset

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/macroviewer/pkg/errors"
)

func mustNormalize(t *testing.T, js string) (*Dataset, Report) {
	t.Helper()
	raw, err := Decode(strings.NewReader(js))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return Normalize(raw)
}

func TestDecodeAbsent(t *testing.T) {
	for _, in := range []string{"", "   ", "null"} {
		_, err := Decode(strings.NewReader(in))
		if !errors.Is(err, errors.ErrCodeDatasetMissing) {
			t.Errorf("Decode(%q) = %v, want DATASET_MISSING", in, err)
		}
	}
	if _, err := Decode(strings.NewReader(`[1,2]`)); !errors.Is(err, errors.ErrCodeInvalidDataset) {
		t.Errorf("Decode(array) = %v, want INVALID_DATASET", err)
	}
}

func TestNormalizeMissingArrays(t *testing.T) {
	d, rep := mustNormalize(t, `{"nodes": 5, "links": {"a": 1}}`)
	if d.Nodes == nil || d.Links == nil || d.Sectors == nil {
		t.Fatal("arrays should be non-nil")
	}
	if len(d.Nodes)+len(d.Links)+len(d.Sectors) != 0 {
		t.Errorf("expected empty dataset, got %d nodes %d links %d sectors", len(d.Nodes), len(d.Links), len(d.Sectors))
	}
	if !rep.Clean() {
		t.Errorf("report = %+v, want clean", rep)
	}
	if d.CurrentYear() != 0 {
		t.Errorf("CurrentYear = %d, want 0", d.CurrentYear())
	}
}

func TestNormalizeLinks(t *testing.T) {
	d, rep := mustNormalize(t, `{
		"nodes": [
			{"iso2": "US", "iso3": "USA", "country": "United States", "gdpUsd": 25e12},
			{"iso2": "cn", "iso3": "CHN", "country": "China", "gdpUsd": "18e12"}
		],
		"links": [
			{"s": "US", "t": "CN", "tradeUsd": 5e11, "year": 2023, "direction": "EXPORT"},
			{"s": "US", "t": "CN", "tradeUsd": 4e11, "year": 2022, "direction": "sideways"},
			{"s": "US", "t": "CN", "tradeUsd": 3e11, "year": 2022},
			{"s": "CN", "t": "CN", "tradeUsd": 1e9, "year": 2023},
			{"s": "US", "t": "ZZ", "tradeUsd": 1e9, "year": 2023},
			"garbage"
		]
	}`)

	if len(d.Links) != 3 {
		t.Fatalf("links = %d, want 3", len(d.Links))
	}
	if rep.DroppedLinks != 2 {
		t.Errorf("DroppedLinks = %d, want 2", rep.DroppedLinks)
	}
	if rep.CoercedDirections != 2 {
		t.Errorf("CoercedDirections = %d, want 2", rep.CoercedDirections)
	}
	for i, want := range []Direction{DirectionExport, DirectionExport, DirectionExport} {
		if d.Links[i].Direction != want {
			t.Errorf("link %d direction = %q, want %q", i, d.Links[i].Direction, want)
		}
	}
	if got := d.Links[0].Target; got != "CN" {
		t.Errorf("target = %q, want upper-cased CN", got)
	}
	if !slices.Equal(d.AvailableYears, []int{2023, 2022}) {
		t.Errorf("AvailableYears = %v, want [2023 2022]", d.AvailableYears)
	}
	if n, ok := d.Country("CN"); !ok || n.GDPUsd != 18e12 {
		t.Errorf("numeric string gdp not parsed: %+v", n)
	}
}

func TestNormalizeProvenanceAndFlags(t *testing.T) {
	d, rep := mustNormalize(t, `{
		"nodes": [{"iso2": "DE", "country": "Germany", "gdpUsd": 4.5e12, "exportsEstimated": 1, "importsEstimated": null}],
		"topProducersBySectorYear": {
			"2023": {"medicine": [
				{"iso2": "DE", "value": 60, "provenance": "estimated"},
				{"iso2": "CH", "value": 50, "provenance": "Estimated"},
				{"iso2": "US", "value": 40}
			]},
			"latest": {}
		}
	}`)

	n, _ := d.Country("DE")
	if !n.ExportsEstimated || n.ImportsEstimated {
		t.Errorf("flags = %v/%v, want true/false", n.ExportsEstimated, n.ImportsEstimated)
	}
	rows := d.ProducersFor(2023, "medicine")
	want := []Provenance{ProvenanceEstimated, ProvenanceObserved, ProvenanceObserved}
	for i, r := range rows {
		if r.Provenance != want[i] {
			t.Errorf("row %d provenance = %q, want %q", i, r.Provenance, want[i])
		}
	}
	if rep.CoercedProvenances != 2 {
		t.Errorf("CoercedProvenances = %d, want 2", rep.CoercedProvenances)
	}
	if rep.DroppedYearKeys != 1 {
		t.Errorf("DroppedYearKeys = %d, want 1", rep.DroppedYearKeys)
	}
	// No links: years fall back to producer years.
	if !slices.Equal(d.AvailableYears, []int{2023}) {
		t.Errorf("AvailableYears = %v, want [2023]", d.AvailableYears)
	}
}

func TestNormalizeDuplicateNodes(t *testing.T) {
	d, rep := mustNormalize(t, `{"nodes": [
		{"iso2": "FR", "country": "France", "gdpUsd": 3e12},
		{"iso2": "fr", "country": "France again", "gdpUsd": 1},
		{"country": "Nowhere"}
	]}`)
	if len(d.Nodes) != 1 || d.Nodes[0].Name != "France" {
		t.Errorf("nodes = %+v, want the first France only", d.Nodes)
	}
	if rep.DroppedNodes != 2 {
		t.Errorf("DroppedNodes = %d, want 2", rep.DroppedNodes)
	}
}

func TestBaseRadius(t *testing.T) {
	tests := []struct {
		name         string
		bubble, gdp  float64
		maxGDP, want float64
	}{
		{"largest economy", 0, 25e12, 25e12, 60},
		{"zero gdp", 0, 0, 25e12, 8},
		{"quarter", 0, 25e12 / 4, 25e12, 8 + 52*0.5},
		{"declared radius wins", 30, 25e12, 25e12, 30},
		{"declared radius clamped", 90, 1, 25e12, 60},
		{"negative gdp", 0, -5, 25e12, 8},
		{"no max", 0, 10, 0, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BaseRadius(tt.bubble, tt.gdp, tt.maxGDP); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("BaseRadius = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinkWeight(t *testing.T) {
	if got := LinkWeight(5e11, 5e11); got != 5 {
		t.Errorf("max link weight = %v, want 5", got)
	}
	if got := LinkWeight(0, 5e11); got != 1 {
		t.Errorf("zero link weight = %v, want 1", got)
	}
	if got := LinkWeight(5e11/4, 5e11); got != 3 {
		t.Errorf("quarter link weight = %v, want 3", got)
	}
}

func TestLastUpdated(t *testing.T) {
	d := &Dataset{Meta: Meta{GeneratedAt: "2024-06-01T10:00:00Z"}}
	if got := d.LastUpdated(); got != "2024-06-01" {
		t.Errorf("LastUpdated = %q", got)
	}
	d.Meta.SnapshotDate = "2024-05-31"
	if got := d.LastUpdated(); got != "2024-05-31" {
		t.Errorf("LastUpdated = %q", got)
	}
}
