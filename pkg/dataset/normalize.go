package dataset

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Report counts the repairs [Normalize] made. A clean snapshot produces a
// zero Report.
type Report struct {
	DroppedNodes       int // nodes without an iso2 or repeating an earlier iso2
	DroppedLinks       int // links with an unknown endpoint or s == t
	CoercedDirections  int // link directions that were missing or unrecognized
	CoercedProvenances int // producer rows whose provenance was not "observed" or "estimated"
	DroppedYearKeys    int // year keys that are not integers
}

// Clean reports whether no repair was needed.
func (r Report) Clean() bool { return r == Report{} }

// Normalize converts a raw snapshot into the canonical [Dataset].
//
// It never fails. Missing arrays become empty, unknown link directions
// become "export", links whose endpoints are unknown or equal are dropped,
// estimation flags become plain booleans and producer provenance becomes
// "observed" unless it is exactly "estimated". Base radii and link weights
// are derived here, once.
func Normalize(raw *Raw) (*Dataset, Report) {
	var rep Report
	if raw == nil {
		raw = &Raw{}
	}

	d := &Dataset{
		Nodes:        make([]Country, 0, len(raw.Nodes)),
		Links:        make([]Link, 0, len(raw.Links)),
		Sectors:      make([]Sector, 0, len(raw.Sectors)),
		TopProducers: make(map[int]map[string][]ProducerRow),
		SectorValues: make(map[int]map[string][]ValueRow),
	}

	d.Meta = Meta{
		GeneratedAt:  strings.TrimSpace(raw.Meta.GeneratedAt.String()),
		SnapshotDate: strings.TrimSpace(raw.Meta.SnapshotDate.String()),
		Sources:      raw.Meta.Sources,
		LinkYears:    years(raw.Meta.LinkYears),
		SectorYears:  years(raw.Meta.SectorYears),
	}

	seen := make(map[string]bool, len(raw.Nodes))
	for _, n := range raw.Nodes {
		iso2 := normISO(n.ISO2)
		if iso2 == "" || seen[iso2] {
			rep.DroppedNodes++
			continue
		}
		seen[iso2] = true
		d.Nodes = append(d.Nodes, Country{
			ISO2:             iso2,
			ISO3:             normISO(n.ISO3),
			Name:             strings.TrimSpace(n.Country.String()),
			GDPUsd:           n.GDPUsd.Float(),
			ExportsUsd:       n.ExportsUsd.Float(),
			ImportsUsd:       n.ImportsUsd.Float(),
			ExportsEstimated: bool(n.ExportsEstimated),
			ImportsEstimated: bool(n.ImportsEstimated),
			BubbleRadius:     n.BubbleRadius.Float(),
		})
	}

	for _, l := range raw.Links {
		src, dst := normISO(l.S), normISO(l.T)
		if !seen[src] || !seen[dst] || src == dst {
			rep.DroppedLinks++
			continue
		}
		dir, ok := ParseDirection(l.Direction.String())
		if !ok {
			rep.CoercedDirections++
		}
		d.Links = append(d.Links, Link{
			Source:    src,
			Target:    dst,
			TradeUsd:  l.TradeUsd.Float(),
			Year:      int(l.Year.Float()),
			Direction: dir,
			Weight:    l.Weight.Float(),
		})
	}

	for _, s := range raw.Sectors {
		id := strings.TrimSpace(s.ID.String())
		if id == "" {
			continue
		}
		codes := make([]string, 0, len(s.HSCodes))
		for _, c := range s.HSCodes {
			codes = append(codes, c.String())
		}
		d.Sectors = append(d.Sectors, Sector{ID: id, Name: strings.TrimSpace(s.Name.String()), HSCodes: codes})
	}

	for key, bySector := range raw.TopProducersBySectorYear {
		year, ok := yearKey(key)
		if !ok {
			rep.DroppedYearKeys++
			continue
		}
		out := make(map[string][]ProducerRow, len(bySector))
		for sectorID, rows := range bySector {
			list := make([]ProducerRow, 0, len(rows))
			for _, r := range rows {
				prov, ok := ParseProvenance(r.Provenance.String())
				if !ok {
					rep.CoercedProvenances++
				}
				list = append(list, ProducerRow{ISO2: normISO(r.ISO2), Value: r.Value.Float(), Provenance: prov})
			}
			out[sectorID] = list
		}
		d.TopProducers[year] = out
	}

	for key, bySector := range raw.SectorValuesBySectorYear {
		year, ok := yearKey(key)
		if !ok {
			rep.DroppedYearKeys++
			continue
		}
		out := make(map[string][]ValueRow, len(bySector))
		for sectorID, rows := range bySector {
			list := make([]ValueRow, 0, len(rows))
			for _, r := range rows {
				list = append(list, ValueRow{ISO2: normISO(r.ISO2), Value: r.Value.Float()})
			}
			out[sectorID] = list
		}
		d.SectorValues[year] = out
	}

	d.AvailableYears = availableYears(d)
	applyScales(d)
	d.indexOnce.Do(d.reindex)
	return d, rep
}

// ParseDirection lower-cases s and maps it onto a [Direction]. Empty and
// unrecognized values yield [DirectionExport] with ok set to false.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionBoth:
		return DirectionBoth, true
	case DirectionExport:
		return DirectionExport, true
	case DirectionImport:
		return DirectionImport, true
	}
	return DirectionExport, false
}

// ParseProvenance maps s onto a [Provenance]. Only the exact string
// "estimated" is estimated; ok is false when s was neither known value.
func ParseProvenance(s string) (Provenance, bool) {
	switch Provenance(s) {
	case ProvenanceEstimated:
		return ProvenanceEstimated, true
	case ProvenanceObserved:
		return ProvenanceObserved, true
	}
	return ProvenanceObserved, false
}

// BaseRadius is the load-time bubble radius: the declared bubble radius when
// positive, else 8 + 52*sqrt(gdp/maxGDP), clamped to [8, 60].
func BaseRadius(bubbleRadius, gdp, maxGDP float64) float64 {
	z := bubbleRadius
	if !(z > 0) {
		if !(maxGDP > 0) {
			maxGDP = 1
		}
		z = 8 + 52*math.Sqrt(math.Max(0, gdp)/maxGDP)
	}
	return max(MinBaseZ, min(MaxBaseZ, z))
}

// LinkWeight is the visual weight 1 + 4*sqrt(trade/maxTrade).
func LinkWeight(trade, maxTrade float64) float64 {
	if !(maxTrade > 0) {
		maxTrade = 1
	}
	return 1 + 4*math.Sqrt(math.Max(0, trade)/maxTrade)
}

func applyScales(d *Dataset) {
	var maxGDP, maxTrade float64
	for _, n := range d.Nodes {
		maxGDP = max(maxGDP, n.GDPUsd)
	}
	for _, l := range d.Links {
		maxTrade = max(maxTrade, l.TradeUsd)
	}
	for i := range d.Nodes {
		n := &d.Nodes[i]
		n.BaseZ = BaseRadius(n.BubbleRadius, n.GDPUsd, maxGDP)
	}
	for i := range d.Links {
		d.Links[i].V = LinkWeight(d.Links[i].TradeUsd, maxTrade)
	}
}

func availableYears(d *Dataset) []int {
	set := make(map[int]bool)
	for _, l := range d.Links {
		if l.Year > 0 {
			set[l.Year] = true
		}
	}
	if len(set) == 0 {
		for y := range d.TopProducers {
			set[y] = true
		}
	}
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	slices.SortFunc(out, func(a, b int) int { return cmp.Compare(b, a) })
	return out
}

func years(in []Number) []int {
	out := make([]int, 0, len(in))
	for _, n := range in {
		if y := int(n.Float()); y > 0 {
			out = append(out, y)
		}
	}
	return out
}

func normISO(t Text) string {
	return strings.ToUpper(strings.TrimSpace(t.String()))
}
