package dataset

import (
	"slices"
	"strconv"
	"sync"
)

// Direction is the recorded flow direction of a trade link.
type Direction string

const (
	DirectionBoth   Direction = "both"
	DirectionExport Direction = "export"
	DirectionImport Direction = "import"
)

// Provenance tells whether a producer value was sourced or synthesized.
type Provenance string

const (
	ProvenanceObserved  Provenance = "observed"
	ProvenanceEstimated Provenance = "estimated"
)

// Radius bounds for bubble sizing.
const (
	MinBaseZ    = 8.0
	MaxBaseZ    = 60.0
	MaxDisplayZ = 72.0
)

// Country is one bubble in the graph. iso2 is its identity.
type Country struct {
	ISO2             string  `json:"iso2" validate:"required,len=2,uppercase,ne=XX"`
	ISO3             string  `json:"iso3" validate:"omitempty,len=3"`
	Name             string  `json:"country" validate:"required"`
	GDPUsd           float64 `json:"gdpUsd" validate:"gt=0"`
	ExportsUsd       float64 `json:"exportsUsd" validate:"gte=0"`
	ImportsUsd       float64 `json:"importsUsd" validate:"gte=0"`
	ExportsEstimated bool    `json:"exportsEstimated" validate:"eq=false"`
	ImportsEstimated bool    `json:"importsEstimated" validate:"eq=false"`
	BubbleRadius     float64 `json:"bubbleRadius,omitempty"`

	// BaseZ is the GDP-derived radius, fixed at load time.
	BaseZ float64 `json:"baseZ"`
}

// Link is one bilateral trade flow for one year.
type Link struct {
	Source    string    `json:"s" validate:"required,len=2"`
	Target    string    `json:"t" validate:"required,len=2,nefield=Source"`
	TradeUsd  float64   `json:"tradeUsd" validate:"gt=0"`
	Year      int       `json:"year" validate:"gt=0"`
	Direction Direction `json:"direction" validate:"oneof=both export import"`
	Weight    float64   `json:"weight,omitempty"`

	// V is the visual weight 1 + 4*sqrt(trade/maxTrade), in [1, 5].
	V float64 `json:"v"`
}

// Touches reports whether iso2 is either endpoint of l.
func (l Link) Touches(iso2 string) bool {
	return l.Source == iso2 || l.Target == iso2
}

// Sector is a product sector that producer rankings are keyed by.
type Sector struct {
	ID      string   `json:"id" validate:"required"`
	Name    string   `json:"name"`
	HSCodes []string `json:"hsCodes"`
}

// DisplayName returns the sector name, falling back to its id.
func (s Sector) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// ProducerRow is one entry of a top-producers list.
type ProducerRow struct {
	ISO2       string     `json:"iso2" validate:"required,len=2"`
	Value      float64    `json:"value" validate:"gt=0"`
	Provenance Provenance `json:"provenance" validate:"eq=observed"`
}

// ValueRow is one entry of a detailed sector value table.
type ValueRow struct {
	ISO2  string  `json:"iso2"`
	Value float64 `json:"value"`
}

// Meta describes where and when the snapshot was built.
type Meta struct {
	GeneratedAt  string         `json:"generatedAt,omitempty"`
	SnapshotDate string         `json:"snapshotDate,omitempty"`
	Sources      map[string]any `json:"sources,omitempty"`
	LinkYears    []int          `json:"linkYears,omitempty"`
	SectorYears  []int          `json:"sectorYears,omitempty"`
}

// Dataset is the normalized, strongly typed snapshot the engine reads.
// It is immutable once [Normalize] returns.
type Dataset struct {
	Meta    Meta      `json:"meta"`
	Nodes   []Country `json:"nodes" validate:"dive"`
	Links   []Link    `json:"links" validate:"dive"`
	Sectors []Sector  `json:"sectors" validate:"dive"`

	// TopProducers and SectorValues are keyed by year, then sector id.
	TopProducers map[int]map[string][]ProducerRow `json:"topProducersBySectorYear" validate:"dive,dive,min=1,max=10,dive"`
	SectorValues map[int]map[string][]ValueRow    `json:"sectorValuesBySectorYear"`

	// AvailableYears is sorted descending. It holds the distinct link years
	// when any link exists, otherwise the top-producer years.
	AvailableYears []int `json:"availableYears"`

	indexOnce sync.Once
	byISO2    map[string]int
}

// Country returns the node with the given iso2 code.
func (d *Dataset) Country(iso2 string) (Country, bool) {
	d.indexOnce.Do(d.reindex)
	i, ok := d.byISO2[iso2]
	if !ok {
		return Country{}, false
	}
	return d.Nodes[i], true
}

// Has reports whether iso2 is a known node.
func (d *Dataset) Has(iso2 string) bool {
	_, ok := d.Country(iso2)
	return ok
}

// Sector returns the sector with the given id.
func (d *Dataset) Sector(id string) (Sector, bool) {
	for _, s := range d.Sectors {
		if s.ID == id {
			return s, true
		}
	}
	return Sector{}, false
}

// CurrentYear returns the newest available year, or 0 if there is none.
func (d *Dataset) CurrentYear() int {
	if len(d.AvailableYears) == 0 {
		return 0
	}
	return d.AvailableYears[0]
}

// HasYear reports whether year is one of the available years.
func (d *Dataset) HasYear(year int) bool {
	return slices.Contains(d.AvailableYears, year)
}

// ProducersFor returns the top-producers list for (year, sector).
func (d *Dataset) ProducersFor(year int, sectorID string) []ProducerRow {
	return d.TopProducers[year][sectorID]
}

// LastUpdated returns the snapshot date, falling back to the date part of
// generatedAt. It returns "" when neither is known.
func (d *Dataset) LastUpdated() string {
	if d.Meta.SnapshotDate != "" {
		return d.Meta.SnapshotDate
	}
	if len(d.Meta.GeneratedAt) >= 10 {
		return d.Meta.GeneratedAt[:10]
	}
	return ""
}

func (d *Dataset) reindex() {
	d.byISO2 = make(map[string]int, len(d.Nodes))
	for i, n := range d.Nodes {
		if _, dup := d.byISO2[n.ISO2]; !dup {
			d.byISO2[n.ISO2] = i
		}
	}
}

func yearKey(s string) (int, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
