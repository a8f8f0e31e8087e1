package index

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matzehuels/macroviewer/pkg/dataset"
)

// Set is a set of iso2 codes.
type Set map[string]struct{}

// NewSet returns a set holding codes.
func NewSet(codes ...string) Set {
	s := make(Set, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether iso2 is in s. A nil set holds nothing.
func (s Set) Has(iso2 string) bool {
	_, ok := s[iso2]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int { return len(s) }

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// BlocEntry is a catalog bloc with its members restricted to the dataset.
type BlocEntry struct {
	Bloc
	MemberSet Set
}

// MemberCount is the number of dataset countries in the bloc.
func (b *BlocEntry) MemberCount() int { return b.MemberSet.Len() }

// SectorRow is one ranked producer of a (year, sector) table.
type SectorRow struct {
	ISO2  string  `json:"iso2"`
	Value float64 `json:"value"`
	Rank  int     `json:"rank"`
}

// SectorTable is the precomputed value and rank lookup for one
// (year, sector) pair. Rows are sorted by descending value and ranks run
// densely from 1 to len(Rows).
type SectorTable struct {
	Rows  []SectorRow
	value map[string]float64
	rank  map[string]int
}

// Value returns the sector value of iso2, or 0 if it is not a producer.
// It is safe to call on a nil table.
func (t *SectorTable) Value(iso2 string) float64 {
	if t == nil {
		return 0
	}
	return t.value[iso2]
}

// Rank returns the 1-based rank of iso2, or 0 if it is not a producer.
// It is safe to call on a nil table.
func (t *SectorTable) Rank(iso2 string) int {
	if t == nil {
		return 0
	}
	return t.rank[iso2]
}

// Index holds the bloc and sector lookups derived from one dataset. It is
// immutable after [Build] and safe for concurrent readers.
type Index struct {
	blocs        []*BlocEntry
	blocByID     map[string]*BlocEntry
	countryBlocs map[string][]string
	sectors      map[int]map[string]*SectorTable
}

// Build derives the bloc and sector indexes from d.
//
// Bloc members are upper-cased and intersected with the dataset's
// countries; unknown members are dropped. The reverse country to bloc index
// follows catalog order.
//
// Sector tables are built for every year found in either producer source
// and every sector in d.Sectors. The detailed value table is preferred when
// it has rows, otherwise the top-producers table is used.
func Build(d *dataset.Dataset) *Index {
	ix := &Index{
		blocByID:     make(map[string]*BlocEntry, len(Catalog)),
		countryBlocs: make(map[string][]string),
		sectors:      make(map[int]map[string]*SectorTable),
	}
	buildBlocs(ix, d)
	buildSectors(ix, d)
	return ix
}

func buildBlocs(ix *Index, d *dataset.Dataset) {
	present := make(Set, len(d.Nodes))
	for _, n := range d.Nodes {
		present[n.ISO2] = struct{}{}
	}
	for _, b := range Catalog {
		entry := &BlocEntry{Bloc: b, MemberSet: make(Set)}
		for _, code := range b.Members {
			code = strings.ToUpper(strings.TrimSpace(code))
			if present.Has(code) && !entry.MemberSet.Has(code) {
				entry.MemberSet[code] = struct{}{}
				ix.countryBlocs[code] = append(ix.countryBlocs[code], b.ID)
			}
		}
		ix.blocs = append(ix.blocs, entry)
		ix.blocByID[b.ID] = entry
	}
}

func buildSectors(ix *Index, d *dataset.Dataset) {
	years := make(map[int]bool)
	for y := range d.TopProducers {
		years[y] = true
	}
	for y := range d.SectorValues {
		years[y] = true
	}
	for year := range years {
		tables := make(map[string]*SectorTable, len(d.Sectors))
		for _, s := range d.Sectors {
			tables[s.ID] = sectorTable(d.SectorValues[year][s.ID], d.TopProducers[year][s.ID])
		}
		ix.sectors[year] = tables
	}
}

func sectorTable(detailed []dataset.ValueRow, top []dataset.ProducerRow) *SectorTable {
	var rows []SectorRow
	if len(detailed) > 0 {
		for _, r := range detailed {
			rows = append(rows, SectorRow{ISO2: r.ISO2, Value: r.Value})
		}
	} else {
		for _, r := range top {
			rows = append(rows, SectorRow{ISO2: r.ISO2, Value: r.Value})
		}
	}
	rows = RankRows(rows)

	t := &SectorTable{
		Rows:  rows,
		value: make(map[string]float64, len(rows)),
		rank:  make(map[string]int, len(rows)),
	}
	for _, r := range rows {
		t.value[r.ISO2] = r.Value
		t.rank[r.ISO2] = r.Rank
	}
	return t
}

// RankRows upper-cases iso2 codes, keeps two-letter codes with a positive
// value, collapses duplicates to their largest value, sorts by descending
// value and assigns ranks 1..n. Ties keep their input order and still get
// sequential ranks.
func RankRows(rows []SectorRow) []SectorRow {
	out := make([]SectorRow, 0, len(rows))
	pos := make(map[string]int, len(rows))
	for _, r := range rows {
		iso2 := strings.ToUpper(strings.TrimSpace(r.ISO2))
		if len(iso2) != 2 || !(r.Value > 0) {
			continue
		}
		if i, dup := pos[iso2]; dup {
			out[i].Value = max(out[i].Value, r.Value)
			continue
		}
		pos[iso2] = len(out)
		out = append(out, SectorRow{ISO2: iso2, Value: r.Value})
	}
	slices.SortStableFunc(out, func(a, b SectorRow) int { return cmp.Compare(b.Value, a.Value) })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Blocs returns every catalog bloc in catalog order, "all" included.
func (ix *Index) Blocs() []*BlocEntry { return ix.blocs }

// Bloc returns the indexed bloc with the given id.
func (ix *Index) Bloc(id string) (*BlocEntry, bool) {
	b, ok := ix.blocByID[id]
	return b, ok
}

// BlocsOf returns the ids of the blocs iso2 belongs to, in catalog order.
func (ix *Index) BlocsOf(iso2 string) []string { return ix.countryBlocs[iso2] }

// Sector returns the table for (year, sector), or nil when the pair has no
// data. A nil table answers 0 for every lookup.
func (ix *Index) Sector(year int, sectorID string) *SectorTable {
	return ix.sectors[year][sectorID]
}

// SectorValue is shorthand for ix.Sector(year, sectorID).Value(iso2).
func (ix *Index) SectorValue(year int, sectorID, iso2 string) float64 {
	return ix.Sector(year, sectorID).Value(iso2)
}

// SectorRank is shorthand for ix.Sector(year, sectorID).Rank(iso2).
func (ix *Index) SectorRank(year int, sectorID, iso2 string) int {
	return ix.Sector(year, sectorID).Rank(iso2)
}
