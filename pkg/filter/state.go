package filter

import (
	"slices"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/index"
)

// Direction is the trade direction shown by the view. It differs from
// [dataset.Direction]: the view speaks of exports/imports, links of
// export/import.
type Direction string

const (
	Both    Direction = "both"
	Exports Direction = "exports"
	Imports Direction = "imports"
)

// Directions is the cycle order of [Direction] values.
var Directions = []Direction{Both, Exports, Imports}

// EdgeScope decides which links survive a bloc filter.
type EdgeScope string

const (
	// Touching keeps links with at least one member endpoint.
	Touching EdgeScope = "touching"
	// Internal keeps links whose endpoints are both members.
	Internal EdgeScope = "internal"
)

// AllSectors selects the default composite lens.
const AllSectors = "all"

// Thresholds is the minimum-trade ladder in USD.
var Thresholds = []float64{1e9, 5e9, 10e9, 25e9, 50e9, 100e9}

// State is the complete view configuration. States are values: every
// transition returns a new State and never aliases the old one's slices.
type State struct {
	Year      int               `json:"year"`
	Direction Direction         `json:"direction"`
	MinTrade  float64           `json:"minTrade"`
	Sector    string            `json:"sector"`
	Blocs     []string          `json:"blocs"`
	Mode      index.Combination `json:"mode"`
	Scope     EdgeScope         `json:"scope"`

	// BlocChips is the staged chip selection that [KindApplyBlocs] commits
	// when it carries no explicit ids.
	BlocChips []string `json:"blocChips"`

	Locked  string `json:"locked,omitempty"`
	Hovered string `json:"hovered,omitempty"`
	Search  string `json:"search,omitempty"`
}

// Default returns the initial state for d: newest year, both directions,
// the lowest threshold, default lens and no bloc filter.
func Default(d *dataset.Dataset) State {
	return State{
		Year:      d.CurrentYear(),
		Direction: Both,
		MinTrade:  Thresholds[0],
		Sector:    AllSectors,
		Blocs:     []string{index.AllBlocs},
		Mode:      index.Union,
		Scope:     Touching,
		BlocChips: []string{index.AllBlocs},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Blocs = slices.Clone(s.Blocs)
	s.BlocChips = slices.Clone(s.BlocChips)
	return s
}

// BlocFiltered reports whether a concrete bloc selection is active.
func (s State) BlocFiltered() bool { return !index.IsGlobal(s.Blocs) }

// SectorLens reports whether the sector-producer lens is active.
func (s State) SectorLens() bool { return s.Sector != AllSectors }

// Focus is the country driving the connected highlight: the locked country,
// else the hovered one.
func (s State) Focus() string {
	if s.Locked != "" {
		return s.Locked
	}
	return s.Hovered
}

// Equal reports whether two states describe the same view.
func (s State) Equal(o State) bool {
	return s.Year == o.Year && s.Direction == o.Direction && s.MinTrade == o.MinTrade &&
		s.Sector == o.Sector && slices.Equal(s.Blocs, o.Blocs) && s.Mode == o.Mode &&
		s.Scope == o.Scope && slices.Equal(s.BlocChips, o.BlocChips) &&
		s.Locked == o.Locked && s.Hovered == o.Hovered && s.Search == o.Search
}

// NormalizeBlocSelection restricts ids to the catalog and drops duplicates.
// It returns ["all"] when nothing is left or "all" is among them, otherwise
// the concrete ids in their given order.
func NormalizeBlocSelection(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !index.KnownBloc(id) || seen[id] {
			continue
		}
		if id == index.AllBlocs {
			return []string{index.AllBlocs}
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return []string{index.AllBlocs}
	}
	return out
}

// ToggleBlocChip flips one chip of a staged selection. Selecting "all"
// clears every concrete chip; toggling a concrete chip clears "all", and
// turning off the last concrete chip turns "all" back on.
func ToggleBlocChip(chips []string, id string) []string {
	if id == index.AllBlocs {
		return []string{index.AllBlocs}
	}
	if !index.KnownBloc(id) {
		return slices.Clone(chips)
	}
	out := make([]string, 0, len(chips)+1)
	found := false
	for _, c := range chips {
		switch {
		case c == index.AllBlocs:
		case c == id:
			found = true
		default:
			out = append(out, c)
		}
	}
	if !found {
		out = append(out, id)
	}
	if len(out) == 0 {
		return []string{index.AllBlocs}
	}
	return out
}

// Sanitize adapts a state saved against another snapshot to d. Fields
// naming a year, sector or country that d lacks fall back to their
// defaults, and the transient hover and search are cleared.
func Sanitize(d *dataset.Dataset, s State) State {
	def := Default(d)
	out := s.Clone()
	if !d.HasYear(out.Year) {
		out.Year = def.Year
	}
	if dir, ok := ParseDirection(string(out.Direction)); ok {
		out.Direction = dir
	} else {
		out.Direction = def.Direction
	}
	if !slices.Contains(Thresholds, out.MinTrade) {
		out.MinTrade = def.MinTrade
	}
	if out.Sector != AllSectors {
		if _, ok := d.Sector(out.Sector); !ok {
			out.Sector = AllSectors
		}
	}
	out.Blocs = NormalizeBlocSelection(out.Blocs)
	out.BlocChips = NormalizeBlocSelection(out.BlocChips)
	if out.Mode != index.Union && out.Mode != index.Intersection {
		out.Mode = def.Mode
	}
	if out.Scope != Touching && out.Scope != Internal {
		out.Scope = def.Scope
	}
	if out.Locked != "" && !d.Has(out.Locked) {
		out.Locked = ""
	}
	out.Hovered, out.Search = "", ""
	return out
}
