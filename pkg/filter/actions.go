package filter

import (
	"slices"
	"strings"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/index"
)

// Kind names a user interaction.
type Kind string

const (
	KindCycleYear      Kind = "cycle_year"
	KindCycleDirection Kind = "cycle_direction"
	KindCycleThreshold Kind = "cycle_threshold"
	KindSetYear        Kind = "set_year"
	KindSetDirection   Kind = "set_direction"
	KindSetThreshold   Kind = "set_threshold"
	KindSelectSector   Kind = "select_sector"
	KindClearSector    Kind = "clear_sector"
	KindToggleBlocChip Kind = "toggle_bloc_chip"
	KindApplyBlocs     Kind = "apply_blocs"
	KindClearBlocs     Kind = "clear_blocs"
	KindReset          Kind = "reset"
	KindResetView      Kind = "reset_view"
	KindHover          Kind = "hover"
	KindUnhover        Kind = "unhover"
	KindClick          Kind = "click"
	KindClickBackdrop  Kind = "click_backdrop"
	KindSelectCountry  Kind = "select_country"
	KindEscape         Kind = "escape"
	KindSearch         Kind = "search"
	KindDragStart      Kind = "drag_start"
	KindDragMove       Kind = "drag_move"
	KindDragEnd        Kind = "drag_end"
)

// IsDrag reports whether k is handled by the layout driver rather than by
// the state machine.
func (k Kind) IsDrag() bool {
	return k == KindDragStart || k == KindDragMove || k == KindDragEnd
}

// Action is one named interaction. Only the fields its Kind needs are read.
// For apply_blocs an empty or unknown Mode or Scope keeps the current one,
// and nil Blocs applies the staged chips.
type Action struct {
	Kind      Kind              `json:"kind"`
	Year      int               `json:"year,omitempty"`
	Direction Direction         `json:"direction,omitempty"`
	Threshold float64           `json:"threshold,omitempty"`
	Sector    string            `json:"sector,omitempty"`
	Bloc      string            `json:"bloc,omitempty"`
	Blocs     []string          `json:"blocs,omitempty"`
	Mode      index.Combination `json:"mode,omitempty"`
	Scope     EdgeScope         `json:"scope,omitempty"`
	ISO2      string            `json:"iso2,omitempty"`
	Query     string            `json:"query,omitempty"`
	X         float64           `json:"x,omitempty"`
	Y         float64           `json:"y,omitempty"`
}

// Effect is how much of the view an action invalidated. Larger values
// include the work of smaller ones.
type Effect int

const (
	// EffectNone: nothing rendered changed.
	EffectNone Effect = iota
	// EffectHighlight: only the hover/lock highlight changed.
	EffectHighlight
	// EffectRestyle: lens inputs changed but the visible links did not.
	// Visual attributes are recomputed and collision radii retuned.
	EffectRestyle
	// EffectRebuild: the visible link set may have changed. The layout is
	// rebuilt, keeping prior positions.
	EffectRebuild
)

func (e Effect) String() string {
	switch e {
	case EffectHighlight:
		return "highlight"
	case EffectRestyle:
		return "restyle"
	case EffectRebuild:
		return "rebuild"
	}
	return "none"
}

// Reduce applies a to s and returns the new state together with the
// effect the renderer must apply. s is never modified.
//
// Unknown kinds and references to unknown years, countries or
// directions return an INVALID_ACTION error and the unchanged state.
func Reduce(d *dataset.Dataset, s State, a Action) (State, Effect, error) {
	next := s.Clone()
	switch a.Kind {
	case KindCycleYear:
		if len(d.AvailableYears) == 0 {
			return next, EffectNone, nil
		}
		i := slices.Index(d.AvailableYears, s.Year)
		next.Year = d.AvailableYears[(i+1)%len(d.AvailableYears)]
		return next, EffectRebuild, nil

	case KindSetYear:
		if !d.HasYear(a.Year) {
			return s, EffectNone, errors.New(errors.ErrCodeInvalidAction, "year %d is not available", a.Year)
		}
		next.Year = a.Year
		return next, EffectRebuild, nil

	case KindCycleDirection:
		i := slices.Index(Directions, s.Direction)
		next.Direction = Directions[(i+1)%len(Directions)]
		return next, EffectRebuild, nil

	case KindSetDirection:
		dir, ok := ParseDirection(string(a.Direction))
		if !ok {
			return s, EffectNone, errors.New(errors.ErrCodeInvalidAction, "unknown direction %q", a.Direction)
		}
		next.Direction = dir
		return next, EffectRebuild, nil

	case KindCycleThreshold:
		i := slices.Index(Thresholds, s.MinTrade)
		next.MinTrade = Thresholds[(i+1)%len(Thresholds)]
		return next, EffectRebuild, nil

	case KindSetThreshold:
		if !slices.Contains(Thresholds, a.Threshold) {
			return s, EffectNone, errors.New(errors.ErrCodeInvalidAction, "threshold %g is not on the ladder", a.Threshold)
		}
		next.MinTrade = a.Threshold
		return next, EffectRebuild, nil

	case KindSelectSector:
		next.Sector = AllSectors
		if _, ok := d.Sector(a.Sector); ok {
			next.Sector = a.Sector
		}
		return next, EffectRestyle, nil

	case KindClearSector:
		next.Sector = AllSectors
		return next, EffectRestyle, nil

	case KindToggleBlocChip:
		next.BlocChips = ToggleBlocChip(s.BlocChips, a.Bloc)
		return next, EffectNone, nil

	case KindApplyBlocs:
		ids := a.Blocs
		if ids == nil {
			ids = s.BlocChips
		}
		next.Blocs = NormalizeBlocSelection(ids)
		next.BlocChips = slices.Clone(next.Blocs)
		switch a.Mode {
		case index.Union, index.Intersection:
			next.Mode = a.Mode
		}
		switch a.Scope {
		case Touching, Internal:
			next.Scope = a.Scope
		}
		return next, EffectRebuild, nil

	case KindClearBlocs:
		next.Blocs = []string{index.AllBlocs}
		next.BlocChips = []string{index.AllBlocs}
		next.Mode = index.Union
		next.Scope = Touching
		return next, EffectRebuild, nil

	case KindReset, KindResetView:
		return Default(d), EffectRebuild, nil

	case KindHover:
		if !d.Has(a.ISO2) {
			return s, EffectNone, unknownCountry(a.ISO2)
		}
		next.Hovered = a.ISO2
		return next, EffectHighlight, nil

	case KindUnhover:
		next.Hovered = ""
		return next, EffectHighlight, nil

	case KindClick:
		if !d.Has(a.ISO2) {
			return s, EffectNone, unknownCountry(a.ISO2)
		}
		if s.Locked == a.ISO2 {
			next.Locked = ""
		} else {
			next.Locked = a.ISO2
		}
		return next, EffectHighlight, nil

	case KindSelectCountry:
		if !d.Has(a.ISO2) {
			return s, EffectNone, unknownCountry(a.ISO2)
		}
		next.Locked = a.ISO2
		next.Search = ""
		return next, EffectHighlight, nil

	case KindClickBackdrop:
		next.Locked = ""
		return next, EffectHighlight, nil

	case KindEscape:
		if s.Locked != "" {
			next.Locked = ""
			next.Hovered = ""
			return next, EffectHighlight, nil
		}
		return Default(d), EffectRebuild, nil

	case KindSearch:
		next.Search = a.Query
		return next, EffectNone, nil

	case KindDragStart, KindDragMove, KindDragEnd:
		return next, EffectNone, nil
	}
	return s, EffectNone, errors.New(errors.ErrCodeInvalidAction, "unknown action %q", a.Kind)
}

// ParseDirection accepts a view direction, also in its singular link form.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "both":
		return Both, true
	case "exports", "export":
		return Exports, true
	case "imports", "import":
		return Imports, true
	}
	return "", false
}

func unknownCountry(iso2 string) error {
	return errors.New(errors.ErrCodeInvalidAction, "unknown country %q", iso2)
}
