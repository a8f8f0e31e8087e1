package cli

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/index"
)

// viewFlags selects a view on the command line. Unset flags keep the
// dataset's initial view.
type viewFlags struct {
	year      int
	direction string
	threshold float64
	sector    string
	blocs     []string
	blocMode  string
	blocScope string
	lock      string
}

func (v *viewFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&v.year, "year", 0, "trade year (default: newest)")
	fs.StringVar(&v.direction, "direction", "", "trade direction: both, exports, imports")
	fs.Float64Var(&v.threshold, "threshold", 0, "minimum trade in USD: 1e9, 5e9, 1e10, 2.5e10, 5e10, 1e11")
	fs.StringVar(&v.sector, "sector", "", "sector lens (e.g. semiconductors)")
	fs.StringSliceVar(&v.blocs, "bloc", nil, "trade bloc filter, repeatable (e.g. --bloc eu --bloc usmca)")
	fs.StringVar(&v.blocMode, "bloc-mode", "", "combine blocs: union (default), intersection")
	fs.StringVar(&v.blocScope, "bloc-scope", "", "bloc links: touching (default), internal")
	fs.StringVar(&v.lock, "lock", "", "highlight one country by iso2")
}

// actions converts the flags into engine actions, in the order a user
// would click them.
func (v *viewFlags) actions() ([]filter.Action, error) {
	var out []filter.Action
	if v.year != 0 {
		out = append(out, filter.Action{Kind: filter.KindSetYear, Year: v.year})
	}
	if v.direction != "" {
		d, ok := filter.ParseDirection(v.direction)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid direction %q (want both, exports or imports)", v.direction)
		}
		out = append(out, filter.Action{Kind: filter.KindSetDirection, Direction: d})
	}
	if v.threshold != 0 {
		out = append(out, filter.Action{Kind: filter.KindSetThreshold, Threshold: v.threshold})
	}
	if v.sector != "" {
		out = append(out, filter.Action{Kind: filter.KindSelectSector, Sector: strings.ToLower(v.sector)})
	}
	if len(v.blocs) > 0 || v.blocMode != "" || v.blocScope != "" {
		a := filter.Action{Kind: filter.KindApplyBlocs, Blocs: lowerAll(v.blocs)}
		if a.Blocs == nil {
			a.Blocs = []string{index.AllBlocs}
		}
		switch index.Combination(strings.ToLower(v.blocMode)) {
		case "", index.Union:
			a.Mode = index.Union
		case index.Intersection:
			a.Mode = index.Intersection
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid bloc mode %q (want union or intersection)", v.blocMode)
		}
		switch filter.EdgeScope(strings.ToLower(v.blocScope)) {
		case "", filter.Touching:
			a.Scope = filter.Touching
		case filter.Internal:
			a.Scope = filter.Internal
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid bloc scope %q (want touching or internal)", v.blocScope)
		}
		for _, id := range a.Blocs {
			if !index.KnownBloc(id) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "unknown bloc %q", id)
			}
		}
		out = append(out, a)
	}
	if v.lock != "" {
		out = append(out, filter.Action{Kind: filter.KindSelectCountry, ISO2: strings.ToUpper(v.lock)})
	}
	return out, nil
}

func lowerAll(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
