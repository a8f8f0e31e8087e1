// Package edges selects the trade links visible under a filter state.
package edges

import (
	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/index"
)

// Filter returns the links visible under s.
//
// Links must match the year and reach the trade threshold. Direction then
// applies: "exports" drops import rows; "imports" keeps only import rows
// when the year has any, otherwise every kept row is mirrored (endpoints
// swapped, direction relabeled import) so export-only datasets still show
// inbound flows. Finally, when members is non-nil, the edge scope keeps
// links with both (internal) or at least one (touching) member endpoint.
//
// members must be the member set of the current pass so that link
// filtering and the visual resolver agree; pass nil for no bloc filter.
// The returned slice never aliases links.
func Filter(links []dataset.Link, s filter.State, members index.Set) []dataset.Link {
	hasImportRows := false
	for _, l := range links {
		if l.Year == s.Year && l.Direction == dataset.DirectionImport {
			hasImportRows = true
			break
		}
	}

	out := make([]dataset.Link, 0)
	for _, l := range links {
		if l.Year != s.Year || l.TradeUsd < s.MinTrade {
			continue
		}
		switch s.Direction {
		case filter.Exports:
			if l.Direction == dataset.DirectionImport {
				continue
			}
		case filter.Imports:
			if hasImportRows {
				if l.Direction != dataset.DirectionImport {
					continue
				}
			} else {
				l = Mirror(l)
			}
		}
		if members != nil && !InScope(l, members, s.Scope) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Mirror swaps a link's endpoints and labels it an import.
func Mirror(l dataset.Link) dataset.Link {
	l.Source, l.Target = l.Target, l.Source
	l.Direction = dataset.DirectionImport
	return l
}

// InScope applies the bloc edge scope to one link.
func InScope(l dataset.Link, members index.Set, scope filter.EdgeScope) bool {
	src, dst := members.Has(l.Source), members.Has(l.Target)
	if scope == filter.Internal {
		return src && dst
	}
	return src || dst
}

// ForYear returns every link of year regardless of threshold, direction
// and bloc scope. Country details use it for trade partners and totals.
func ForYear(links []dataset.Link, year int) []dataset.Link {
	var out []dataset.Link
	for _, l := range links {
		if l.Year == year {
			out = append(out, l)
		}
	}
	return out
}
