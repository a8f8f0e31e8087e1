package index

// Combination selects how several active blocs combine into one member set.
type Combination string

const (
	Union        Combination = "union"
	Intersection Combination = "intersection"
)

// IsGlobal reports whether a bloc selection means "no bloc filter".
func IsGlobal(ids []string) bool {
	for _, id := range ids {
		if id == AllBlocs {
			return true
		}
	}
	return len(ids) == 0
}

// ActiveBlocs resolves a bloc selection to indexed blocs. It returns nil
// for the global selection; ids missing from the index are skipped.
func (ix *Index) ActiveBlocs(ids []string) []*BlocEntry {
	if IsGlobal(ids) {
		return nil
	}
	out := make([]*BlocEntry, 0, len(ids))
	for _, id := range ids {
		if b, ok := ix.blocByID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// MemberSet combines the member sets of the active blocs. It returns nil
// when no bloc is active, which callers treat as "everyone is in scope".
// An intersection with any empty bloc is empty.
func (ix *Index) MemberSet(ids []string, mode Combination) Set {
	active := ix.ActiveBlocs(ids)
	if len(active) == 0 {
		return nil
	}

	if mode == Intersection {
		for _, b := range active {
			if b.MemberSet.Len() == 0 {
				return Set{}
			}
		}
		out := make(Set, active[0].MemberSet.Len())
		for iso2 := range active[0].MemberSet {
			in := true
			for _, b := range active[1:] {
				if !b.MemberSet.Has(iso2) {
					in = false
					break
				}
			}
			if in {
				out[iso2] = struct{}{}
			}
		}
		return out
	}

	out := make(Set)
	for _, b := range active {
		for iso2 := range b.MemberSet {
			out[iso2] = struct{}{}
		}
	}
	return out
}

// BlocColor is the tint for bloc-member elements: the color of the single
// active bloc, or [NeutralBlocColor] when zero or several are active.
func BlocColor(active []*BlocEntry) string {
	if len(active) == 1 {
		return active[0].Color
	}
	return NeutralBlocColor
}

// CountryBlocColor returns the color of the first bloc, in catalog order,
// that iso2 belongs to and that is active. It falls back to fallback.
func (ix *Index) CountryBlocColor(iso2 string, active []*BlocEntry, fallback string) string {
	for _, id := range ix.BlocsOf(iso2) {
		for _, b := range active {
			if b.ID == id {
				return b.Color
			}
		}
	}
	return fallback
}

// LinkBlocColor returns the color of the first active bloc, in selection
// order, that contains either endpoint. It falls back to fallback.
func LinkBlocColor(source, target string, active []*BlocEntry, fallback string) string {
	for _, b := range active {
		if b.MemberSet.Has(source) || b.MemberSet.Has(target) {
			return b.Color
		}
	}
	return fallback
}
