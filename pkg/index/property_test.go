package index

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/matzehuels/macroviewer/pkg/dataset"
)

var codePool = []string{"US", "DE", "FR", "CN", "BR", "IN", "CA", "MX", "JP", "GB", "ZA", "SA", "ZZ", "de", "X", ""}

func pick(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, codePool[i])
	}
	return out
}

func zipRows(idx []int, values []float64) []SectorRow {
	n := min(len(idx), len(values))
	rows := make([]SectorRow, n)
	for i := 0; i < n; i++ {
		rows[i] = SectorRow{ISO2: codePool[idx[i]], Value: values[i]}
	}
	return rows
}

func uniqueNodes(codes []string) *dataset.Dataset {
	seen := map[string]bool{}
	var keep []string
	for _, c := range codes {
		if len(c) == 2 && c == upper(c) && !seen[c] {
			seen[c] = true
			keep = append(keep, c)
		}
	}
	return testDataset(keep...)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func TestRankProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	codes := gen.SliceOf(gen.IntRange(0, len(codePool)-1))
	values := gen.SliceOf(gen.Float64Range(-10, 100))

	properties.Property("ranks are exactly 1..k", prop.ForAll(
		func(idx []int, vals []float64) bool {
			rows := RankRows(zipRows(idx, vals))
			for i, r := range rows {
				if r.Rank != i+1 {
					return false
				}
			}
			return true
		},
		codes, values,
	))

	properties.Property("larger value means smaller rank", prop.ForAll(
		func(idx []int, vals []float64) bool {
			rows := RankRows(zipRows(idx, vals))
			for _, p := range rows {
				for _, q := range rows {
					if p.Value > q.Value && p.Rank >= q.Rank {
						return false
					}
				}
			}
			return true
		},
		codes, values,
	))

	properties.Property("one row per producer, all positive", prop.ForAll(
		func(idx []int, vals []float64) bool {
			seen := map[string]bool{}
			for _, r := range RankRows(zipRows(idx, vals)) {
				if seen[r.ISO2] || r.Value <= 0 || len(r.ISO2) != 2 {
					return false
				}
				seen[r.ISO2] = true
			}
			return true
		},
		codes, values,
	))

	properties.TestingRun(t)
}

func TestBlocProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	nodes := gen.SliceOf(gen.IntRange(0, len(codePool)-1))
	bloc := gen.IntRange(1, len(Catalog)-1)

	properties.Property("member set is declared list intersected with nodes", prop.ForAll(
		func(idx []int) bool {
			d := uniqueNodes(pick(idx))
			ix := Build(d)
			for _, b := range Catalog {
				entry, _ := ix.Bloc(b.ID)
				for _, n := range d.Nodes {
					declared := false
					for _, m := range b.Members {
						declared = declared || m == n.ISO2
					}
					if declared != entry.MemberSet.Has(n.ISO2) {
						return false
					}
				}
				if entry.MemberSet.Len() > len(d.Nodes) {
					return false
				}
			}
			return true
		},
		nodes,
	))

	properties.Property("reverse index is the transpose of member sets", prop.ForAll(
		func(idx []int) bool {
			ix := Build(uniqueNodes(pick(idx)))
			count := 0
			for _, b := range ix.Blocs() {
				for iso2 := range b.MemberSet {
					count++
					found := false
					for _, id := range ix.BlocsOf(iso2) {
						found = found || id == b.ID
					}
					if !found {
						return false
					}
				}
			}
			total := 0
			for _, c := range codePool {
				total += len(ix.BlocsOf(c))
			}
			return total == count
		},
		nodes,
	))

	properties.Property("union contains intersection, equal iff same members", prop.ForAll(
		func(idx []int, a, b int) bool {
			ix := Build(uniqueNodes(pick(idx)))
			ids := []string{Catalog[a].ID, Catalog[b].ID}
			union := ix.MemberSet(ids, Union)
			inter := ix.MemberSet(ids, Intersection)
			for iso2 := range inter {
				if !union.Has(iso2) {
					return false
				}
			}
			ba, _ := ix.Bloc(ids[0])
			bb, _ := ix.Bloc(ids[1])
			same := ba.MemberSet.Len() == bb.MemberSet.Len()
			for iso2 := range ba.MemberSet {
				same = same && bb.MemberSet.Has(iso2)
			}
			return (union.Len() == inter.Len()) == same
		},
		nodes, bloc, bloc,
	))

	properties.TestingRun(t)
}
