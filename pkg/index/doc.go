// Package index precomputes the lookups the viewer queries on every pass:
// trade-bloc membership and per (year, sector) producer values and ranks.
//
// An [Index] is built once per dataset load with [Build] and never changes
// afterwards; reloading the dataset means building a new one.
//
//	ix := index.Build(d)
//	members := ix.MemberSet([]string{"eu", "nato"}, index.Intersection)
//	rank := ix.SectorRank(2023, "medicine", "DE")
//
// Bloc selections use the catalog id "all" ([AllBlocs]) as the global
// sentinel; [Index.MemberSet] returns nil for it.
package index
