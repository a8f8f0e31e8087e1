// Package dataset defines the macro snapshot the viewer renders and the
// normalization step that makes any snapshot safe to render.
//
// # Loading
//
// Snapshots are produced offline by separate build scripts. [Decode] reads
// one without rejecting malformed fragments: the lenient [Number], [Flag],
// [Text], [List] and [Object] field types turn anything unexpected into a
// zero value instead of an error. [Normalize] then produces the typed
// [Dataset]:
//
//	raw, err := dataset.Decode(r)
//	if err != nil {
//	    return err // only for an absent or non-object payload
//	}
//	d, report := dataset.Normalize(raw)
//	if !report.Clean() {
//	    logger.Warn("dataset repaired", "dropped_links", report.DroppedLinks)
//	}
//
// # Strict mode
//
// [Validate] checks the real-data contract (no placeholder codes, no
// estimated values, bounded producer lists) with struct tags. It is meant
// for CI and the validate command; rendering never depends on it.
package dataset
