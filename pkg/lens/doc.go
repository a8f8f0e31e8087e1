// Package lens resolves per-node and per-link visual attributes from the
// filter state, the precomputed index and the visible links.
//
// Two lenses exist. The default lens scores each country with
// 0.62*sqrt(gdp/maxGDP) + 0.38*sqrt(trade/maxTrade), where trade is the
// sum of currently visible flows, and scales bubbles and colors by that
// score; its top eight countries get an amber ring. The sector lens colors
// producers of the selected sector in the sector's brand color and rings
// the top three. Under an active bloc filter both lenses dim non-members.
//
// [Resolve] never mutates its input: displayed radii and the transient
// per-pass fields live in the returned [Result].
package lens
