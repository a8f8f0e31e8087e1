// Package layout positions countries with a force simulation and keeps the
// layout continuous while filters change.
//
// [Simulation] implements the usual force-directed model: alpha cools by a
// fixed decay per tick, velocities are damped, and a set of named forces
// (link springs, many-body charge, x/y centering, collision) add velocity.
// Nodes are clamped to the [Viewport] after every tick.
//
// [Driver] owns one simulation at a time:
//
//	d := layout.NewDriver(layout.Options{Viewport: vp, TickInterval: 16 * time.Millisecond})
//	d.Rebuild(nodes, edges)   // prior positions are restored, new nodes seeded
//	d.Retune(radii)           // collision follows displayed radii, alpha 0.16
//	d.DragStart("DE")
//
// A rebuild cancels the previous run and its settle timer under the same
// lock that guards positions, so ticks of a superseded run never write.
// With a zero TickInterval nothing runs in the background and callers drive
// the simulation with [Driver.Step] or [Driver.Settle].
package layout
