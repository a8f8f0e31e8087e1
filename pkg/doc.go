// Package pkg holds the libraries behind macroviewer, a filterable
// force-directed view of world trade.
//
// # Overview
//
// A macro snapshot (countries, bilateral trade links per year, sector
// producer rankings) is turned into a network whose nodes are countries
// sized by GDP and whose links are trade flows. A small set of filter
// controls (year, direction, minimum trade, sector lens, trade blocs)
// decides what is visible and how it is styled; a force simulation places
// the nodes.
//
// The packages fall into three groups:
//
//  1. Domain: [dataset], [index], [filter], [edges], [lens], [layout] and
//     [engine], which together turn an action into a frame
//  2. Output: [render] sinks, the headless [pipeline] and [io]
//  3. Infrastructure: [cache], [httputil], [session], [server], [watch],
//     [config], [errors], [observability] and [buildinfo]
//
// # Architecture
//
// The flow of one user action:
//
//	filter.Action
//	     ↓
//	[filter] Reduce (pure state transition + effect)
//	     ↓
//	[edges] visible links  →  [index] bloc members, sector ranks
//	     ↓
//	[lens] node/link styles  →  [layout] rebuild, retune or nothing
//	     ↓
//	[engine] Frame  →  SVG / JSON / DOT / websocket
//
// # Quick Start
//
// Settle a sector view headlessly and render it:
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "examples/macro.json",
//	    Actions: []filter.Action{{Kind: filter.KindSelectSector, Sector: "medicine"}},
//	    Formats: []render.Format{render.FormatSVG},
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("medicine.svg", res.Artifacts[render.FormatSVG], 0o644)
//
// Drive a live view directly:
//
//	ctrl, _ := engine.New(d, engine.Options{TickInterval: layout.DefaultTickInterval})
//	defer ctrl.Close()
//	frame, err := ctrl.Dispatch(ctx, filter.Action{Kind: filter.KindCycleYear})
package pkg
