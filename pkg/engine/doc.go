// Package engine drives one live macro view: it owns the filter state,
// runs the link filter and lens for every state change, and keeps the
// force layout in step with the visible graph.
//
// A [Controller] is built from a normalized dataset and fed actions:
//
//	c, err := engine.New(d, engine.Options{TickInterval: 16 * time.Millisecond})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	frame, err := c.Dispatch(ctx, filter.Action{Kind: filter.KindSelectSector, Sector: "medicine"})
//
// Every action yields a [Frame] holding the styled nodes and links, the
// current positions and the text of every panel. Filter changes that can
// alter the visible links rebuild the layout while keeping the positions of
// countries that stay on screen; lens changes only retune collision radii;
// hover and click only change the highlight overlay.
//
// Headless callers leave TickInterval at zero and call [Controller.Settle]
// before reading positions.
package engine
