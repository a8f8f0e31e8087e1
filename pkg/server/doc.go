// Package server exposes live viewer sessions over HTTP and websockets.
//
// Every browser tab is one session: a UUID naming an [engine.Controller]
// that runs its layout in the background. Actions posted to the API or
// sent over the websocket go through the controller, and the resulting
// frame is pushed to every socket of the session, followed by a stream
// of layout ticks until the simulation settles.
//
// # Routes
//
//	GET  /healthz                  liveness
//	GET  /metrics                  Prometheus (when metrics are enabled)
//	GET  /api/frame                current frame
//	POST /api/actions              dispatch one action, returns the frame
//	GET  /api/countries/{iso2}     country detail panel
//	GET  /api/tooltips/{iso2}      node tooltip
//	GET  /api/search?q=            search suggestions
//	GET  /api/render.{format}      static render of the current frame
//	DELETE /api/session            end the session
//	GET  /ws                       websocket: frames and ticks out, actions in
//
// The session id travels in the X-Session-ID header, the session query
// parameter or the mv_session cookie. Requests without one start a new
// session; the id is returned in the same three places.
//
// Session states are written through a [session.Store] after every
// action, so a known id resumes its view after a restart. [Server.Reload]
// swaps the dataset of every live session, keeping each view where the
// new snapshot allows it.
package server
