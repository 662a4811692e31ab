// Package hub implements the live-update WebSocket hub for livemark.
//
// Hub keeps the set of connected subscribers and fans a message out to all
// of them on Dispatch. Delivery is best effort: each subscriber has a bounded
// queue drained by its own writer goroutine, and a subscriber whose queue is
// full or whose connection fails is dropped without affecting the others.
//
// New(opts...) creates a Hub.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, registers the
// subscriber and blocks until the connection closes.
// Hub.Dispatch(msg) sends msg to every current subscriber, in call order per
// subscriber, and returns how many subscribers it was queued for.
// Hub.Run(ctx) blocks until ctx is cancelled, then closes all subscribers.
//
// Messages are text frames holding a complete HTML fragment that clients
// place into the page's content region verbatim.
//
// The upgrader accepts all origins.
package hub
