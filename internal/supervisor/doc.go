// Package supervisor runs livemark's listeners and the document watcher.
//
// Run binds the page listener, the live-update hub listener and, when
// enabled, the metrics listener, then serves them alongside the watcher
// until ctx is cancelled. On cancellation each HTTP server stops accepting
// connections and gets ShutdownTimeout to finish in-flight responses, and the
// hub closes every subscriber.
//
// The watcher stopping because the document disappeared is logged but does
// not end Run: the page and hub listeners keep serving.
package supervisor
