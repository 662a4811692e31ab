// Package metrics defines the Prometheus collectors livemark exports.
//
// New registers every collector on the given registerer; Nop returns a set
// bound to a private registry for callers that do not expose metrics.
// Handler serves a registry in the text exposition format and Summary
// flattens a registry into name -> value pairs for shutdown logging.
package metrics
