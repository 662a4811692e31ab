// Package config loads livemark's optional YAML configuration file.
//
// Config fields:
//   - Server.Bind           : listen address for every listener (default 0.0.0.0)
//   - Server.HTTPPort       : page and stylesheet responder (default 8000)
//   - Server.WSPort         : live-update WebSocket hub (default 8765)
//   - Server.MetricsPort    : Prometheus /metrics, 0 disables (default 0)
//   - Server.ShutdownTimeout: grace period for in-flight responses (default 5s)
//   - Watch.Interval        : document poll interval (default 1s)
//   - Watch.Notify          : poll immediately on filesystem events
//   - Render.Style          : chroma style for code blocks (default colorful)
//   - Render.Stylesheet     : file served as /pygments.css
//   - Hub.ReplayLast        : send the last rendering to new subscribers
//   - Hub.SendBuffer        : per-subscriber queue depth (default 16)
//   - Log.Format            : text or json (default text)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Default() returns the same defaults for runs without a config file.
package config
