// Package monitoring provides Prometheus metrics for the engine.
//
// Collectors cover the sync listener (events applied/dropped), the
// reconciler (runs, corrections, duration), workspace switches, the
// snapshot subsystem (created/pruned/restored), the websocket bridge and
// the HTTP command surface. Metrics register against a per-instance
// registry so tests can construct collectors freely.
package monitoring
