// Package http exposes the engine's command surface over REST.
//
// Commands arrive as a closed union: each route binds its body into one
// Command variant and hands it to the Dispatcher, whose type switch is the
// single place command semantics are bound to domain managers. Precondition
// failures come back inside the Result envelope with HTTP 200; only malformed
// requests get a 4xx.
package http
