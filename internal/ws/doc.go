// Package ws is the WebSocket bridge to the browser extension host.
//
// One connection carries both directions: the extension pushes lifecycle
// events (applied to the store strictly in arrival order), and the engine
// issues browser calls as correlated request/response pairs over the same
// socket. At most one extension host is attached at a time; calls made while
// disconnected fail fast with browser.ErrNotConnected.
package ws
