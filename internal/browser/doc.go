// Package browser defines the boundary to the external resource: the host
// browser's live window/tab/tab-group manager.
//
// The browser is the source of truth the engine mirrors. This package holds
// the wire types it reports, the closed union of lifecycle events it emits,
// and the Controller/Bookmarker interfaces the engine drives it through.
// Implementations live elsewhere (the websocket bridge in internal/ws, fakes
// in browsertest); domain packages depend only on the interfaces here.
package browser
