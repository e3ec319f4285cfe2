// Package server wires the engine together: the local store, the sync
// listener behind the extension bridge, the reconciler, the workspace and
// snapshot managers, the durable scheduler, and the REST surface.
package server
