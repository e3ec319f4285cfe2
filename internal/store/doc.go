// Package store is the engine's Local Store: an embedded, transactional,
// indexed mirror of the browser's tab/group/window state, partitioned into
// workspaces, plus the snapshot tables and the durable alarm rows.
//
// SQLite (pure Go driver) via GORM. A single writer connection in WAL mode;
// every multi-table state transition goes through Store.Tx so partial writes
// are never observable. Methods on a Store returned by Tx operate inside
// that transaction.
package store
