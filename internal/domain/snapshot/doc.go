// Package snapshot captures point-in-time checkpoints of a workspace's
// active tab/group set and restores them.
//
// Snapshots never store live external identifiers, only stable ids and a
// snapshot-local window index, so a checkpoint stays valid after the
// browser reuses or invalidates its ids. Creation is change-gated, not a
// blind timer; retention prunes by count and age in one transaction.
package snapshot
