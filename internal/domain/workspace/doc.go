// Package workspace owns workspace lifecycle and the activation state
// machine: archiving the outgoing workspace's live rows, flipping the single
// active flag, and materializing the incoming workspace's windows, tabs and
// groups through the browser controller.
//
// Activation is not transactional against the browser, which has no
// compensating-transaction protocol. Per-item failures are logged and
// skipped, and a partially materialized workspace is recovered by the next
// reconciler pass.
package workspace
