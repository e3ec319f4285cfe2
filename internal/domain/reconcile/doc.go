// Package reconcile corrects drift between the browser and the local store.
//
// The host process can be suspended between events, losing notifications;
// the reconciler is the correctness mechanism for that failure mode, not a
// convenience. A pass is idempotent: with no intervening external change, a
// second run performs no mutations.
package reconcile
