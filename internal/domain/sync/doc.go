// Package sync applies browser lifecycle events to the local store.
//
// Each handler translates one notification into the minimal store mutation,
// inside a transaction scoped to the tables it touches. Handlers never talk
// back to the browser. Events whose rows have already vanished are dropped;
// the reconciler, not a retry here, re-establishes correctness.
package sync
