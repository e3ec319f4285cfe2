// Package scheduler runs periodic jobs off durable alarm rows instead of
// in-memory timers. An alarm's next fire time lives in the store, so a job
// that was due while the process was down fires on the first tick after
// startup rather than a full period later.
package scheduler
