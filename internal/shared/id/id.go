// Package id provides stable identifier generation for the engine.
//
// The browser reuses and invalidates its numeric tab/group ids (moving a
// tab between windows can reassign it, recreating a workspace always does),
// so every long-lived cross-reference in the store uses an id minted here
// instead. Identifiers are prefixed ULIDs:
//   - Lexicographic sortability: time-ordered without a timestamp column
//   - Prefixed types: tab_*, grp_*, snap_*, ws_*, req_* readable in logs
//   - Type safety: separate string types prevent mixing id spaces
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TabStableID permanently identifies a mirrored tab across external id churn.
type TabStableID string

// GroupStableID permanently identifies a mirrored tab group.
type GroupStableID string

// SnapshotID identifies a workspace snapshot.
type SnapshotID string

// RequestID identifies one bridge round-trip, for log correlation.
type RequestID string

const (
	TabPrefix      = "tab"
	GroupPrefix    = "grp"
	SnapshotPrefix = "snap"
	RequestPrefix  = "req"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewTabStableID mints the permanent id for a newly mirrored tab.
func NewTabStableID() TabStableID {
	return TabStableID(Default().GenerateWithPrefix(TabPrefix))
}

// NewGroupStableID mints the permanent id for a newly mirrored group.
func NewGroupStableID() GroupStableID {
	return GroupStableID(Default().GenerateWithPrefix(GroupPrefix))
}

// NewSnapshotID mints an id for a workspace snapshot.
func NewSnapshotID() SnapshotID {
	return SnapshotID(Default().GenerateWithPrefix(SnapshotPrefix))
}

// NewRequestID mints an id for a bridge round-trip.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// IsValid reports whether s parses as a ULID.
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}

// Prefix extracts the type prefix from a prefixed id, or "" if unprefixed.
func Prefix(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			return s[:i]
		}
	}
	return ""
}
