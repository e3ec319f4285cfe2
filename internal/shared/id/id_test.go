package id

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateString(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateString()

	if len(id) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(id))
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	tests := []struct {
		prefix string
	}{
		{TabPrefix},
		{GroupPrefix},
		{SnapshotPrefix},
		{RequestPrefix},
	}

	for _, tt := range tests {
		id := gen.GenerateWithPrefix(tt.prefix)

		if !strings.HasPrefix(id, tt.prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", tt.prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Errorf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}

		if !IsValid(parts[1]) {
			t.Errorf("ULID part should be valid: %s", parts[1])
		}
	}
}

func TestTypedIDs(t *testing.T) {
	if Prefix(string(NewTabStableID())) != TabPrefix {
		t.Error("tab stable id should carry the tab prefix")
	}
	if Prefix(string(NewGroupStableID())) != GroupPrefix {
		t.Error("group stable id should carry the group prefix")
	}
	if Prefix(string(NewSnapshotID())) != SnapshotPrefix {
		t.Error("snapshot id should carry the snapshot prefix")
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const n = 100
	seen := make(map[string]bool, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := gen.GenerateString()
			mu.Lock()
			seen[s] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("Expected %d unique IDs, got %d", n, len(seen))
	}
}
