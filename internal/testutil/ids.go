package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates entry IDs "<prefix>-0001", "<prefix>-0002", ...
//
// The same scenario with a fresh SequenceGenerator produces byte-identical
// ledger snapshots, which golden files depend on.
//
// Thread-safety: safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "entry".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "entry"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
