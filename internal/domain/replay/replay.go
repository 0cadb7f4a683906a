// Package replay tracks seen submission nonces to reject replays.
//
// The wire contract only requires nonces to be well-formed; checking them for
// reuse is optional and enabled through configuration. The guard is bounded:
// once full, the oldest recorded nonce is evicted, so protection covers a
// sliding window rather than all history.
package replay

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard records seen nonces to enforce at-most-once submission.
type Guard interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id from the seen set, allowing a retry. Only used
	// when a submission was recorded but failed downstream.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryGuard implements Guard with a map plus a FIFO ring for eviction.
type inMemoryGuard struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string // insertion order; "" marks an unrecorded slot
	next    int      // next ring position to write (and evict)
	maxSize int
	size    atomic.Int64
}

// NewInMemoryGuard creates a bounded in-memory guard.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		maxSize: 50_000,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.seen = make(map[string]struct{}, g.maxSize)
	g.ring = make([]string, g.maxSize)
	return g
}

func (g *inMemoryGuard) SeenAndRecord(ctx context.Context, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[id]; ok {
		return true
	}

	// Evict whatever occupied this ring slot a full lap ago.
	if old := g.ring[g.next]; old != "" {
		if _, ok := g.seen[old]; ok {
			delete(g.seen, old)
			g.size.Add(-1)
		}
	}
	g.ring[g.next] = id
	g.next = (g.next + 1) % g.maxSize
	g.seen[id] = struct{}{}
	g.size.Add(1)
	return false
}

func (g *inMemoryGuard) Unrecord(ctx context.Context, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[id]; ok {
		delete(g.seen, id)
		g.size.Add(-1)
	}
}

func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
