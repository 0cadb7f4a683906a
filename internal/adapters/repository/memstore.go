package repository

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/podium/pkg/metrics"
)

// In-memory Store implementation backed by one treap per game.
//
// Ordering: rank_key ASC, then player_id ASC. An in-order traversal yields
// the leaderboard from best to worst, and subtree sizes answer
// count-strictly-better queries in O(log n) without a scan.

const memBackend = "memory"

// treap node
type node struct {
	rankKey  int64
	playerID string
	prio     uint64
	left     *node
	right    *node
	size     int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aKey, aID) ranks before (bKey, bID).
func less(aKey int64, aID string, bKey int64, bID string) bool {
	if aKey != bKey {
		return aKey < bKey // smaller rank key = higher score = earlier
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, rankKey int64, playerID string, prio uint64) *node {
	if n == nil {
		return &node{rankKey: rankKey, playerID: playerID, prio: prio, size: 1}
	}
	if less(rankKey, playerID, n.rankKey, n.playerID) {
		n.left = insert(n.left, rankKey, playerID, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, rankKey, playerID, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, rankKey int64, playerID string) *node {
	if n == nil {
		return nil
	}
	if rankKey == n.rankKey && playerID == n.playerID {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, rankKey, playerID)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, rankKey, playerID)
		}
	} else if less(rankKey, playerID, n.rankKey, n.playerID) {
		n.left = deleteNode(n.left, rankKey, playerID)
	} else {
		n.right = deleteNode(n.right, rankKey, playerID)
	}
	fix(n)
	return n
}

// countBefore counts nodes whose rank key is strictly smaller than rankKey,
// using subtree sizes. Ties on the rank key do not count as better.
func countBefore(n *node, rankKey int64) int {
	if n == nil {
		return 0
	}
	if n.rankKey < rankKey {
		return nsize(n.left) + 1 + countBefore(n.right, rankKey)
	}
	return countBefore(n.left, rankKey)
}

// collectTop appends up to limit player ids in rank order.
func collectTop(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.playerID)
	}
	if len(*out) < limit {
		collectTop(n.right, limit, out)
	}
}

// game holds one partition: the ordered treap plus the player index.
type game struct {
	root     *node
	byPlayer map[string]Entry
}

// MemStore keeps all leaderboard state in process memory.
type MemStore struct {
	mu    sync.RWMutex
	games map[string]*game
	rng   *rand.Rand
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		games: make(map[string]*game),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // treap priorities, not security material
	}
}

func (s *MemStore) gameFor(gameID string) *game {
	g, ok := s.games[gameID]
	if !ok {
		g = &game{byPlayer: make(map[string]Entry)}
		s.games[gameID] = g
		metrics.UpdateGamesTracked(len(s.games))
	}
	return g
}

// UpsertBest implements Store.UpsertBest.
func (s *MemStore) UpsertBest(ctx context.Context, e Entry) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(memBackend, float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.gameFor(e.GameID)
	if old, ok := g.byPlayer[e.PlayerID]; ok {
		g.root = deleteNode(g.root, old.RankKey, old.PlayerID)
	}
	g.root = insert(g.root, e.RankKey, e.PlayerID, s.rng.Uint64())
	g.byPlayer[e.PlayerID] = e
	return nil
}

// DeleteByRankKey implements Store.DeleteByRankKey.
func (s *MemStore) DeleteByRankKey(ctx context.Context, gameID string, rankKey int64, playerID string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(memBackend, float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil
	}
	g.root = deleteNode(g.root, rankKey, playerID)
	if old, ok := g.byPlayer[playerID]; ok && old.RankKey == rankKey {
		delete(g.byPlayer, playerID)
	}
	return nil
}

// ReplaceBest implements Replacer: with the store lock held, retiring the
// old entry and inserting the new one is a single atomic step.
func (s *MemStore) ReplaceBest(ctx context.Context, oldRankKey int64, e Entry) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(memBackend, float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.gameFor(e.GameID)
	g.root = deleteNode(g.root, oldRankKey, e.PlayerID)
	g.root = insert(g.root, e.RankKey, e.PlayerID, s.rng.Uint64())
	g.byPlayer[e.PlayerID] = e
	return nil
}

// PlayerBest implements Store.PlayerBest.
func (s *MemStore) PlayerBest(ctx context.Context, gameID, playerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(memBackend, float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e, ok := g.byPlayer[playerID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// QueryTop implements Store.QueryTop.
func (s *MemStore) QueryTop(ctx context.Context, gameID string, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(memBackend, float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordStoreError(memBackend, "query_top")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return []Entry{}, nil
	}

	ids := make([]string, 0, limit)
	collectTop(g.root, limit, &ids)

	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := g.byPlayer[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// CountBetter implements Store.CountBetter.
func (s *MemStore) CountBetter(ctx context.Context, gameID string, rankKey int64) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(memBackend, float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return 0, nil
	}
	return countBefore(g.root, rankKey), nil
}

// Count implements Store.Count.
func (s *MemStore) Count(ctx context.Context, gameID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return 0, nil
	}
	return len(g.byPlayer), nil
}
