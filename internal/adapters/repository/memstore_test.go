package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

func entry(gameID, playerID string, score int64) Entry {
	return Entry{
		GameID:    gameID,
		PlayerID:  playerID,
		Score:     score,
		RankKey:   model.RankKeyFor(score),
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	// Empty store
	if count, err := store.Count(ctx, "g1"); err != nil || count != 0 {
		t.Errorf("expected count 0, got %d (err %v)", count, err)
	}
	if _, err := store.PlayerBest(ctx, "g1", "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// First entry
	if err := store.UpsertBest(ctx, entry("g1", "p1", 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.PlayerBest(ctx, "g1", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 100 || got.RankKey != -100 {
		t.Errorf("expected score 100 rank_key -100, got %d %d", got.Score, got.RankKey)
	}

	// Top listing
	top, err := store.QueryTop(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 1 || top[0].PlayerID != "p1" {
		t.Errorf("unexpected top listing: %+v", top)
	}
}

func TestMemStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	players := []struct {
		id    string
		score int64
	}{
		{"a", 100},
		{"d", 50},
		{"b", 90},
		{"c", 90},
	}
	for _, p := range players {
		if err := store.UpsertBest(ctx, entry("g1", p.id, p.score)); err != nil {
			t.Fatalf("unexpected error for %s: %v", p.id, err)
		}
	}

	top, err := store.QueryTop(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantOrder := []string{"a", "b", "c", "d"}
	if len(top) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d", len(wantOrder), len(top))
	}
	for i, want := range wantOrder {
		if top[i].PlayerID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, top[i].PlayerID)
		}
	}

	// Ties break by player id ascending.
	if top[1].Score != 90 || top[2].Score != 90 {
		t.Errorf("expected tied scores at positions 1 and 2, got %d %d", top[1].Score, top[2].Score)
	}

	// Limit truncation.
	top2, err := store.QueryTop(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top2) != 2 || top2[0].PlayerID != "a" || top2[1].PlayerID != "b" {
		t.Errorf("unexpected top-2: %+v", top2)
	}
}

func TestMemStore_CountBetter(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	scores := map[string]int64{"a": 100, "b": 90, "c": 90, "d": 50}
	for id, score := range scores {
		if err := store.UpsertBest(ctx, entry("g1", id, score)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	cases := []struct {
		score int64
		want  int
	}{
		{100, 0},
		{90, 1}, // the two 90s tie; only 100 is strictly better
		{50, 3},
		{10, 4},
	}
	for _, c := range cases {
		got, err := store.CountBetter(ctx, "g1", model.RankKeyFor(c.score))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c.want {
			t.Errorf("CountBetter(score=%d): expected %d, got %d", c.score, c.want, got)
		}
	}
}

func TestMemStore_ReplaceBest(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if err := store.UpsertBest(ctx, entry("g1", "p1", 50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ReplaceBest(ctx, model.RankKeyFor(50), entry("g1", "p1", 80)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.PlayerBest(ctx, "g1", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 80 {
		t.Errorf("expected score 80, got %d", got.Score)
	}
	if count, _ := store.Count(ctx, "g1"); count != 1 {
		t.Errorf("expected single entry after replace, got %d", count)
	}
}

func TestMemStore_DeleteByRankKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if err := store.UpsertBest(ctx, entry("g1", "p1", 50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Wrong rank key is a no-op.
	if err := store.DeleteByRankKey(ctx, "g1", model.RankKeyFor(99), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.PlayerBest(ctx, "g1", "p1"); err != nil {
		t.Errorf("entry should survive mismatched delete: %v", err)
	}

	if err := store.DeleteByRankKey(ctx, "g1", model.RankKeyFor(50), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.PlayerBest(ctx, "g1", "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemStore_GameIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if err := store.UpsertBest(ctx, entry("g1", "p1", 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.UpsertBest(ctx, entry("g2", "p1", 40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g2, err := store.PlayerBest(ctx, "g2", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g2.Score != 40 {
		t.Errorf("expected g2 score 40, got %d", g2.Score)
	}
	if count, _ := store.Count(ctx, "g1"); count != 1 {
		t.Errorf("expected g1 count 1, got %d", count)
	}
}

func TestMemStore_InvalidLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if _, err := store.QueryTop(ctx, "g1", 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestMemStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	const players = 50
	const rounds = 20

	var wg sync.WaitGroup
	for p := 0; p < players; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			id := "p" + strconv.Itoa(p)
			for r := 0; r < rounds; r++ {
				_ = store.UpsertBest(ctx, entry("g1", id, int64(rand.Intn(1000)))) //nolint:gosec // test data
				_, _ = store.QueryTop(ctx, "g1", 10)
				_, _ = store.CountBetter(ctx, "g1", -500)
			}
		}(p)
	}
	wg.Wait()

	count, err := store.Count(ctx, "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != players {
		t.Errorf("expected %d players after concurrent upserts, got %d", players, count)
	}
}

func BenchmarkMemStore_UpsertBest(b *testing.B) {
	ctx := context.Background()
	store := NewMemStore()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := "p" + strconv.Itoa(i%10_000)
		_ = store.UpsertBest(ctx, entry("g1", id, int64(i%1_000_000)))
	}
}

func BenchmarkMemStore_CountBetter(b *testing.B) {
	ctx := context.Background()
	store := NewMemStore()
	for i := 0; i < 10_000; i++ {
		_ = store.UpsertBest(ctx, entry("g1", fmt.Sprintf("p%05d", i), int64(i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.CountBetter(ctx, "g1", int64(-(i % 10_000)))
	}
}
