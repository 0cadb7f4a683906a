package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLStore(t)

	if _, err := store.PlayerBest(ctx, "g1", "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.UpsertBest(ctx, entry("g1", "p1", 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.PlayerBest(ctx, "g1", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 100 || got.RankKey != -100 || got.GameID != "g1" {
		t.Errorf("unexpected entry: %+v", got)
	}

	count, err := store.Count(ctx, "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestSQLStore_OrderingAndCounts(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLStore(t)

	for id, score := range map[string]int64{"a": 100, "b": 90, "c": 90, "d": 50} {
		if err := store.UpsertBest(ctx, entry("g1", id, score)); err != nil {
			t.Fatalf("unexpected error: %v", err)
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

	better, err := store.CountBetter(ctx, "g1", model.RankKeyFor(50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if better != 3 {
		t.Errorf("expected 3 strictly better, got %d", better)
	}

	// Tied scores do not count against each other.
	better, err = store.CountBetter(ctx, "g1", model.RankKeyFor(90))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if better != 1 {
		t.Errorf("expected 1 strictly better, got %d", better)
	}
}

func TestSQLStore_ReplaceBest(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLStore(t)

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
	count, err := store.Count(ctx, "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected single row after replace, got %d", count)
	}
}

func TestSQLStore_DeleteByRankKey(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLStore(t)

	if err := store.UpsertBest(ctx, entry("g1", "p1", 50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.DeleteByRankKey(ctx, "g1", model.RankKeyFor(50), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.PlayerBest(ctx, "g1", "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	store, err := NewSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.UpsertBest(ctx, entry("g1", "p1", 77)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	reopened, err := NewSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.PlayerBest(ctx, "g1", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 77 {
		t.Errorf("expected persisted score 77, got %d", got.Score)
	}
}

func TestSQLStore_EntryTTL(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLStore(ctx, filepath.Join(t.TempDir(), "ttl.db"), WithEntryTTL(time.Hour))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	// The expiry column is informational; writes must still round-trip.
	if err := store.UpsertBest(ctx, entry("g1", "p1", 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.PlayerBest(ctx, "g1", "p1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
