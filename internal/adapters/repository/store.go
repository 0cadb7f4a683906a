// Package repository defines the leaderboard store interface and its
// backends.
package repository

import (
	"context"

	"github.com/okian/podium/internal/domain/model"
)

// Entry is the stored leaderboard row.
type Entry = model.Entry

// Store provides sorted-index access to leaderboard state. All operations
// are scoped to a game partition. Implementations must order equal rank keys
// by player id ascending so scans are deterministic.
type Store interface {
	// UpsertBest writes the entry keyed by (game_id, rank_key, player_id).
	// Idempotent for the same key. Retiring a superseded entry at a
	// different rank key is the caller's job, via DeleteByRankKey or
	// ReplaceBest.
	UpsertBest(ctx context.Context, e Entry) error

	// DeleteByRankKey retires a superseded best-score entry.
	DeleteByRankKey(ctx context.Context, gameID string, rankKey int64, playerID string) error

	// PlayerBest returns the player's current best via the player index.
	// Returns ErrNotFound when the player has no entry for the game.
	PlayerBest(ctx context.Context, gameID, playerID string) (Entry, error)

	// QueryTop returns up to limit entries in ascending rank-key order,
	// i.e. best score first.
	QueryTop(ctx context.Context, gameID string, limit int) ([]Entry, error)

	// CountBetter counts entries with a rank key strictly smaller than
	// rankKey (strictly higher score). Rank is always CountBetter + 1.
	CountBetter(ctx context.Context, gameID string, rankKey int64) (int, error)

	// Count returns the total number of entries for the game.
	Count(ctx context.Context, gameID string) (int, error)
}

// Replacer is an optional extension for backends that can retire the old
// entry and write the new one as a single atomic operation.
type Replacer interface {
	// ReplaceBest atomically removes the entry at oldRankKey (if any) and
	// writes e for the same player.
	ReplaceBest(ctx context.Context, oldRankKey int64, e Entry) error
}
