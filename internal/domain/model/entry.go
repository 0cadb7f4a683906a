// Package model contains domain models passed between layers.
package model

import "time"

// Entry holds a player's current best score within one game. At most one
// Entry exists per (GameID, PlayerID) pair at any time.
type Entry struct {
	GameID     string    // partition key
	PlayerID   string    // player within the game
	PlayerName string    // display only, may be empty
	Score      int64     // non-negative, bounded by config
	RankKey    int64     // -Score; ascending scan order = descending score
	CreatedAt  time.Time // set on write
}

// RankKeyFor derives the primary sort key from a score.
func RankKeyFor(score int64) int64 {
	return -score
}
