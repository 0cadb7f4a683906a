package loadgen

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Score distribution bounds. Most players land mid-table with a thin elite
// band, so the top listing stays contested between runs.
const (
	scoreBandDivisor = 8
	midScoreMin      = 10_000
	midScoreRange    = 40_000
	lowScoreMin      = 100
	lowScoreRange    = 9_900
	highScoreMin     = 50_000
	highScoreRange   = 40_000
	eliteScoreMin    = 90_000
	eliteScoreRange  = 10_000
)

// submission is one signed score submission to send.
type submission struct {
	GameID     string `json:"game_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Score      int64  `json:"score"`
	Nonce      string `json:"nonce"`
	Timestamp  int64  `json:"timestamp"`
}

// player is one simulated participant and the best score the run expects the
// service to retain.
type player struct {
	id           string
	name         string
	expectedBest int64
}

func randInt64(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generatePlayers creates players with unique ids.
func generatePlayers(cfg *Config) []*player {
	players := make([]*player, cfg.NumPlayers)
	for i := range players {
		id := uuid.New().String()
		players[i] = &player{
			id:   id,
			name: "player-" + id[:8],
		}
	}
	return players
}

// nextSubmission builds one submission for p and updates the expected best.
func nextSubmission(cfg *Config, p *player) submission {
	score := generateVariedScore()
	if score > p.expectedBest {
		p.expectedBest = score
	}
	return submission{
		GameID:     cfg.GameID,
		PlayerID:   p.id,
		PlayerName: p.name,
		Score:      score,
		Nonce:      uuid.New().String(),
		Timestamp:  time.Now().Unix(),
	}
}

// generateVariedScore draws from a banded distribution: half the draws are
// mid-table, the rest spread between low, high, and a rare elite band.
func generateVariedScore() int64 {
	switch randInt64(scoreBandDivisor) {
	case 0, 1, 2, 3:
		return midScoreMin + randInt64(midScoreRange)
	case 4, 5:
		return lowScoreMin + randInt64(lowScoreRange)
	case 6:
		return highScoreMin + randInt64(highScoreRange)
	default:
		return eliteScoreMin + randInt64(eliteScoreRange)
	}
}
