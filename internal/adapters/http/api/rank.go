// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/podium/internal/app"
)

// RankDependencies defines the interface for player rank queries.
type RankDependencies interface {
	PlayerRank(ctx context.Context, gameID, playerID, signature string) (app.RankResult, error)
}

// RankHandler handles player rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

type rankResponse struct {
	GameID       string `json:"game_id"`
	PlayerID     string `json:"player_id"`
	HasScore     bool   `json:"has_score"`
	Score        *int64 `json:"score,omitempty"`
	Rank         *int   `json:"rank,omitempty"`
	TotalPlayers *int   `json:"total_players,omitempty"`
}

// HandleGetRank handles GET /rank?game_id=&player_id= requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	res, err := h.deps.PlayerRank(r.Context(), q.Get("game_id"), q.Get("player_id"), r.Header.Get(signatureHeader))
	if err != nil {
		writeAppError(w, err)
		return
	}

	out := rankResponse{GameID: res.GameID, PlayerID: res.PlayerID, HasScore: res.Found}
	if res.Found {
		out.Score = &res.Score
		out.Rank = &res.Rank
		out.TotalPlayers = &res.TotalPlayers
	}
	writeJSON(w, http.StatusOK, out)
}
