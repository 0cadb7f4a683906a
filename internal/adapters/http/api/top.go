// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/podium/internal/app"
)

// TopDependencies defines the interface for top-N queries.
type TopDependencies interface {
	TopScores(ctx context.Context, gameID, limitRaw, signature string) (app.TopResult, error)
	TopWithPlayer(ctx context.Context, gameID, playerID, limitRaw, signature string) (app.TopWithPlayerResult, error)
}

// TopHandler handles top-N listing requests.
type TopHandler struct {
	deps TopDependencies
}

// NewTopHandler creates a new top handler.
func NewTopHandler(deps TopDependencies) *TopHandler {
	return &TopHandler{deps: deps}
}

type topEntry struct {
	PlayerName string `json:"player_name"`
	Score      int64  `json:"score"`
	Rank       int    `json:"rank"`
}

type topResponse struct {
	GameID  string     `json:"game_id"`
	Entries []topEntry `json:"entries"`
}

type playerContext struct {
	PlayerID      string `json:"player_id"`
	PlayerName    string `json:"player_name,omitempty"`
	HasScore      bool   `json:"has_score"`
	Score         *int64 `json:"score,omitempty"`
	Rank          *int   `json:"rank,omitempty"`
	TotalPlayers  *int   `json:"total_players,omitempty"`
	IncludedInTop bool   `json:"included_in_top"`
}

type topWithPlayerResponse struct {
	GameID  string        `json:"game_id"`
	Entries []topEntry    `json:"entries"`
	Player  playerContext `json:"player"`
}

// HandleGetTop handles GET /top?game_id=&limit= requests.
func (h *TopHandler) HandleGetTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	res, err := h.deps.TopScores(r.Context(), q.Get("game_id"), q.Get("limit"), r.Header.Get(signatureHeader))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topResponse{GameID: res.GameID, Entries: toTopEntries(res.Entries)})
}

// HandleGetTopWithPlayer handles GET /top/player?game_id=&player_id=&limit=
// requests: the top listing plus the caller's own standing.
func (h *TopHandler) HandleGetTopWithPlayer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	res, err := h.deps.TopWithPlayer(r.Context(), q.Get("game_id"), q.Get("player_id"), q.Get("limit"), r.Header.Get(signatureHeader))
	if err != nil {
		writeAppError(w, err)
		return
	}

	out := topWithPlayerResponse{
		GameID:  res.GameID,
		Entries: toTopEntries(res.Entries),
		Player: playerContext{
			PlayerID:      res.Player.PlayerID,
			HasScore:      res.Player.Found,
			IncludedInTop: res.Player.IncludedInTop,
		},
	}
	if res.Player.Found {
		out.Player.PlayerName = res.Player.PlayerName
		out.Player.Score = &res.Player.Score
		out.Player.Rank = &res.Player.Rank
		out.Player.TotalPlayers = &res.Player.TotalPlayers
	}
	writeJSON(w, http.StatusOK, out)
}

func toTopEntries(entries []app.RankedEntry) []topEntry {
	out := make([]topEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, topEntry{PlayerName: e.PlayerName, Score: e.Score, Rank: e.Rank})
	}
	return out
}
