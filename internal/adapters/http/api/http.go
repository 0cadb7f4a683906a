// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/podium/internal/app"
	"github.com/okian/podium/pkg/metrics"
)

// signatureHeader carries the request's HMAC over the canonical payload.
const signatureHeader = "X-Signature"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitScore(ctx context.Context, body []byte, signature string) (app.SubmitResult, error)
	PlayerRank(ctx context.Context, gameID, playerID, signature string) (app.RankResult, error)
	TopScores(ctx context.Context, gameID, limitRaw, signature string) (app.TopResult, error)
	TopWithPlayer(ctx context.Context, gameID, playerID, limitRaw, signature string) (app.TopWithPlayerResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	scoresHandler *ScoresHandler
	rankHandler   *RankHandler
	topHandler    *TopHandler
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		scoresHandler: NewScoresHandler(deps),
		rankHandler:   NewRankHandler(deps),
		topHandler:    NewTopHandler(deps),
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandleSubmitScore, "scores"))
	mux.HandleFunc("/rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/top", MetricsMiddleware(s.topHandler.HandleGetTop, "top"))
	mux.HandleFunc("/top/player", MetricsMiddleware(s.topHandler.HandleGetTopWithPlayer, "top_player"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the error envelope shared by every endpoint. Reasons are only
// present for validation failures.
type errorBody struct {
	Status  string   `json:"status"`
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code string, reasons ...string) {
	writeJSON(w, status, errorBody{Status: "error", Error: code, Reasons: reasons})
}
