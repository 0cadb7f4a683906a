// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/podium/internal/app"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	ServiceStats(ctx context.Context) app.Stats
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

type statsResponse struct {
	Backend        string `json:"backend"`
	UptimeSecs     int64  `json:"uptime_secs"`
	NonceCacheSize int64  `json:"nonce_cache_size"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	st := h.statsProvider.ServiceStats(r.Context())
	writeJSON(w, http.StatusOK, statsResponse{
		Backend:        st.Backend,
		UptimeSecs:     st.UptimeSecs,
		NonceCacheSize: st.NonceCacheSize,
	})
}
