// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/okian/podium/internal/app"
)

// maxBodyBytes bounds submit request bodies. Signed payloads are small;
// anything bigger is abuse.
const maxBodyBytes = 64 << 10

// ScoresDependencies defines the interface for score submission.
type ScoresDependencies interface {
	SubmitScore(ctx context.Context, body []byte, signature string) (app.SubmitResult, error)
}

// ScoresHandler handles score submissions.
type ScoresHandler struct {
	deps ScoresDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

type submitResponse struct {
	Status   string `json:"status"`
	Accepted bool   `json:"accepted"`
	NewBest  bool   `json:"new_best"`
}

// HandleSubmitScore handles POST /scores requests. The raw body bytes go to
// the service untouched; canonicalization happens there so the signature is
// always checked against what the client actually signed.
func (h *ScoresHandler) HandleSubmitScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody)
		return
	}

	res, err := h.deps.SubmitScore(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Status: "ok", Accepted: true, NewBest: res.NewBest})
}
