package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/podium/internal/domain/canonical"
	"github.com/okian/podium/internal/domain/signature"
)

// client is a signing HTTP client for the leaderboard API.
type client struct {
	http   *http.Client
	base   string
	secret string
}

func newClient(cfg *Config) *client {
	return &client{
		http:   &http.Client{Timeout: cfg.Timeout},
		base:   cfg.BaseURL,
		secret: cfg.Secret,
	}
}

type submitResponse struct {
	Status   string `json:"status"`
	Accepted bool   `json:"accepted"`
	NewBest  bool   `json:"new_best"`
}

type rankResponse struct {
	GameID       string `json:"game_id"`
	PlayerID     string `json:"player_id"`
	HasScore     bool   `json:"has_score"`
	Score        int64  `json:"score"`
	Rank         int    `json:"rank"`
	TotalPlayers int    `json:"total_players"`
}

type topResponse struct {
	GameID  string `json:"game_id"`
	Entries []struct {
		PlayerName string `json:"player_name"`
		Score      int64  `json:"score"`
		Rank       int    `json:"rank"`
	} `json:"entries"`
}

// health checks the service is up.
func (c *client) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check status %d", resp.StatusCode)
	}
	return nil
}

// submit signs and posts one score submission. The signature covers the
// canonical JSON form of the body, exactly as the service recomputes it.
func (c *client) submit(ctx context.Context, sub submission) (bool, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return false, fmt.Errorf("marshal submission: %w", err)
	}
	payload, err := canonical.JSON(body)
	if err != nil {
		return false, fmt.Errorf("canonicalize submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/scores", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature.Sign(c.secret, payload))

	var out submitResponse
	if err := c.do(req, &out); err != nil {
		return false, err
	}
	return out.NewBest, nil
}

// playerRank fetches a player's rank with a signed query.
func (c *client) playerRank(ctx context.Context, gameID, playerID string) (rankResponse, error) {
	params := map[string]string{"game_id": gameID, "player_id": playerID}
	var out rankResponse
	if err := c.get(ctx, "/rank", params, &out); err != nil {
		return rankResponse{}, err
	}
	return out, nil
}

// top fetches the top-N listing with a signed query.
func (c *client) top(ctx context.Context, gameID string, limit int) (topResponse, error) {
	params := map[string]string{"game_id": gameID, "limit": strconv.Itoa(limit)}
	var out topResponse
	if err := c.get(ctx, "/top", params, &out); err != nil {
		return topResponse{}, err
	}
	return out, nil
}

func (c *client) get(ctx context.Context, path string, params map[string]string, out any) error {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Signature", signature.Sign(c.secret, canonical.Query(params)))
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
