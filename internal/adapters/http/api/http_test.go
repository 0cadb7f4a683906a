package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/adapters/http/api"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/canonical"
	"github.com/okian/podium/internal/domain/signature"
	"github.com/okian/podium/internal/secret"
	"github.com/okian/podium/pkg/logger"
)

const testSecret = "http-test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	svc, err := app.New(
		app.WithStore(repository.NewMemStore()),
		app.WithSecrets(secret.NewStaticProvider(testSecret), "test-secret"),
	)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postScore(t *testing.T, srv *httptest.Server, fields map[string]interface{}, sign bool) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/scores", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if sign {
		payload, cerr := canonical.JSON(raw)
		if cerr != nil {
			t.Fatalf("failed to canonicalize: %v", cerr)
		}
		req.Header.Set("X-Signature", signature.Sign(testSecret, payload))
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func getSigned(t *testing.T, srv *httptest.Server, path string, params map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL+path+"?"+q.Encode(), nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("X-Signature", signature.Sign(testSecret, canonical.Query(params)))

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func validSubmission(game, player string, score int64) map[string]interface{} {
	return map[string]interface{}{
		"game_id":   game,
		"player_id": player,
		"score":     score,
		"nonce":     uuid.New().String(),
		"timestamp": time.Now().Unix(),
	}
}

func TestScoresEndpoint(t *testing.T) {
	Convey("Given a running API server", t, func() {
		srv := newTestServer(t)

		Convey("When posting a valid signed submission", func() {
			resp, body := postScore(t, srv, validSubmission("g1", "p1", 100), true)

			Convey("Then it is accepted as a new best", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, "ok")
				So(body["accepted"], ShouldEqual, true)
				So(body["new_best"], ShouldEqual, true)
			})
		})

		Convey("When posting without a signature", func() {
			resp, body := postScore(t, srv, validSubmission("g1", "p1", 100), false)

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["status"], ShouldEqual, "error")
				So(body["error"], ShouldEqual, "invalid_signature")
			})
		})

		Convey("When posting an invalid but signed submission", func() {
			sub := validSubmission("g1", "p1", 100)
			delete(sub, "nonce")
			resp, body := postScore(t, srv, sub, true)

			Convey("Then the reasons list the violations", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["error"], ShouldEqual, "validation_error")
				So(body["reasons"], ShouldContain, "nonce_required")
			})
		})

		Convey("When posting malformed JSON", func() {
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/scores", bytes.NewReader([]byte("{broken")))
			So(err, ShouldBeNil)
			resp, err := srv.Client().Do(req)
			So(err, ShouldBeNil)
			body := decodeBody(t, resp)

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(body["error"], ShouldEqual, "invalid_json")
		})

		Convey("When using the wrong method", func() {
			resp, err := srv.Client().Get(srv.URL + "/scores")
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given a server with a populated board", t, func() {
		srv := newTestServer(t)
		for player, score := range map[string]int64{"a": 100, "b": 90, "d": 50} {
			resp, _ := postScore(t, srv, validSubmission("g1", player, score), true)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		}

		Convey("When fetching a player's rank", func() {
			resp, body := getSigned(t, srv, "/rank", map[string]string{"game_id": "g1", "player_id": "d"})

			Convey("Then the response carries score, rank, and totals", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["has_score"], ShouldEqual, true)
				So(body["score"], ShouldEqual, 50)
				So(body["rank"], ShouldEqual, 3)
				So(body["total_players"], ShouldEqual, 3)
			})
		})

		Convey("When fetching a rank for an unknown player", func() {
			resp, body := getSigned(t, srv, "/rank", map[string]string{"game_id": "g1", "player_id": "ghost"})

			Convey("Then only the has_score flag is reported", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["has_score"], ShouldEqual, false)
				So(body, ShouldNotContainKey, "score")
				So(body, ShouldNotContainKey, "rank")
			})
		})

		Convey("When fetching the top listing", func() {
			resp, body := getSigned(t, srv, "/top", map[string]string{"game_id": "g1", "limit": "2"})

			Convey("Then entries come back in rank order", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				entries := body["entries"].([]interface{})
				So(entries, ShouldHaveLength, 2)
				first := entries[0].(map[string]interface{})
				So(first["score"], ShouldEqual, 100)
				So(first["rank"], ShouldEqual, 1)
			})
		})

		Convey("When fetching the combined view", func() {
			resp, body := getSigned(t, srv, "/top/player",
				map[string]string{"game_id": "g1", "player_id": "d", "limit": "2"})

			Convey("Then the player context reports exclusion from the top", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				player := body["player"].(map[string]interface{})
				So(player["has_score"], ShouldEqual, true)
				So(player["rank"], ShouldEqual, 3)
				So(player["included_in_top"], ShouldEqual, false)
			})
		})

		Convey("When the query signature is wrong", func() {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/rank?game_id=g1&player_id=a", nil)
			So(err, ShouldBeNil)
			req.Header.Set("X-Signature", "deadbeef")
			resp, err := srv.Client().Do(req)
			So(err, ShouldBeNil)
			body := decodeBody(t, resp)

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(body["error"], ShouldEqual, "invalid_signature")
		})

		Convey("When the limit is out of range", func() {
			resp, body := getSigned(t, srv, "/top", map[string]string{"game_id": "g1", "limit": "0"})

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(body["error"], ShouldEqual, "validation_error")
			So(body["reasons"], ShouldContain, "limit_invalid")
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a running API server", t, func() {
		srv := newTestServer(t)

		Convey("When hitting the health endpoint", func() {
			resp, err := srv.Client().Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			body := decodeBody(t, resp)

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("When hitting the stats endpoint", func() {
			resp, err := srv.Client().Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			body := decodeBody(t, resp)

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["backend"], ShouldEqual, "memory")
		})

		Convey("When hitting the metrics endpoint", func() {
			resp, err := srv.Client().Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
