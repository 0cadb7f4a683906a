// Package validation implements the per-operation request validation
// profiles. Every profile collects ALL violations for a request rather than
// stopping at the first one, so clients see the full reason list at once.
package validation

import (
	"encoding/json"
	"strconv"
	"time"
)

// Violation reason codes. These are part of the wire contract.
const (
	ReasonGameIDRequired    = "game_id_required"
	ReasonPlayerIDRequired  = "player_id_required"
	ReasonScoreInvalid      = "score_invalid"
	ReasonScoreNegative     = "score_negative"
	ReasonScoreTooHigh      = "score_too_high"
	ReasonNonceRequired     = "nonce_required"
	ReasonNonceReused       = "nonce_reused"
	ReasonTimestampRequired = "timestamp_required"
	ReasonTimestampSkew     = "timestamp_skew"
	ReasonPlayerNameInvalid = "player_name_invalid"
	ReasonLimitInvalid      = "limit_invalid"
)

// Limit bounds for top-N queries.
const (
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 100
)

const minNonceLength = 8

// Submission is the typed result of validating a submit body.
type Submission struct {
	GameID     string
	PlayerID   string
	PlayerName string
	Score      int64
	Nonce      string
	Timestamp  int64
}

// Validator checks request payloads against the configured bounds.
type Validator struct {
	maxScore int64
	skew     time.Duration
	now      func() time.Time
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithMaxScore sets the inclusive upper bound for submitted scores.
func WithMaxScore(max int64) Option {
	return func(v *Validator) {
		if max > 0 {
			v.maxScore = max
		}
	}
}

// WithTimestampSkew sets the allowed clock drift for submission timestamps.
func WithTimestampSkew(skew time.Duration) Option {
	return func(v *Validator) {
		if skew > 0 {
			v.skew = skew
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// New constructs a Validator with default bounds.
func New(opts ...Option) *Validator {
	v := &Validator{
		maxScore: 100_000_000,
		skew:     300 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Submission validates a decoded submit body (JSON object with json.Number
// values). It returns the parsed fields and the ordered violation list; an
// empty list means valid.
func (v *Validator) Submission(body map[string]interface{}) (Submission, []string) {
	var reasons []string
	var out Submission

	out.GameID, _ = body["game_id"].(string)
	out.PlayerID, _ = body["player_id"].(string)

	score, scoreOK := asInt64(body["score"])
	out.Score = score

	if out.GameID == "" {
		reasons = append(reasons, ReasonGameIDRequired)
	}
	if out.PlayerID == "" {
		reasons = append(reasons, ReasonPlayerIDRequired)
	}
	if !scoreOK {
		reasons = append(reasons, ReasonScoreInvalid)
	}
	if scoreOK && score < 0 {
		reasons = append(reasons, ReasonScoreNegative)
	}
	if scoreOK && score > v.maxScore {
		reasons = append(reasons, ReasonScoreTooHigh)
	}

	nonce, nonceOK := body["nonce"].(string)
	out.Nonce = nonce
	if !nonceOK || len(nonce) < minNonceLength {
		reasons = append(reasons, ReasonNonceRequired)
	}

	ts, tsOK := asInt64(body["timestamp"])
	out.Timestamp = ts
	if !tsOK {
		reasons = append(reasons, ReasonTimestampRequired)
	} else {
		now := v.now().Unix()
		diff := now - ts
		if diff < 0 {
			diff = -diff
		}
		if diff > int64(v.skew/time.Second) {
			reasons = append(reasons, ReasonTimestampSkew)
		}
	}

	if name, present := body["player_name"]; present {
		s, ok := name.(string)
		if !ok {
			reasons = append(reasons, ReasonPlayerNameInvalid)
		}
		out.PlayerName = s
	}

	return out, reasons
}

// TopQuery validates top-N query parameters and resolves the effective
// limit: absent defaults to DefaultLimit, anything parsed is clamped to
// [MinLimit, MaxLimit]. An out-of-range or unparseable limit is a violation.
func (v *Validator) TopQuery(params map[string]string) (int, []string) {
	var reasons []string

	if params["game_id"] == "" {
		reasons = append(reasons, ReasonGameIDRequired)
	}

	limit := DefaultLimit
	if raw, ok := params["limit"]; ok && raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			reasons = append(reasons, ReasonLimitInvalid)
		} else {
			if parsed < MinLimit || parsed > MaxLimit {
				reasons = append(reasons, ReasonLimitInvalid)
			}
			limit = clamp(parsed, MinLimit, MaxLimit)
		}
	}

	return limit, reasons
}

// PlayerQuery validates player-rank query parameters.
func (v *Validator) PlayerQuery(params map[string]string) []string {
	var reasons []string
	if params["game_id"] == "" {
		reasons = append(reasons, ReasonGameIDRequired)
	}
	if params["player_id"] == "" {
		reasons = append(reasons, ReasonPlayerIDRequired)
	}
	return reasons
}

// asInt64 accepts only JSON integers: a json.Number with no fractional part.
func asInt64(v interface{}) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
