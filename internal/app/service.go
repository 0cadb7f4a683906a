// Package app wires the domain pieces into the leaderboard service: signed
// submissions, best-score retention, and signed rank/top queries.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/canonical"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/replay"
	"github.com/okian/podium/internal/domain/signature"
	"github.com/okian/podium/internal/domain/validation"
	"github.com/okian/podium/internal/secret"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// lockStripes bounds the per-player lock table. Two players may share a
// stripe; that only costs contention, never correctness.
const lockStripes = 256

// Service implements the leaderboard operations on top of a Store.
type Service struct {
	store        repository.Store
	secrets      secret.Provider
	secretName   string
	validator    *validation.Validator
	guard        replay.Guard
	storeTimeout time.Duration
	backendName  string
	startedAt    time.Time
	locks        [lockStripes]sync.Mutex
	log          logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the leaderboard store backend.
func WithStore(st repository.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithSecrets sets the signing secret source and the name to resolve.
func WithSecrets(p secret.Provider, name string) Option {
	return func(s *Service) {
		s.secrets = p
		s.secretName = name
	}
}

// WithValidator overrides the default request validator.
func WithValidator(v *validation.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithReplayGuard enables nonce replay rejection.
func WithReplayGuard(g replay.Guard) Option {
	return func(s *Service) { s.guard = g }
}

// WithStoreTimeout bounds each store round trip. Zero means no bound beyond
// the request context.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithBackendName labels the active backend in stats output.
func WithBackendName(name string) Option {
	return func(s *Service) { s.backendName = name }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New constructs a Service. A store and a secret source are required.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		validator:   validation.New(),
		backendName: "memory",
		startedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		return nil, errors.New("store is required")
	}
	if s.secrets == nil || s.secretName == "" {
		return nil, errors.New("secret source is required")
	}
	if s.log == nil {
		s.log = logger.Named("app")
	}
	return s, nil
}

// SubmitResult reports the outcome of an accepted submission.
type SubmitResult struct {
	GameID   string
	PlayerID string
	Score    int64
	NewBest  bool
}

// SubmitScore authenticates and applies one score submission. The signature
// is verified over the canonical JSON form of the body before any field
// validation, so malformed-but-unsigned payloads never reach validation.
// A submission that does not beat the player's stored best is accepted but
// changes nothing.
func (s *Service) SubmitScore(ctx context.Context, body []byte, providedSig string) (SubmitResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return SubmitResult{}, ErrEmptyBody
	}

	decoded, err := canonical.Decode(body)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: body is not an object", ErrInvalidJSON)
	}

	payload := canonical.Encode(decoded)
	if err := s.verify(ctx, payload, providedSig); err != nil {
		return SubmitResult{}, err
	}

	sub, reasons := s.validator.Submission(obj)
	if len(reasons) > 0 {
		metrics.RecordValidationRejection()
		return SubmitResult{}, &ValidationError{Reasons: reasons}
	}

	var guardKey string
	if s.guard != nil {
		guardKey = sub.GameID + "|" + sub.PlayerID + "|" + sub.Nonce
		if s.guard.SeenAndRecord(ctx, guardKey) {
			metrics.RecordReplayRejection()
			s.log.Debug(ctx, "replayed nonce rejected",
				logger.String("game_id", sub.GameID),
				logger.String("player_id", sub.PlayerID))
			return SubmitResult{}, ErrReplayedNonce
		}
	}

	res, err := s.applyBest(ctx, sub)
	if err != nil {
		// Let the client retry the same nonce after a store failure.
		if s.guard != nil {
			s.guard.Unrecord(ctx, guardKey)
		}
		return SubmitResult{}, err
	}
	metrics.RecordSubmission(res.NewBest)
	return res, nil
}

// applyBest serializes read-compare-write per (game, player) so two racing
// submissions cannot both pass the improvement check.
func (s *Service) applyBest(ctx context.Context, sub validation.Submission) (SubmitResult, error) {
	mu := s.lockFor(sub.GameID, sub.PlayerID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	entry := model.Entry{
		GameID:     sub.GameID,
		PlayerID:   sub.PlayerID,
		PlayerName: sub.PlayerName,
		Score:      sub.Score,
		RankKey:    model.RankKeyFor(sub.Score),
		CreatedAt:  time.Now().UTC(),
	}
	res := SubmitResult{GameID: sub.GameID, PlayerID: sub.PlayerID, Score: sub.Score}

	current, err := s.store.PlayerBest(sctx, sub.GameID, sub.PlayerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if err := s.store.UpsertBest(sctx, entry); err != nil {
			return SubmitResult{}, s.storeFailed(ctx, "upsert_best", err)
		}
		res.NewBest = true
		return res, nil
	case err != nil:
		return SubmitResult{}, s.storeFailed(ctx, "player_best", err)
	}

	if sub.Score <= current.Score {
		return res, nil
	}

	if rep, ok := s.store.(repository.Replacer); ok {
		if err := rep.ReplaceBest(sctx, current.RankKey, entry); err != nil {
			return SubmitResult{}, s.storeFailed(ctx, "replace_best", err)
		}
	} else {
		if err := s.store.DeleteByRankKey(sctx, sub.GameID, current.RankKey, sub.PlayerID); err != nil {
			return SubmitResult{}, s.storeFailed(ctx, "delete_by_rank_key", err)
		}
		if err := s.store.UpsertBest(sctx, entry); err != nil {
			return SubmitResult{}, s.storeFailed(ctx, "upsert_best", err)
		}
	}
	res.NewBest = true
	return res, nil
}

// RankResult is the answer to a player rank query.
type RankResult struct {
	GameID       string
	PlayerID     string
	Found        bool
	Score        int64
	PlayerName   string
	Rank         int
	TotalPlayers int
}

// PlayerRank returns a player's rank using competition ranking: one plus the
// number of strictly better scores. A player with no entry reports only that
// they have no score yet.
func (s *Service) PlayerRank(ctx context.Context, gameID, playerID, providedSig string) (RankResult, error) {
	params := map[string]string{"game_id": gameID, "player_id": playerID}
	if reasons := s.validator.PlayerQuery(params); len(reasons) > 0 {
		metrics.RecordValidationRejection()
		return RankResult{}, &ValidationError{Reasons: reasons}
	}
	if err := s.verify(ctx, canonical.Query(params), providedSig); err != nil {
		return RankResult{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	res := RankResult{GameID: gameID, PlayerID: playerID}

	entry, err := s.store.PlayerBest(sctx, gameID, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return RankResult{}, s.storeFailed(ctx, "player_best", err)
	}

	better, err := s.store.CountBetter(sctx, gameID, entry.RankKey)
	if err != nil {
		return RankResult{}, s.storeFailed(ctx, "count_better", err)
	}
	total, err := s.store.Count(sctx, gameID)
	if err != nil {
		return RankResult{}, s.storeFailed(ctx, "count", err)
	}
	res.Found = true
	res.Score = entry.Score
	res.PlayerName = entry.PlayerName
	res.Rank = better + 1
	res.TotalPlayers = total
	return res, nil
}

// RankedEntry is one row of a top-N listing.
type RankedEntry struct {
	Rank       int
	PlayerID   string
	PlayerName string
	Score      int64
}

// TopResult is the answer to a top-N query.
type TopResult struct {
	GameID  string
	Limit   int
	Entries []RankedEntry
}

// TopScores returns the game's best entries, highest score first. limitRaw
// is the raw query value; empty means the default.
func (s *Service) TopScores(ctx context.Context, gameID, limitRaw, providedSig string) (TopResult, error) {
	params := map[string]string{"game_id": gameID}
	if limitRaw != "" {
		params["limit"] = limitRaw
	}
	limit, reasons := s.validator.TopQuery(params)
	if len(reasons) > 0 {
		metrics.RecordValidationRejection()
		return TopResult{}, &ValidationError{Reasons: reasons}
	}
	if err := s.verify(ctx, canonical.Query(params), providedSig); err != nil {
		return TopResult{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	entries, err := s.store.QueryTop(sctx, gameID, limit)
	if err != nil {
		return TopResult{}, s.storeFailed(ctx, "query_top", err)
	}
	return TopResult{GameID: gameID, Limit: limit, Entries: rankEntries(entries)}, nil
}

// PlayerContext situates one player inside a top-N listing.
type PlayerContext struct {
	PlayerID      string
	PlayerName    string
	Found         bool
	Score         int64
	Rank          int
	TotalPlayers  int
	IncludedInTop bool
}

// TopWithPlayerResult is a top-N listing plus the requesting player's rank.
type TopWithPlayerResult struct {
	TopResult
	Player PlayerContext
}

// TopWithPlayer returns the top-N listing together with the given player's
// own standing, whether or not they appear in the listing.
func (s *Service) TopWithPlayer(ctx context.Context, gameID, playerID, limitRaw, providedSig string) (TopWithPlayerResult, error) {
	params := map[string]string{"game_id": gameID, "player_id": playerID}
	if limitRaw != "" {
		params["limit"] = limitRaw
	}
	limit, reasons := s.validator.TopQuery(params)
	if playerID == "" {
		reasons = append(reasons, validation.ReasonPlayerIDRequired)
	}
	if len(reasons) > 0 {
		metrics.RecordValidationRejection()
		return TopWithPlayerResult{}, &ValidationError{Reasons: reasons}
	}
	if err := s.verify(ctx, canonical.Query(params), providedSig); err != nil {
		return TopWithPlayerResult{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	entries, err := s.store.QueryTop(sctx, gameID, limit)
	if err != nil {
		return TopWithPlayerResult{}, s.storeFailed(ctx, "query_top", err)
	}

	out := TopWithPlayerResult{
		TopResult: TopResult{GameID: gameID, Limit: limit, Entries: rankEntries(entries)},
		Player:    PlayerContext{PlayerID: playerID},
	}

	best, err := s.store.PlayerBest(sctx, gameID, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return TopWithPlayerResult{}, s.storeFailed(ctx, "player_best", err)
	}
	better, err := s.store.CountBetter(sctx, gameID, best.RankKey)
	if err != nil {
		return TopWithPlayerResult{}, s.storeFailed(ctx, "count_better", err)
	}
	total, err := s.store.Count(sctx, gameID)
	if err != nil {
		return TopWithPlayerResult{}, s.storeFailed(ctx, "count", err)
	}
	out.Player.Found = true
	out.Player.PlayerName = best.PlayerName
	out.Player.Score = best.Score
	out.Player.Rank = better + 1
	out.Player.TotalPlayers = total
	out.Player.IncludedInTop = out.Player.Rank <= limit
	return out, nil
}

// Stats is a point-in-time operational snapshot.
type Stats struct {
	Backend        string
	UptimeSecs     int64
	NonceCacheSize int64
}

// ServiceStats reports operational counters for the stats endpoint.
func (s *Service) ServiceStats(context.Context) Stats {
	st := Stats{
		Backend:    s.backendName,
		UptimeSecs: int64(time.Since(s.startedAt).Seconds()),
	}
	if s.guard != nil {
		st.NonceCacheSize = s.guard.Size()
	}
	return st
}

// verify resolves the signing secret and checks providedSig over payload.
func (s *Service) verify(ctx context.Context, payload, providedSig string) error {
	sec, err := s.secrets.GetSecret(ctx, s.secretName)
	if err != nil {
		s.log.Error(ctx, "secret resolution failed", logger.Error(err))
		metrics.RecordErrorByComponent("secrets", "resolve_failed")
		return fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}
	if !signature.Verify(sec, payload, providedSig) {
		metrics.RecordSignatureRejection()
		return ErrInvalidSignature
	}
	return nil
}

func (s *Service) storeFailed(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, "store operation failed", logger.String("op", op), logger.Error(err))
	metrics.RecordErrorByComponent("store", "operation_failed")
	return fmt.Errorf("store %s: %w", op, err)
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Service) lockFor(gameID, playerID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(gameID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(playerID))
	return &s.locks[h.Sum32()%lockStripes]
}

// rankEntries annotates an already sorted listing with 1-based positions.
// Listing positions are scan order; only the player rank query uses the
// strictly-better count.
func rankEntries(entries []repository.Entry) []RankedEntry {
	out := make([]RankedEntry, 0, len(entries))
	for i, e := range entries {
		out = append(out, RankedEntry{
			Rank:       i + 1,
			PlayerID:   e.PlayerID,
			PlayerName: e.PlayerName,
			Score:      e.Score,
		})
	}
	return out
}
