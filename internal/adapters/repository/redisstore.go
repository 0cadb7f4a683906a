package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/podium/pkg/metrics"
)

const redisBackend = "redis"

// RedisStore keeps each game's ranking in a sorted set: member = player id,
// score = rank key. Ascending range order is the leaderboard, and redis
// breaks score ties lexicographically by member, which matches the
// player-id-ascending contract for free. Display metadata lives in a hash
// next to the sorted set.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to the redis instance at url
// (redis://[user:pass@]host:port/db) and pings it before returning.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Close releases the client's connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func boardKey(gameID string) string { return "podium:board:" + gameID }
func metaKey(gameID string) string  { return "podium:meta:" + gameID }

// playerMeta is the hash payload carrying the fields a sorted set cannot.
type playerMeta struct {
	PlayerName string `json:"player_name"`
	Score      int64  `json:"score"`
	CreatedAt  int64  `json:"created_at"`
}

// UpsertBest implements Store.UpsertBest.
func (s *RedisStore) UpsertBest(ctx context.Context, e Entry) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(redisBackend, float64(time.Since(start).Milliseconds()))
	}()

	meta, err := json.Marshal(playerMeta{PlayerName: e.PlayerName, Score: e.Score, CreatedAt: e.CreatedAt.Unix()})
	if err != nil {
		return storeErr(redisBackend, "upsert_best", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, boardKey(e.GameID), &redis.Z{Score: float64(e.RankKey), Member: e.PlayerID})
	pipe.HSet(ctx, metaKey(e.GameID), e.PlayerID, string(meta))
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr(redisBackend, "upsert_best", err)
	}
	return nil
}

// DeleteByRankKey implements Store.DeleteByRankKey. The sorted set keys one
// score per member, so the member is removed only when it still holds the
// given rank key.
func (s *RedisStore) DeleteByRankKey(ctx context.Context, gameID string, rankKey int64, playerID string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(redisBackend, float64(time.Since(start).Milliseconds()))
	}()

	current, err := s.rdb.ZScore(ctx, boardKey(gameID), playerID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return storeErr(redisBackend, "delete_by_rank_key", err)
	}
	if int64(current) != rankKey {
		return nil
	}

	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, boardKey(gameID), playerID)
	pipe.HDel(ctx, metaKey(gameID), playerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr(redisBackend, "delete_by_rank_key", err)
	}
	return nil
}

// ReplaceBest implements Replacer. ZADD LT only moves a member when the new
// rank key is smaller (a strictly better score), so the swap needs no
// delete at all.
func (s *RedisStore) ReplaceBest(ctx context.Context, oldRankKey int64, e Entry) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(redisBackend, float64(time.Since(start).Milliseconds()))
	}()

	meta, err := json.Marshal(playerMeta{PlayerName: e.PlayerName, Score: e.Score, CreatedAt: e.CreatedAt.Unix()})
	if err != nil {
		return storeErr(redisBackend, "replace_best", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.ZAddArgs(ctx, boardKey(e.GameID), redis.ZAddArgs{
		LT:      true,
		Members: []redis.Z{{Score: float64(e.RankKey), Member: e.PlayerID}},
	})
	pipe.HSet(ctx, metaKey(e.GameID), e.PlayerID, string(meta))
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr(redisBackend, "replace_best", err)
	}
	return nil
}

// PlayerBest implements Store.PlayerBest.
func (s *RedisStore) PlayerBest(ctx context.Context, gameID, playerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(redisBackend, float64(time.Since(start).Milliseconds()))
	}()

	rankKey, err := s.rdb.ZScore(ctx, boardKey(gameID), playerID).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, storeErr(redisBackend, "player_best", err)
	}

	e := Entry{
		GameID:   gameID,
		PlayerID: playerID,
		RankKey:  int64(rankKey),
		Score:    -int64(rankKey),
	}
	raw, err := s.rdb.HGet(ctx, metaKey(gameID), playerID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, storeErr(redisBackend, "player_best", err)
	}
	if raw != "" {
		var meta playerMeta
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			e.PlayerName = meta.PlayerName
			e.Score = meta.Score
			e.CreatedAt = time.Unix(meta.CreatedAt, 0).UTC()
		}
	}
	return e, nil
}

// QueryTop implements Store.QueryTop.
func (s *RedisStore) QueryTop(ctx context.Context, gameID string, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(redisBackend, float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	zs, err := s.rdb.ZRangeWithScores(ctx, boardKey(gameID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, storeErr(redisBackend, "query_top", err)
	}
	if len(zs) == 0 {
		return []Entry{}, nil
	}

	players := make([]string, len(zs))
	for i, z := range zs {
		players[i], _ = z.Member.(string)
	}
	metas, err := s.rdb.HMGet(ctx, metaKey(gameID), players...).Result()
	if err != nil {
		return nil, storeErr(redisBackend, "query_top", err)
	}

	out := make([]Entry, 0, len(zs))
	for i, z := range zs {
		e := Entry{
			GameID:   gameID,
			PlayerID: players[i],
			RankKey:  int64(z.Score),
			Score:    -int64(z.Score),
		}
		if raw, ok := metas[i].(string); ok {
			var meta playerMeta
			if err := json.Unmarshal([]byte(raw), &meta); err == nil {
				e.PlayerName = meta.PlayerName
				e.Score = meta.Score
				e.CreatedAt = time.Unix(meta.CreatedAt, 0).UTC()
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// CountBetter implements Store.CountBetter.
func (s *RedisStore) CountBetter(ctx context.Context, gameID string, rankKey int64) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(redisBackend, float64(time.Since(start).Milliseconds()))
	}()

	n, err := s.rdb.ZCount(ctx, boardKey(gameID), "-inf", "("+strconv.FormatInt(rankKey, 10)).Result()
	if err != nil {
		return 0, storeErr(redisBackend, "count_better", err)
	}
	return int(n), nil
}

// Count implements Store.Count.
func (s *RedisStore) Count(ctx context.Context, gameID string) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(redisBackend, float64(time.Since(start).Milliseconds()))
	}()

	n, err := s.rdb.ZCard(ctx, boardKey(gameID)).Result()
	if err != nil {
		return 0, storeErr(redisBackend, "count", err)
	}
	return int(n), nil
}
