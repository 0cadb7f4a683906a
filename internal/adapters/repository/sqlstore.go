package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/podium/pkg/metrics"
)

const sqlBackend = "sqlite"

// SQLStore persists leaderboard state in an embedded sqlite database. The
// table mirrors the sorted-index shape: the primary key is
// (game_id, rank_key, player_id) so a plain ordered scan is the leaderboard,
// and a secondary index on (player_id, game_id) serves point lookups.
type SQLStore struct {
	db       *sql.DB
	entryTTL time.Duration
}

// SQLOption applies a configuration option to the SQLStore.
type SQLOption func(*SQLStore)

// WithEntryTTL stores an expiry hint alongside each entry. Zero disables it.
// The column is informational; no reaper runs in this process.
func WithEntryTTL(ttl time.Duration) SQLOption {
	return func(s *SQLStore) {
		if ttl > 0 {
			s.entryTTL = ttl
		}
	}
}

// NewSQLStore opens (and migrates) the database at path.
func NewSQLStore(ctx context.Context, path string, opts ...SQLOption) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS leaderboard (
			game_id TEXT NOT NULL,
			rank_key INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			player_name TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER,
			PRIMARY KEY (game_id, rank_key, player_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_player ON leaderboard(player_id, game_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) expiry(createdAt time.Time) interface{} {
	if s.entryTTL <= 0 {
		return nil
	}
	return createdAt.Add(s.entryTTL).Unix()
}

func wrapErr(op string, err error) error {
	return storeErr(sqlBackend, op, err)
}

// UpsertBest implements Store.UpsertBest.
func (s *SQLStore) UpsertBest(ctx context.Context, e Entry) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(sqlBackend, float64(time.Since(start).Milliseconds()))
	}()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO leaderboard
			(game_id, rank_key, player_id, player_name, score, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.GameID, e.RankKey, e.PlayerID, e.PlayerName, e.Score, e.CreatedAt.Unix(), s.expiry(e.CreatedAt))
	if err != nil {
		return wrapErr("upsert_best", err)
	}
	return nil
}

// DeleteByRankKey implements Store.DeleteByRankKey.
func (s *SQLStore) DeleteByRankKey(ctx context.Context, gameID string, rankKey int64, playerID string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(sqlBackend, float64(time.Since(start).Milliseconds()))
	}()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM leaderboard WHERE game_id = ? AND rank_key = ? AND player_id = ?`,
		gameID, rankKey, playerID)
	if err != nil {
		return wrapErr("delete_by_rank_key", err)
	}
	return nil
}

// ReplaceBest implements Replacer: the delete of the superseded entry and
// the insert of the new best run in one transaction.
func (s *SQLStore) ReplaceBest(ctx context.Context, oldRankKey int64, e Entry) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(sqlBackend, float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("replace_best", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM leaderboard WHERE game_id = ? AND rank_key = ? AND player_id = ?`,
		e.GameID, oldRankKey, e.PlayerID); err != nil {
		return wrapErr("replace_best", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO leaderboard
			(game_id, rank_key, player_id, player_name, score, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.GameID, e.RankKey, e.PlayerID, e.PlayerName, e.Score, e.CreatedAt.Unix(), s.expiry(e.CreatedAt)); err != nil {
		return wrapErr("replace_best", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("replace_best", err)
	}
	return nil
}

// PlayerBest implements Store.PlayerBest. The smallest rank key wins if the
// player index ever yields more than one row.
func (s *SQLStore) PlayerBest(ctx context.Context, gameID, playerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(sqlBackend, float64(time.Since(start).Milliseconds()))
	}()

	row := s.db.QueryRowContext(ctx,
		`SELECT game_id, rank_key, player_id, player_name, score, created_at
		 FROM leaderboard
		 WHERE player_id = ? AND game_id = ?
		 ORDER BY rank_key ASC
		 LIMIT 1`,
		playerID, gameID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, wrapErr("player_best", err)
	}
	return e, nil
}

// QueryTop implements Store.QueryTop.
func (s *SQLStore) QueryTop(ctx context.Context, gameID string, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(sqlBackend, float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, rank_key, player_id, player_name, score, created_at
		 FROM leaderboard
		 WHERE game_id = ?
		 ORDER BY rank_key ASC, player_id ASC
		 LIMIT ?`,
		gameID, limit)
	if err != nil {
		return nil, wrapErr("query_top", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, wrapErr("query_top", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("query_top", err)
	}
	return out, nil
}

// CountBetter implements Store.CountBetter.
func (s *SQLStore) CountBetter(ctx context.Context, gameID string, rankKey int64) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(sqlBackend, float64(time.Since(start).Milliseconds()))
	}()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leaderboard WHERE game_id = ? AND rank_key < ?`,
		gameID, rankKey).Scan(&count)
	if err != nil {
		return 0, wrapErr("count_better", err)
	}
	return count, nil
}

// Count implements Store.Count.
func (s *SQLStore) Count(ctx context.Context, gameID string) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(sqlBackend, float64(time.Since(start).Milliseconds()))
	}()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leaderboard WHERE game_id = ?`,
		gameID).Scan(&count)
	if err != nil {
		return 0, wrapErr("count", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var e Entry
	var createdAt int64
	if err := r.Scan(&e.GameID, &e.RankKey, &e.PlayerID, &e.PlayerName, &e.Score, &createdAt); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	return e, nil
}
