package loadgen

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Run executes a full load generation pass: submit traffic, then verify the
// service's ranks and top listing against locally tracked expectations.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting leaderboard load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("gameID", cfg.GameID),
		logger.Int("players", cfg.NumPlayers),
		logger.Int("submissionsPerPlayer", cfg.SubmissionsPerPlayer),
		logger.Int("workers", cfg.Workers))

	c := newClient(cfg)
	if err := c.health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	players := generatePlayers(cfg)
	if err := submitAll(ctx, cfg, c, players, stats); err != nil {
		return fmt.Errorf("submission phase failed: %w", err)
	}
	if err := verifyRanks(ctx, cfg, c, players, stats); err != nil {
		return fmt.Errorf("rank verification failed: %w", err)
	}
	if err := verifyTop(ctx, cfg, c, players, stats); err != nil {
		return fmt.Errorf("top verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.RankMismatches > 0 {
		return fmt.Errorf("%d rank mismatches", stats.RankMismatches)
	}
	log.Info(ctx, "load run completed successfully")
	return nil
}

// submitAll pushes every player's submissions through a bounded worker pool.
// All submissions for one player go through the same worker so the local
// expected-best tracking needs no locking.
func submitAll(ctx context.Context, cfg *Config, c *client, players []*player, stats *Stats) error {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	playerChan := make(chan *player)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range playerChan {
				for i := 0; i < cfg.SubmissionsPerPlayer; i++ {
					if ctx.Err() != nil {
						return
					}
					sub := nextSubmission(cfg, p)
					newBest, err := c.submit(ctx, sub)

					mu.Lock()
					stats.SubmissionsSent++
					if err != nil {
						stats.SubmissionsFailed++
					} else {
						stats.SubmissionsOK++
						if newBest {
							stats.SubmissionsNewBest++
						}
					}
					mu.Unlock()

					if err != nil && cfg.Verbose {
						logger.Get().Warn(ctx, "submission failed",
							logger.String("playerID", p.id), logger.Error(err))
					}
				}
			}
		}()
	}

	for _, p := range players {
		select {
		case <-ctx.Done():
			close(playerChan)
			wg.Wait()
			return ctx.Err()
		case playerChan <- p:
		}
	}
	close(playerChan)
	wg.Wait()
	return ctx.Err()
}

// verifyRanks queries each player's rank and checks the reported score is the
// best the run submitted, and that ranks are consistent with local ordering.
func verifyRanks(ctx context.Context, cfg *Config, c *client, players []*player, stats *Stats) error {
	expected := expectedRanks(players)

	for _, p := range players {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := c.playerRank(ctx, cfg.GameID, p.id)
		if err != nil {
			return err
		}
		stats.RanksChecked++

		if !res.HasScore {
			stats.RankMismatches++
			continue
		}
		if res.Score != p.expectedBest || res.Rank != expected[p.id] {
			stats.RankMismatches++
			if cfg.Verbose {
				logger.Get().Warn(ctx, "rank mismatch",
					logger.String("playerID", p.id),
					logger.Int64("wantScore", p.expectedBest),
					logger.Int64("gotScore", res.Score),
					logger.Int("wantRank", expected[p.id]),
					logger.Int("gotRank", res.Rank))
			}
		}
	}
	return nil
}

// verifyTop fetches the listing and checks it is sorted and sized correctly.
func verifyTop(ctx context.Context, cfg *Config, c *client, players []*player, stats *Stats) error {
	res, err := c.top(ctx, cfg.GameID, cfg.TopN)
	if err != nil {
		return err
	}
	stats.TopEntriesFetched = len(res.Entries)

	want := cfg.TopN
	if len(players) < want {
		want = len(players)
	}
	if len(res.Entries) != want {
		return fmt.Errorf("top size: want %d, got %d", want, len(res.Entries))
	}
	for i, e := range res.Entries {
		if e.Rank != i+1 {
			return fmt.Errorf("top entry %d: want rank %d, got %d", i, i+1, e.Rank)
		}
		if i > 0 && e.Score > res.Entries[i-1].Score {
			return fmt.Errorf("top listing not sorted at entry %d", i)
		}
	}
	return nil
}

// expectedRanks computes each player's competition rank from the locally
// tracked best scores: one plus the count of strictly better scores.
func expectedRanks(players []*player) map[string]int {
	bests := make([]int64, len(players))
	for i, p := range players {
		bests[i] = p.expectedBest
	}
	sort.Slice(bests, func(i, j int) bool { return bests[i] > bests[j] })

	ranks := make(map[string]int, len(players))
	for _, p := range players {
		// First index with this score in the descending order.
		idx := sort.Search(len(bests), func(i int) bool { return bests[i] <= p.expectedBest })
		ranks[p.id] = idx + 1
	}
	return ranks
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.SubmissionsSent) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("submissionsSent", stats.SubmissionsSent),
		logger.Int("submissionsOK", stats.SubmissionsOK),
		logger.Int("submissionsNewBest", stats.SubmissionsNewBest),
		logger.Int("submissionsFailed", stats.SubmissionsFailed),
		logger.Int("ranksChecked", stats.RanksChecked),
		logger.Int("rankMismatches", stats.RankMismatches),
		logger.Int("topEntriesFetched", stats.TopEntriesFetched),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("submissionsPerSecond", perSecond))
}
