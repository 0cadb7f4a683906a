// Package loadgen drives a running leaderboard service with signed traffic
// and verifies the resulting ranks against local expectations.
package loadgen

import "time"

// Config controls a load generation run.
type Config struct {
	// BaseURL of the service under test, e.g. http://localhost:9080.
	BaseURL string

	// GameID receives all generated traffic.
	GameID string

	// Secret signs every request. Must match the service's secret.
	Secret string

	// NumPlayers is the number of distinct players to simulate.
	NumPlayers int

	// SubmissionsPerPlayer is how many scores each player submits.
	SubmissionsPerPlayer int

	// TopN is the listing size fetched during verification.
	TopN int

	// Workers bounds submission concurrency.
	Workers int

	// Timeout applies per HTTP request.
	Timeout time.Duration

	// Verbose enables per-request logging.
	Verbose bool
}

// Stats accumulates run counters.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	SubmissionsSent    int
	SubmissionsOK      int
	SubmissionsNewBest int
	SubmissionsFailed  int
	RanksChecked       int
	RankMismatches     int
	TopEntriesFetched  int
}
