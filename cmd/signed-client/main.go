package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/podium/internal/loadgen"
	"github.com/okian/podium/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers        = 500
	defaultSubmissions    = 5
	defaultTopN           = 10
	defaultWorkerFactor   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 10 * time.Second
	defaultRunTimeout     = 10 * time.Minute
	defaultGameID         = "loadgen"
	secretEnvVar          = "LEADERBOARD_HMAC_KEY"
	missingSecretExitCode = 2
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		gameID      = flag.String("game", defaultGameID, "Game ID to submit scores under")
		players     = flag.Int("players", defaultPlayers, "Number of distinct players to simulate")
		submissions = flag.Int("submissions", defaultSubmissions, "Submissions per player")
		topN        = flag.Int("top", defaultTopN, "Top-N listing size to verify")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkerFactor, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Enable per-request logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	secret := os.Getenv(secretEnvVar)
	if secret == "" {
		os.Stderr.WriteString(secretEnvVar + " must be set to the service's signing secret\n")
		os.Exit(missingSecretExitCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:              *baseURL,
		GameID:               *gameID,
		Secret:               secret,
		NumPlayers:           *players,
		SubmissionsPerPlayer: *submissions,
		TopN:                 *topN,
		Workers:              *workers,
		Timeout:              *timeout,
		Verbose:              *verbose,
	}

	if err := loadgen.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
