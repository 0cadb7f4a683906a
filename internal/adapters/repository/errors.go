package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/podium/pkg/metrics"
)

// Sentinel kinds for leaderboard store errors.
var (
	ErrNotFound     = errors.New("player has no entry")
	ErrInvalidLimit = errors.New("invalid query limit")
	ErrUnavailable  = errors.New("store unavailable")
)

// storeErr maps backend failures onto the store error taxonomy. Deadline and
// cancellation failures surface as unavailability, never as "no data".
func storeErr(backend, op string, err error) error {
	metrics.RecordStoreError(backend, op)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
