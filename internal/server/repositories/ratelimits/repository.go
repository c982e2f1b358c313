package ratelimits

import (
	"context"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, userID int64) (*models.RateLimitState, error)

	// InsertFresh creates the row for a first-time sender with count = 1.
	InsertFresh(ctx context.Context, userID int64, windowStart time.Time) error

	// ResetWindow restarts the window with count = 1 and clears any block.
	ResetWindow(ctx context.Context, userID int64, windowStart time.Time) error

	// Increment bumps the persisted counter and returns the new value.
	Increment(ctx context.Context, userID int64) (int, error)

	// Block upserts the row with is_blocked set until the given time.
	Block(ctx context.Context, userID int64, until time.Time) error
	Unblock(ctx context.Context, userID int64) error
}
