package ratelimits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/dbx"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*models.RateLimitState, error) {
	query :=
		`SELECT user_id, message_count, window_start, is_blocked, blocked_until FROM rate_limits
		 WHERE user_id = $1
		 `

	state := &models.RateLimitState{}
	var blockedUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID, &state.MessageCount, &state.WindowStart, &state.IsBlocked, &blockedUntil)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if blockedUntil.Valid {
		t := blockedUntil.Time
		state.BlockedUntil = &t
	}

	return state, nil
}

func (r *PostgresRepository) InsertFresh(ctx context.Context, userID int64, windowStart time.Time) error {
	query :=
		`INSERT INTO rate_limits (user_id, message_count, window_start)
         VALUES ($1, 1, $2)
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, windowStart); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ResetWindow(ctx context.Context, userID int64, windowStart time.Time) error {
	query :=
		`UPDATE rate_limits SET message_count = 1, window_start = $1, is_blocked = FALSE, blocked_until = NULL
		 WHERE user_id = $2
		 `

	if _, err := r.db.ExecContext(ctx, query, windowStart, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Increment(ctx context.Context, userID int64) (int, error) {
	query :=
		`UPDATE rate_limits SET message_count = message_count + 1
		 WHERE user_id = $1
		 RETURNING message_count
		 `

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) Block(ctx context.Context, userID int64, until time.Time) error {
	query :=
		`INSERT INTO rate_limits (user_id, is_blocked, blocked_until)
         VALUES ($1, TRUE, $2)
		 ON CONFLICT (user_id) DO UPDATE SET is_blocked = TRUE, blocked_until = EXCLUDED.blocked_until
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, until); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Unblock(ctx context.Context, userID int64) error {
	query :=
		`UPDATE rate_limits SET is_blocked = FALSE, blocked_until = NULL
		 WHERE user_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
