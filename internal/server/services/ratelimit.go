package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/server/config"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/repomanager"
)

const (
	autoBlockDuration = 24 * time.Hour

	// Distance below the spam threshold at which the near-spam alert fires.
	nearSpamMargin = 5
)

// RateLimitService applies the per-sender windowed counter with block
// escalation. All state lives in the rate_limits table; a per-user mutex
// serializes the read-modify-write so concurrent sends from one user cannot
// double-count.
type RateLimitService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audit       *AuditService

	maxMessages   int
	window        time.Duration
	spamThreshold int

	locks sync.Map // userID -> *sync.Mutex
}

func NewRateLimitService(db *sql.DB, m repomanager.RepositoryManager, audit *AuditService, cfg *config.Config) *RateLimitService {
	return &RateLimitService{
		db:            db,
		repomanager:   m,
		audit:         audit,
		maxMessages:   cfg.MaxMessages,
		window:        cfg.RateLimitWindow,
		spamThreshold: cfg.SpamThreshold,
	}
}

func (s *RateLimitService) lockFor(userID int64) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Check records one send attempt for the user and returns the count within
// the current window when the send is allowed. Denials come back as typed
// errors: *common.BlockedError while a block is active, *common.RateLimitedError
// for the soft deny, *common.AutoBlockedError when the attempt tripped the
// spam threshold.
func (s *RateLimitService) Check(ctx context.Context, userID int64) (int, error) {
	mu := s.lockFor(userID)
	mu.Lock()
	count, alert, err := s.check(ctx, userID)
	mu.Unlock()

	// Outbound alerting happens outside the per-user lock.
	if alert != nil {
		alert()
	}
	return count, err
}

func (s *RateLimitService) check(ctx context.Context, userID int64) (int, func(), error) {
	repo := s.repomanager.RateLimits(s.db)
	now := time.Now()

	state, err := repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			if err := repo.InsertFresh(ctx, userID, now); err != nil {
				return 0, nil, fmt.Errorf("error starting rate limit window: %v", err)
			}
			return 1, nil, nil
		}
		return 0, nil, fmt.Errorf("error loading rate limit state: %v", err)
	}

	if state.IsBlocked {
		if state.BlockedUntil != nil && now.Before(*state.BlockedUntil) {
			return 0, nil, &common.BlockedError{Until: *state.BlockedUntil}
		}
		// Block expired: clean slate.
		if err := repo.ResetWindow(ctx, userID, now); err != nil {
			return 0, nil, fmt.Errorf("error resetting rate limit window: %v", err)
		}
		return 1, nil, nil
	}

	if now.Sub(state.WindowStart) >= s.window {
		if err := repo.ResetWindow(ctx, userID, now); err != nil {
			return 0, nil, fmt.Errorf("error resetting rate limit window: %v", err)
		}
		return 1, nil, nil
	}

	tentative := state.MessageCount + 1
	if tentative > s.maxMessages {
		if tentative >= s.spamThreshold {
			until := now.Add(autoBlockDuration)
			if err := repo.Block(ctx, userID, until); err != nil {
				return 0, nil, fmt.Errorf("error auto-blocking user: %v", err)
			}
			alert := func() {
				s.audit.Alert(ctx, models.AlertAutoBlock, &userID,
					fmt.Sprintf("auto-blocked after %d messages in one window", tentative))
				s.audit.NotifyAdmin(ctx,
					fmt.Sprintf("user %d auto-blocked for 24h after %d messages", userID, tentative))
			}
			return tentative, alert, &common.AutoBlockedError{Count: tentative, Until: until}
		}

		// Keep counting denied attempts so repeat offenders can reach the
		// spam threshold.
		if _, err := repo.Increment(ctx, userID); err != nil {
			return 0, nil, fmt.Errorf("error incrementing rate limit counter: %v", err)
		}
		var alert func()
		if tentative >= s.spamThreshold-nearSpamMargin {
			alert = func() {
				s.audit.Alert(ctx, models.AlertSpamAttempt, &userID,
					fmt.Sprintf("%d messages in one window, limit %d", tentative, s.maxMessages))
			}
		}
		return tentative, alert, &common.RateLimitedError{Count: tentative, Limit: s.maxMessages}
	}

	count, err := repo.Increment(ctx, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("error incrementing rate limit counter: %v", err)
	}
	return count, nil, nil
}
