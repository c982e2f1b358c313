package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/logging"
	"github.com/dmitrijs2005/anonrelay/internal/server/delivery"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/repomanager"
)

// AuditService records operator alerts and the moderation audit trail, and
// pushes operator notifications. Alert and mod-log writes are best effort:
// they must never fail the operation that raised them.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    delivery.Notifier
	logger      logging.Logger
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, n delivery.Notifier, l logging.Logger) *AuditService {
	return &AuditService{
		db:          db,
		repomanager: m,
		notifier:    n,
		logger:      l.With("module", "audit"),
	}
}

// Alert stores an operator alert. Errors are logged and swallowed.
func (s *AuditService) Alert(ctx context.Context, alertType string, userID *int64, details string) {
	if _, err := s.repomanager.Alerts(s.db).Create(ctx, alertType, userID, details); err != nil {
		s.logger.Error(ctx, "error recording alert", "type", alertType, "error", err)
		return
	}
	alertsRaised.WithLabelValues(alertType).Inc()
}

// NotifyAdmin pushes a short operator notification. Errors are logged and
// swallowed.
func (s *AuditService) NotifyAdmin(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Warn(ctx, "error notifying admin", "error", err)
	}
}

// LogModAction appends a moderation audit record. Errors are logged and
// swallowed.
func (s *AuditService) LogModAction(ctx context.Context, entry *models.ModLogEntry) {
	if err := s.repomanager.ModLog(s.db).Create(ctx, entry); err != nil {
		s.logger.Error(ctx, "error recording mod action", "action", entry.Action, "error", err)
	}
}

func (s *AuditService) ListAlerts(ctx context.Context) ([]*models.Alert, error) {
	return s.repomanager.Alerts(s.db).ListUnresolved(ctx)
}

func (s *AuditService) ResolveAlert(ctx context.Context, id int64) error {
	return s.repomanager.Alerts(s.db).Resolve(ctx, id)
}

func (s *AuditService) ModLog(ctx context.Context, limit int) ([]*models.ModLogEntry, error) {
	return s.repomanager.ModLog(s.db).List(ctx, limit)
}

// BlockUser blocks a sender for the given duration on a moderator's order
// and records the action.
func (s *AuditService) BlockUser(ctx context.Context, moderatorID, userID int64, d time.Duration) error {
	until := time.Now().Add(d)
	if err := s.repomanager.RateLimits(s.db).Block(ctx, userID, until); err != nil {
		return fmt.Errorf("error blocking user: %v", err)
	}
	s.LogModAction(ctx, &models.ModLogEntry{
		ModeratorID:  moderatorID,
		Action:       models.ModActionBlock,
		TargetUserID: &userID,
		Details:      fmt.Sprintf("until %s", until.Format(time.RFC3339)),
	})
	return nil
}

// UnblockUser lifts a block and records the action.
func (s *AuditService) UnblockUser(ctx context.Context, moderatorID, userID int64) error {
	if err := s.repomanager.RateLimits(s.db).Unblock(ctx, userID); err != nil {
		return fmt.Errorf("error unblocking user: %v", err)
	}
	s.LogModAction(ctx, &models.ModLogEntry{
		ModeratorID:  moderatorID,
		Action:       models.ModActionUnblock,
		TargetUserID: &userID,
	})
	return nil
}
