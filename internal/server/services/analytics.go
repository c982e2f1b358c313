package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/analytics"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/repomanager"
)

// AnalyticsService serves the operator reporting views. All aggregation
// happens in SQL; this layer only anchors the time windows.
type AnalyticsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAnalyticsService(db *sql.DB, m repomanager.RepositoryManager) *AnalyticsService {
	return &AnalyticsService{db: db, repomanager: m}
}

// Summary returns the aggregate snapshot: totals, today/week traffic,
// moderation queue depth, sentiment distribution and the peak activity hour.
func (s *AnalyticsService) Summary(ctx context.Context) (*analytics.Summary, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)
	return s.repomanager.Analytics(s.db).Summary(ctx, dayStart, weekStart)
}

// Hourly returns message counts per hour of day over the trailing days.
func (s *AnalyticsService) Hourly(ctx context.Context, days int) ([24]int, error) {
	return s.repomanager.Analytics(s.db).HourlyActivity(ctx, time.Now().AddDate(0, 0, -days))
}

// Daily returns message counts per calendar day over the trailing days.
func (s *AnalyticsService) Daily(ctx context.Context, days int) ([]analytics.DayCount, error) {
	return s.repomanager.Analytics(s.db).DailyActivity(ctx, time.Now().AddDate(0, 0, -days))
}

// Heatmap returns the day-of-week x hour activity matrix, Monday first.
func (s *AnalyticsService) Heatmap(ctx context.Context, days int) ([7][24]int, error) {
	return s.repomanager.Analytics(s.db).WeekHourMatrix(ctx, time.Now().AddDate(0, 0, -days))
}

// Sentiments returns the all-time sentiment distribution.
func (s *AnalyticsService) Sentiments(ctx context.Context) (map[string]int, error) {
	return s.repomanager.Analytics(s.db).SentimentStats(ctx)
}
