package analytics

import (
	"context"
	"time"
)

// Summary is the aggregate snapshot served to the reporting collaborator.
type Summary struct {
	Total         int
	Today         int
	Week          int
	Pending       int
	UrgentPending int
	Sentiments    map[string]int
	PeakHour      *int
}

// DayCount is one day of activity, day formatted as YYYY-MM-DD.
type DayCount struct {
	Day   string
	Count int
}

type Repository interface {
	Summary(ctx context.Context, dayStart, weekStart time.Time) (*Summary, error)
	HourlyActivity(ctx context.Context, since time.Time) ([24]int, error)
	DailyActivity(ctx context.Context, since time.Time) ([]DayCount, error)
	// WeekHourMatrix returns counts indexed by [dayOfWeek][hour], Monday = 0.
	WeekHourMatrix(ctx context.Context, since time.Time) ([7][24]int, error)
	SentimentStats(ctx context.Context) (map[string]int, error)
}
