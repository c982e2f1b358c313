package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Summary(ctx context.Context, dayStart, weekStart time.Time) (*Summary, error) {

	s := &Summary{}

	var err error
	if s.Total, err = r.count(ctx, `SELECT COUNT(*) FROM messages`); err != nil {
		return nil, err
	}
	if s.Today, err = r.count(ctx, `SELECT COUNT(*) FROM messages WHERE created_at >= $1`, dayStart); err != nil {
		return nil, err
	}
	if s.Week, err = r.count(ctx, `SELECT COUNT(*) FROM messages WHERE created_at >= $1`, weekStart); err != nil {
		return nil, err
	}
	if s.Pending, err = r.count(ctx, `SELECT COUNT(*) FROM messages WHERE status = 'pending'`); err != nil {
		return nil, err
	}
	if s.UrgentPending, err = r.count(ctx, `SELECT COUNT(*) FROM messages WHERE status = 'pending' AND is_urgent = TRUE`); err != nil {
		return nil, err
	}

	if s.Sentiments, err = r.SentimentStats(ctx); err != nil {
		return nil, err
	}

	query :=
		`SELECT EXTRACT(HOUR FROM created_at)::int AS hour, COUNT(*) AS cnt
		 FROM messages GROUP BY hour ORDER BY cnt DESC LIMIT 1
		 `
	var peak, cnt int
	err = r.db.QueryRowContext(ctx, query).Scan(&peak, &cnt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// no messages yet
	case err != nil:
		return nil, fmt.Errorf("db error: %w", err)
	default:
		s.PeakHour = &peak
	}

	return s, nil
}

func (r *PostgresRepository) HourlyActivity(ctx context.Context, since time.Time) ([24]int, error) {
	var result [24]int

	query :=
		`SELECT EXTRACT(HOUR FROM created_at)::int AS hour, COUNT(*) AS cnt
		 FROM messages WHERE created_at > $1
		 GROUP BY hour
		 `

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hour, cnt int
		if err := rows.Scan(&hour, &cnt); err != nil {
			return result, fmt.Errorf("db error: %w", err)
		}
		if hour >= 0 && hour < 24 {
			result[hour] = cnt
		}
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) DailyActivity(ctx context.Context, since time.Time) ([]DayCount, error) {
	query :=
		`SELECT to_char(created_at, 'YYYY-MM-DD') AS day, COUNT(*) AS cnt
		 FROM messages WHERE created_at > $1
		 GROUP BY day ORDER BY day
		 `

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) WeekHourMatrix(ctx context.Context, since time.Time) ([7][24]int, error) {
	var result [7][24]int

	query :=
		`SELECT EXTRACT(DOW FROM created_at)::int AS dow,
		        EXTRACT(HOUR FROM created_at)::int AS hour,
		        COUNT(*) AS cnt
		 FROM messages WHERE created_at > $1
		 GROUP BY dow, hour
		 `

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dow, hour, cnt int
		if err := rows.Scan(&dow, &hour, &cnt); err != nil {
			return result, fmt.Errorf("db error: %w", err)
		}
		// Postgres DOW has Sunday = 0; shift to Monday = 0.
		dow = (dow + 6) % 7
		if dow >= 0 && dow < 7 && hour >= 0 && hour < 24 {
			result[dow][hour] = cnt
		}
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) SentimentStats(ctx context.Context) (map[string]int, error) {
	query :=
		`SELECT sentiment, COUNT(*) AS cnt
		 FROM messages WHERE sentiment IS NOT NULL
		 GROUP BY sentiment
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var sentiment string
		var cnt int
		if err := rows.Scan(&sentiment, &cnt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[sentiment] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
