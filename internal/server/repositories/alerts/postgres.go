package alerts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/anonrelay/internal/dbx"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, alertType string, userID *int64, details string) (int64, error) {

	query :=
		`INSERT INTO alerts (alert_type, user_id, details)
         VALUES ($1, $2, $3)
		 RETURNING id
		 `

	var id int64
	if err := r.db.QueryRowContext(ctx, query, alertType, userID, details).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) ListUnresolved(ctx context.Context) ([]*models.Alert, error) {
	query :=
		`SELECT id, alert_type, user_id, details, is_resolved, created_at FROM alerts
		 WHERE is_resolved = FALSE
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Alert
	for rows.Next() {
		alert := &models.Alert{}
		var userID sql.NullInt64
		if err := rows.Scan(&alert.ID, &alert.Type, &userID, &alert.Details, &alert.Resolved, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			alert.UserID = &id
		}
		result = append(result, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Resolve(ctx context.Context, id int64) error {
	query :=
		`UPDATE alerts SET is_resolved = TRUE
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
