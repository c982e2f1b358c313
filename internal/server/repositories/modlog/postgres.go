package modlog

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

func (r *PostgresRepository) Create(ctx context.Context, entry *models.ModLogEntry) error {

	query :=
		`INSERT INTO mod_log (moderator_id, action, message_id, target_user_id, details)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		entry.ModeratorID, entry.Action, entry.MessageID, entry.TargetUserID, entry.Details).
		Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.ModLogEntry, error) {
	query :=
		`SELECT id, moderator_id, action, message_id, target_user_id, details, created_at FROM mod_log
		 ORDER BY created_at DESC LIMIT $1
		 `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ModLogEntry
	for rows.Next() {
		entry := &models.ModLogEntry{}
		var messageID, targetUserID sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.ModeratorID, &entry.Action, &messageID, &targetUserID,
			&entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if messageID.Valid {
			id := messageID.Int64
			entry.MessageID = &id
		}
		if targetUserID.Valid {
			id := targetUserID.Int64
			entry.TargetUserID = &id
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
