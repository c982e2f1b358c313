package messages

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

const messageColumns = `id, sender_id, receiver_id, content, media_kind, media_ref, caption,
	 status, is_read, read_at, reply_to_id, published_ref, sentiment, is_urgent, created_at`

func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {

	var kind, ref, caption sql.NullString
	if msg.Media != nil {
		kind = sql.NullString{String: string(msg.Media.Kind), Valid: true}
		ref = sql.NullString{String: msg.Media.FileRef, Valid: true}
		caption = sql.NullString{String: msg.Media.Caption, Valid: true}
	}

	var sentiment sql.NullString
	if msg.Sentiment != "" {
		sentiment = sql.NullString{String: msg.Sentiment, Valid: true}
	}

	query :=
		`INSERT INTO messages (sender_id, receiver_id, content, media_kind, media_ref, caption, status, reply_to_id, sentiment, is_urgent)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		msg.SenderID, msg.ReceiverID, msg.Content, kind, ref, caption,
		msg.Status, msg.ReplyToID, sentiment, msg.Urgent).Scan(&msg.ID, &msg.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return msg, nil
}

func scanMessage(row interface{ Scan(dest ...any) error }) (*models.Message, error) {
	msg := &models.Message{}
	var kind, ref, caption, publishedRef, sentiment sql.NullString
	var readAt sql.NullTime
	var replyToID sql.NullInt64

	err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &kind, &ref, &caption,
		&msg.Status, &msg.IsRead, &readAt, &replyToID, &publishedRef, &sentiment, &msg.Urgent, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	if kind.Valid {
		msg.Media = &models.MediaRef{
			Kind:    models.MediaKind(kind.String),
			FileRef: ref.String,
			Caption: caption.String,
		}
	}
	if readAt.Valid {
		t := readAt.Time
		msg.ReadAt = &t
	}
	if replyToID.Valid {
		id := replyToID.Int64
		msg.ReplyToID = &id
	}
	msg.PublishedRef = publishedRef.String
	msg.Sentiment = sentiment.String

	return msg, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		 WHERE id = $1
		 `

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return msg, nil
}

// TransitionStatus is the optimistic check-and-set backing the moderation
// decision: only one of two racing calls can match the WHERE clause.
func (r *PostgresRepository) TransitionStatus(ctx context.Context, id int64, from, to models.MessageStatus) (bool, error) {
	query :=
		`UPDATE messages SET status = $1
		 WHERE id = $2 AND status = $3
		 `

	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) SetPublishedRef(ctx context.Context, id int64, ref string) error {
	query :=
		`UPDATE messages SET published_ref = $1
		 WHERE id = $2 AND published_ref IS NULL
		 `

	if _, err := r.db.ExecContext(ctx, query, ref, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id int64, at time.Time) (bool, error) {
	query :=
		`UPDATE messages SET is_read = TRUE, read_at = $1
		 WHERE id = $2 AND is_read = FALSE
		 `

	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ListInbox(ctx context.Context, receiverID int64, limit, offset int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		 WHERE receiver_id = $1 AND status = 'approved'
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3
		 `
	return r.queryMany(ctx, query, receiverID, limit, offset)
}

func (r *PostgresRepository) ListUrgentPending(ctx context.Context) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		 WHERE is_urgent = TRUE AND status = 'pending'
		 ORDER BY created_at DESC
		 `
	return r.queryMany(ctx, query)
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, status models.MessageStatus) (int, error) {
	query :=
		`SELECT COUNT(*) FROM messages
		 WHERE status = $1
		 `

	var count int
	if err := r.db.QueryRowContext(ctx, query, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) CountSentSince(ctx context.Context, senderID int64, since time.Time) (int, error) {
	query :=
		`SELECT COUNT(*) FROM messages
		 WHERE sender_id = $1 AND created_at >= $2
		 `

	var count int
	if err := r.db.QueryRowContext(ctx, query, senderID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) UserStats(ctx context.Context, userID int64) (*Stats, error) {
	query :=
		`SELECT
		   COUNT(*) FILTER (WHERE sender_id = $1) AS sent,
		   COUNT(*) FILTER (WHERE receiver_id = $1) AS received
		 FROM messages
		 WHERE status = 'approved' AND (sender_id = $1 OR receiver_id = $1)
		 `

	stats := &Stats{}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&stats.Sent, &stats.Received); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return stats, nil
}
