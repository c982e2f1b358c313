package replytokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Insert(ctx context.Context, token *models.ReplyToken) error {

	query :=
		`INSERT INTO reply_tokens (hash, sender_id, receiver_id)
         VALUES ($1, $2, $3)
		 ON CONFLICT (hash) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, token.Hash, token.SenderID, token.ReceiverID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrAlreadyExists
	}

	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, hash string) (*models.ReplyToken, error) {
	query :=
		`SELECT id, hash, sender_id, receiver_id, created_at FROM reply_tokens
		 WHERE hash = $1
		 `

	token := &models.ReplyToken{}
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.Hash, &token.SenderID, &token.ReceiverID, &token.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *PostgresRepository) FindByPair(ctx context.Context, senderID, receiverID int64) (*models.ReplyToken, error) {
	query :=
		`SELECT id, hash, sender_id, receiver_id, created_at FROM reply_tokens
		 WHERE sender_id = $1 AND receiver_id = $2
		 ORDER BY created_at DESC LIMIT 1
		 `

	token := &models.ReplyToken{}
	err := r.db.QueryRowContext(ctx, query, senderID, receiverID).Scan(
		&token.ID, &token.Hash, &token.SenderID, &token.ReceiverID, &token.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}
