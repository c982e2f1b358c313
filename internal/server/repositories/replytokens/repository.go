package replytokens

import (
	"context"

	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

type Repository interface {
	// Insert stores a freshly issued token. It returns common.ErrAlreadyExists
	// when the hash is already taken so the caller can re-derive with a new salt.
	Insert(ctx context.Context, token *models.ReplyToken) error
	Find(ctx context.Context, hash string) (*models.ReplyToken, error)
	// FindByPair returns the most recently issued token for the pair, if any.
	FindByPair(ctx context.Context, senderID, receiverID int64) (*models.ReplyToken, error)
}
