package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/repomanager"
)

const (
	tokenHashLength = 8
	tokenAttempts   = 5
)

// ReplyTokenService issues and resolves the opaque tokens that let a
// recipient answer an anonymous message without learning who sent it.
type ReplyTokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewReplyTokenService(db *sql.DB, m repomanager.RepositoryManager) *ReplyTokenService {
	return &ReplyTokenService{db: db, repomanager: m}
}

// Issue mints a token for the (sender, receiver) pair. The hash is a salted
// digest truncated for link friendliness; on a hash collision a new salt is
// drawn and the insert retried.
func (s *ReplyTokenService) Issue(ctx context.Context, senderID, receiverID int64) (string, error) {
	repo := s.repomanager.ReplyTokens(s.db)

	for i := 0; i < tokenAttempts; i++ {
		salt, err := common.MakeRandHexString(8)
		if err != nil {
			return "", fmt.Errorf("error generating salt: %v", err)
		}

		sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%s", senderID, receiverID, salt)))
		hash := hex.EncodeToString(sum[:])[:tokenHashLength]

		err = repo.Insert(ctx, &models.ReplyToken{
			Hash:       hash,
			SenderID:   senderID,
			ReceiverID: receiverID,
		})
		if err == nil {
			return hash, nil
		}
		if !errors.Is(err, common.ErrAlreadyExists) {
			return "", fmt.Errorf("error storing reply token: %v", err)
		}
	}
	return "", fmt.Errorf("could not allocate a unique reply token after %d attempts", tokenAttempts)
}

// Resolve maps a token hash back to its (sender, receiver) pair. Tokens do
// not expire and stay valid for repeated replies.
func (s *ReplyTokenService) Resolve(ctx context.Context, hash string) (*models.ReplyToken, error) {
	token, err := s.repomanager.ReplyTokens(s.db).Find(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error resolving reply token: %v", err)
	}
	return token, nil
}

// FindForPair returns the latest token issued for the pair, if any.
func (s *ReplyTokenService) FindForPair(ctx context.Context, senderID, receiverID int64) (*models.ReplyToken, error) {
	return s.repomanager.ReplyTokens(s.db).FindByPair(ctx, senderID, receiverID)
}
