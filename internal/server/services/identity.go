// Package services contains the relay's business logic: identity resolution,
// rate limiting with block escalation, reply-token issuance, the message
// state machine, audit logging and analytics views.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/repomanager"
)

const (
	publicCodeLength = 8
	codeAttempts     = 5
)

// IdentityService resolves platform identities to internal user records and
// owns the shareable public codes.
type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager) *IdentityService {
	return &IdentityService{db: db, repomanager: m}
}

// GetOrCreate returns the user for externalID, creating the record with a
// fresh collision-checked public code on first contact. A changed display
// name is refreshed on the way through.
func (s *IdentityService) GetOrCreate(ctx context.Context, externalID, displayName string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByExternalID(ctx, externalID)
	if err == nil {
		if displayName != "" && user.DisplayName != displayName {
			if err := repo.UpdateDisplayName(ctx, user.ID, displayName); err != nil {
				return nil, fmt.Errorf("error updating display name: %v", err)
			}
			user.DisplayName = displayName
		}
		return user, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error loading user: %v", err)
	}

	code, err := s.newPublicCode(ctx)
	if err != nil {
		return nil, err
	}

	user, err = repo.Create(ctx, &models.User{
		ExternalID:  externalID,
		Code:        code,
		DisplayName: displayName,
		Active:      true,
	})
	if err != nil {
		// Lost a race with a concurrent first contact for the same identity.
		if errors.Is(err, common.ErrAlreadyExists) {
			return repo.GetByExternalID(ctx, externalID)
		}
		return nil, fmt.Errorf("error creating user: %v", err)
	}
	return user, nil
}

// newPublicCode draws random codes until one is free of collisions.
func (s *IdentityService) newPublicCode(ctx context.Context) (string, error) {
	repo := s.repomanager.Users(s.db)

	for i := 0; i < codeAttempts; i++ {
		code, err := common.MakeRandCode(publicCodeLength)
		if err != nil {
			return "", fmt.Errorf("error generating code: %v", err)
		}
		exists, err := repo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("error checking code: %v", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique public code after %d attempts", codeAttempts)
}

// LookupByCode resolves a shareable public code to its owner.
func (s *IdentityService) LookupByCode(ctx context.Context, code string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByCode(ctx, code)
}

func (s *IdentityService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}
