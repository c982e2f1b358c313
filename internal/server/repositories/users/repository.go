package users

import (
	"context"

	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByCode(ctx context.Context, code string) (*models.User, error)
	UpdateDisplayName(ctx context.Context, id int64, displayName string) error
	CodeExists(ctx context.Context, code string) (bool, error)
}
