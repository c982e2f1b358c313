package modlog

import (
	"context"

	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.ModLogEntry) error
	List(ctx context.Context, limit int) ([]*models.ModLogEntry, error)
}
