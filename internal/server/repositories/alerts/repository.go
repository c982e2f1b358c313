package alerts

import (
	"context"

	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, alertType string, userID *int64, details string) (int64, error)
	ListUnresolved(ctx context.Context) ([]*models.Alert, error)
	Resolve(ctx context.Context, id int64) error
}
