package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

// Stats is the per-user count of approved traffic.
type Stats struct {
	Sent     int
	Received int
}

type Repository interface {
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)

	// TransitionStatus performs the atomic check-and-set from -> to.
	// It reports false when the row was not in the expected status.
	TransitionStatus(ctx context.Context, id int64, from, to models.MessageStatus) (bool, error)

	SetPublishedRef(ctx context.Context, id int64, ref string) error

	// MarkRead sets the read flag once; it reports false when the message
	// was already read (idempotent no-op).
	MarkRead(ctx context.Context, id int64, at time.Time) (bool, error)

	ListInbox(ctx context.Context, receiverID int64, limit, offset int) ([]*models.Message, error)
	ListUrgentPending(ctx context.Context) ([]*models.Message, error)
	CountByStatus(ctx context.Context, status models.MessageStatus) (int, error)
	CountSentSince(ctx context.Context, senderID int64, since time.Time) (int, error)
	UserStats(ctx context.Context, userID int64) (*Stats, error)
}
