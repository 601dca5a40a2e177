package repository

import (
	"context"
	"time"

	"telegram-chat-gate/internal/domain/model"
)

// UserRecordRepository stores per-user accounting records keyed by the
// platform-assigned user id.
type UserRecordRepository interface {
	Find(ctx context.Context, userID int64) (*model.UserRecord, error)
	Save(ctx context.Context, rec *model.UserRecord) error
	// PurgeExpiredPaid clears paid windows that ended at or before now and
	// returns the ids of the users whose access was cleared.
	PurgeExpiredPaid(ctx context.Context, now time.Time) ([]int64, error)
}
