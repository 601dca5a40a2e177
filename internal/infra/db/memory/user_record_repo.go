package memory

import (
	"context"
	"sync"
	"time"

	"telegram-chat-gate/internal/domain"
	"telegram-chat-gate/internal/domain/model"
	"telegram-chat-gate/internal/domain/ports/repository"
)

var _ repository.UserRecordRepository = (*UserRecordRepo)(nil)

// UserRecordRepo holds records in a process-local map. Dev fallback when no
// database is configured; state does not survive a restart.
type UserRecordRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.UserRecord
}

func NewUserRecordRepo() *UserRecordRepo {
	return &UserRecordRepo{store: make(map[int64]*model.UserRecord)}
}

func (m *UserRecordRepo) Find(ctx context.Context, userID int64) (*model.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *UserRecordRepo) Save(ctx context.Context, rec *model.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.store[rec.UserID] = &cp
	return nil
}

func (m *UserRecordRepo) PurgeExpiredPaid(ctx context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, r := range m.store {
		if r.PaidUntil != nil && !now.Before(*r.PaidUntil) {
			r.PaidUntil = nil
			ids = append(ids, r.UserID)
		}
	}
	return ids, nil
}
