package usecase

import (
	"context"
	"os"
	"sync"
	"time"

	"telegram-chat-gate/internal/domain"
	"telegram-chat-gate/internal/domain/model"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return &l
}

// memRecordRepo is a small in-memory implementation used by unit tests.
type memRecordRepo struct {
	mu      sync.RWMutex
	store   map[int64]*model.UserRecord
	saveErr error // used by tests to simulate save failures
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{store: make(map[int64]*model.UserRecord)}
}

func (m *memRecordRepo) Find(ctx context.Context, userID int64) (*model.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRecordRepo) Save(ctx context.Context, rec *model.UserRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.store[rec.UserID] = &cp
	return nil
}

func (m *memRecordRepo) PurgeExpiredPaid(ctx context.Context, now time.Time) ([]int64, error) {
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

// recordingSink captures appended audit rows for assertions.
type recordingSink struct {
	mu        sync.Mutex
	rows      []model.AuditRow
	appendErr error
}

func (s *recordingSink) Append(ctx context.Context, row model.AuditRow) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

func (s *recordingSink) Rows() []model.AuditRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// noopLocker satisfies the Locker port for single-goroutine tests.
type noopLocker struct{}

func (noopLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "test-token", nil
}

func (noopLocker) Unlock(ctx context.Context, key, token string) error { return nil }
