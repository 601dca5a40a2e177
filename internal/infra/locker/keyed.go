package locker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"telegram-chat-gate/internal/domain"
	"telegram-chat-gate/internal/domain/ports/adapter"
)

var _ adapter.Locker = (*Keyed)(nil)

// Keyed is the in-process Locker: one mutex per key with reference counting.
// Sufficient under single-process deployment; multi-process setups use the
// Redis locker instead.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu    sync.Mutex
	refs  int
	token string
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// TryLock blocks until the key's mutex is held. The ttl is ignored: an
// in-process holder cannot die without unlocking.
func (k *Keyed) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	token := uuid.NewString()
	k.mu.Lock()
	e.token = token
	k.mu.Unlock()
	return token, nil
}

func (k *Keyed) Unlock(ctx context.Context, key, token string) error {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return domain.ErrNotFound
	}
	if e.token != token {
		k.mu.Unlock()
		return domain.ErrInvalidArgument
	}
	e.token = ""
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
	return nil
}
