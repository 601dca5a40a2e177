package adapter

import (
	"context"
	"time"
)

// Locker serializes read-modify-write cycles on a user record. Keys are
// derived from the user id; the token returned by TryLock must be presented
// to Unlock so a stale holder cannot release someone else's lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
