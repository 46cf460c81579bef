package repository

import (
	"context"

	"slotkeeper/pkg/model"
)

// LockRepository stores a lock as a set of keys. Acquire is all-or-nothing:
// either every key is claimed for lock.LockID or none is and ErrConflict is
// returned. Keys held by a lock whose ExpiresAt is not after lock.CreatedAt
// count as free.
type LockRepository interface {
	Acquire(ctx context.Context, lock *model.SlotLock, keys []string) error
	Release(ctx context.Context, lockID string) error
	Ping(ctx context.Context) error
}
