package testutil

import (
	"context"
	"sync"
	"time"

	lockserrors "slotkeeper/internal/locks/errors"
	"slotkeeper/pkg/model"
)

type heldKey struct {
	lockID    string
	expiresAt time.Time
}

// LockStore is an in-memory LockRepository with the same all-or-nothing
// semantics as the real stores.
type LockStore struct {
	mu   sync.Mutex
	keys map[string]heldKey

	AcquireErr error
	ReleaseErr error
	Released   []string
}

func NewLockStore() *LockStore {
	return &LockStore{keys: make(map[string]heldKey)}
}

func (s *LockStore) Acquire(ctx context.Context, lock *model.SlotLock, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AcquireErr != nil {
		return s.AcquireErr
	}
	if len(keys) == 0 {
		return lockserrors.ErrNoKeys
	}

	for _, k := range keys {
		if held, ok := s.keys[k]; ok && held.expiresAt.After(lock.CreatedAt) {
			return lockserrors.ErrConflict
		}
	}
	for _, k := range keys {
		s.keys[k] = heldKey{lockID: lock.LockID, expiresAt: lock.ExpiresAt}
	}
	return nil
}

func (s *LockStore) Release(ctx context.Context, lockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReleaseErr != nil {
		return s.ReleaseErr
	}
	for k, held := range s.keys {
		if held.lockID == lockID {
			delete(s.keys, k)
		}
	}
	s.Released = append(s.Released, lockID)
	return nil
}

func (s *LockStore) Ping(ctx context.Context) error {
	return nil
}

// Held returns the number of keys currently stored, expired or not.
func (s *LockStore) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func (s *LockStore) ReleasedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Released))
	copy(out, s.Released)
	return out
}
