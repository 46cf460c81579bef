package repository

import (
	"context"
	"fmt"

	lockserrors "slotkeeper/internal/locks/errors"
	"slotkeeper/pkg/config"
	"slotkeeper/pkg/model"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "slotlock:"
	redisIndexPrefix = "slotlock:id:"
)

// KEYS[1] is the lock's index list, KEYS[2..] the buckets.
// ARGV[1] is the lock id, ARGV[2] the TTL in milliseconds.
var acquireScript = redis.NewScript(`
for i = 2, #KEYS do
	if redis.call('EXISTS', KEYS[i]) == 1 then
		return 0
	end
end
for i = 2, #KEYS do
	redis.call('SET', KEYS[i], ARGV[1], 'PX', ARGV[2])
	redis.call('RPUSH', KEYS[1], KEYS[i])
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// Deletes only buckets still owned by ARGV[1]; an expired and re-acquired
// bucket belongs to someone else.
var releaseScript = redis.NewScript(`
local keys = redis.call('LRANGE', KEYS[1], 0, -1)
local released = 0
for _, key in ipairs(keys) do
	if redis.call('GET', key) == ARGV[1] then
		redis.call('DEL', key)
		released = released + 1
	end
end
redis.call('DEL', KEYS[1])
return released
`)

type redisClient interface {
	redis.Scripter
	Ping(ctx context.Context) *redis.StatusCmd
}

type redisLockRepository struct {
	cfg    *config.Config
	client redisClient
}

func NewRedisLockRepository(cfg *config.Config) LockRepository {
	return newRedisLockRepository(cfg, cfg.Client.Redis.Client)
}

func newRedisLockRepository(cfg *config.Config, client redisClient) *redisLockRepository {
	return &redisLockRepository{cfg: cfg, client: client}
}

func (r *redisLockRepository) Acquire(ctx context.Context, lock *model.SlotLock, keys []string) error {
	if len(keys) == 0 {
		return lockserrors.ErrNoKeys
	}

	ttl := lock.ExpiresAt.Sub(lock.CreatedAt).Milliseconds()
	if ttl <= 0 {
		return fmt.Errorf("lock %s has no lifetime", lock.LockID)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	scriptKeys := make([]string, 0, len(keys)+1)
	scriptKeys = append(scriptKeys, redisIndexPrefix+lock.LockID)
	for _, key := range keys {
		scriptKeys = append(scriptKeys, redisKeyPrefix+key)
	}

	acquired, err := acquireScript.Run(ctx, r.client, scriptKeys, lock.LockID, ttl).Int()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired == 0 {
		return lockserrors.ErrConflict
	}
	return nil
}

func (r *redisLockRepository) Release(ctx context.Context, lockID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, r.client, []string{redisIndexPrefix + lockID}, lockID).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (r *redisLockRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
