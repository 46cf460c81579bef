//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	lockserrors "slotkeeper/internal/locks/errors"
	"slotkeeper/pkg/config"
	"slotkeeper/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationConfig(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv(config.EnvMongoURI) == "" {
		t.Skip("MONGO_URI not set")
	}
	cfg := config.FromEnv()
	cfg.MongoDatabaseName = "slotkeeper_test_" + uuid.NewString()[:8]
	cfg.Log = logger.Discard()
	cfg.SetMongo()
	t.Cleanup(func() {
		_ = cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName).Drop(context.Background())
		cfg.GracefulShutdown()
	})
	return cfg
}

func TestMongoLockRepository(t *testing.T) {
	cfg := newIntegrationConfig(t)
	repo := NewMongoLockRepository(cfg)
	ctx := context.Background()

	require.NoError(t, repo.Acquire(ctx, testLock("a"), []string{"k1", "k2"}))

	err := repo.Acquire(ctx, testLock("b"), []string{"k3", "k2"})
	assert.ErrorIs(t, err, lockserrors.ErrConflict)

	// k3 was inserted before the duplicate and must have been rolled back.
	require.NoError(t, repo.Acquire(ctx, testLock("c"), []string{"k3"}))

	require.NoError(t, repo.Release(ctx, "a"))
	require.NoError(t, repo.Acquire(ctx, testLock("d"), []string{"k1", "k2"}))

	expired := testLock("e")
	expired.CreatedAt = expired.CreatedAt.Add(3 * time.Minute)
	expired.ExpiresAt = expired.CreatedAt.Add(2 * time.Minute)
	assert.NoError(t, repo.Acquire(ctx, expired, []string{"k1"}), "expired buckets must be reclaimed")
}
