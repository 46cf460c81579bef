package repository

import (
	"context"
	"fmt"
	"time"

	lockserrors "slotkeeper/internal/locks/errors"
	"slotkeeper/pkg/config"
	mongotx "slotkeeper/pkg/db/mongo"
	"slotkeeper/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slot_locks"
)

// lockDocument is one bucket of a lock. The unique _id is the exclusion
// constraint; a TTL index on expires_at removes leftovers.
type lockDocument struct {
	ID         string    `bson:"_id"`
	LockID     string    `bson:"lock_id"`
	TenantID   string    `bson:"tenant_id"`
	ResourceID string    `bson:"resource_id,omitempty"`
	StartAt    time.Time `bson:"start_at"`
	EndAt      time.Time `bson:"end_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

type mongoLockRepository struct {
	cfg        *config.Config
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		cfg:        cfg,
		client:     cfg.Client.Mongo.Client,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoLockRepository) Acquire(ctx context.Context, lock *model.SlotLock, keys []string) error {
	if len(keys) == 0 {
		return lockserrors.ErrNoKeys
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	// The TTL monitor runs about once a minute, so expired buckets are
	// reclaimed here before they can block the insert.
	_, err := r.collection.DeleteMany(ctx, bson.M{
		"_id":        bson.M{"$in": keys},
		"expires_at": bson.M{"$lte": lock.CreatedAt},
	})
	if err != nil {
		return fmt.Errorf("failed to reclaim expired locks: %w", err)
	}

	_, err = r.collection.InsertMany(ctx, lockDocuments(lock, keys), options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}

	// Undo the buckets inserted before the failure.
	if cleanupErr := r.deleteByLockID(context.WithoutCancel(ctx), lock.LockID); cleanupErr != nil {
		r.cfg.Log.Error("Failed to clean up partial lock",
			"lock_id", lock.LockID,
			"error", cleanupErr,
		)
	}

	if mongo.IsDuplicateKeyError(err) {
		return lockserrors.ErrConflict
	}
	return fmt.Errorf("failed to insert lock: %w", err)
}

func (r *mongoLockRepository) Release(ctx context.Context, lockID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := r.deleteByLockID(ctx, lockID); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (r *mongoLockRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *mongoLockRepository) deleteByLockID(ctx context.Context, lockID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"lock_id": lockID})
	return err
}

func lockDocuments(lock *model.SlotLock, keys []string) []any {
	docs := make([]any, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, lockDocument{
			ID:         key,
			LockID:     lock.LockID,
			TenantID:   lock.TenantID,
			ResourceID: lock.ResourceID,
			StartAt:    lock.StartAt,
			EndAt:      lock.EndAt,
			ExpiresAt:  lock.ExpiresAt,
			CreatedAt:  lock.CreatedAt,
		})
	}
	return docs
}
