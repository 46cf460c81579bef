package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	lockserrors "slotkeeper/internal/locks/errors"
	"slotkeeper/internal/locks/repository"
	"slotkeeper/pkg/clock"
	"slotkeeper/pkg/config"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/model"

	"github.com/google/uuid"
)

// maxLockKeys bounds the number of store keys a single lock may claim. At
// one-minute buckets it covers a 24h tenant-wide lock over 12 resources.
const maxLockKeys = 20000

// LockRequest describes the range to lock. An empty ResourceID locks the
// whole tenant; TenantResources then lists the resources it must also
// exclude, so per-resource locks on any of them conflict with it.
type LockRequest struct {
	TenantID        string
	ResourceID      string
	Start           time.Time
	End             time.Time
	LockDuration    time.Duration
	TenantResources []string
}

type LockService interface {
	Acquire(ctx context.Context, req LockRequest) (*model.SlotLock, error)
	Release(ctx context.Context, lockID string) error
}

type lockService struct {
	repo  repository.LockRepository
	cfg   *config.Config
	clock clock.Clock
}

func NewLockService(repo repository.LockRepository, cfg *config.Config, clk clock.Clock) LockService {
	return &lockService{
		repo:  repo,
		cfg:   cfg,
		clock: clk,
	}
}

// Acquire claims the range or fails immediately with a Conflict. It never
// waits for a competing lock.
func (s *lockService) Acquire(ctx context.Context, req LockRequest) (*model.SlotLock, error) {
	if req.TenantID == "" {
		return nil, apperrors.InvalidInput("tenant_id is required")
	}
	if req.Start.IsZero() || !req.Start.Before(req.End) {
		return nil, apperrors.InvalidInput("lock start must be before end")
	}

	ttl := req.LockDuration
	if ttl <= 0 {
		ttl = s.cfg.LockTTL
	}

	keys := BucketKeys(req, s.cfg.LockGranularity)
	if len(keys) > maxLockKeys {
		return nil, apperrors.Validation("Time range is too long to lock", map[string]any{
			"keys": len(keys),
			"max":  maxLockKeys,
		})
	}

	now := s.clock.Now().UTC()
	lock := &model.SlotLock{
		LockID:     uuid.New().String(),
		TenantID:   req.TenantID,
		ResourceID: req.ResourceID,
		StartAt:    req.Start.UTC(),
		EndAt:      req.End.UTC(),
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	if err := s.repo.Acquire(ctx, lock, keys); err != nil {
		if errors.Is(err, lockserrors.ErrConflict) {
			s.cfg.Log.Info("Slot lock rejected",
				"tenant_id", req.TenantID,
				"resource_id", lock.ResourceKey(),
				"start_at", lock.StartAt,
				"end_at", lock.EndAt,
			)
			return nil, apperrors.Conflict("slot no longer available")
		}
		s.cfg.Log.Error("Failed to acquire slot lock",
			"tenant_id", req.TenantID,
			"resource_id", lock.ResourceKey(),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to acquire slot lock", err)
	}

	s.cfg.Log.Debug("Slot lock acquired",
		"lock_id", lock.LockID,
		"tenant_id", lock.TenantID,
		"resource_id", lock.ResourceKey(),
		"keys", len(keys),
	)
	return lock, nil
}

// Release is idempotent: releasing an unknown or expired lock succeeds.
func (s *lockService) Release(ctx context.Context, lockID string) error {
	if lockID == "" {
		return nil
	}
	if err := s.repo.Release(ctx, lockID); err != nil {
		s.cfg.Log.Error("Failed to release slot lock", "lock_id", lockID, "error", err)
		return apperrors.Internal("Failed to release slot lock", err)
	}
	return nil
}

// BucketKeys discretises the request into granularity-aligned buckets,
// one key per resource and bucket. Overlapping ranges on a shared resource
// key always share a bucket; aligned back-to-back ranges never do.
func BucketKeys(req LockRequest, granularity time.Duration) []string {
	if granularity <= 0 {
		granularity = config.DefaultLockGranularity
	}

	resources := []string{req.ResourceID}
	if req.ResourceID == "" {
		resources = append([]string{model.TenantWideResource}, req.TenantResources...)
	}

	var buckets []int64
	for b := req.Start.UTC().Truncate(granularity); b.Before(req.End); b = b.Add(granularity) {
		buckets = append(buckets, b.Unix())
	}

	keys := make([]string, 0, len(resources)*len(buckets))
	for _, resource := range resources {
		for _, bucket := range buckets {
			keys = append(keys, fmt.Sprintf("%s|%s|%d", req.TenantID, resource, bucket))
		}
	}
	return keys
}
