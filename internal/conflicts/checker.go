// Package conflicts answers whether a time range collides with existing
// reservations. It reads the reservation store directly and never the
// availability cache.
package conflicts

import (
	"context"
	"time"

	"slotkeeper/internal/bookings/repository"
	"slotkeeper/pkg/config"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"
)

// ConflictQuery checks [Start, End) of a tenant. With ResourceIDs set only
// those resources and tenant-wide reservations are considered; without,
// every reservation of the tenant is.
type ConflictQuery struct {
	TenantID    string
	Start       time.Time
	End         time.Time
	ResourceIDs []string
}

type ConflictResult struct {
	HasConflict bool
	Conflicts   []model.Reservation
}

type Checker interface {
	Check(ctx context.Context, q ConflictQuery) (*ConflictResult, error)
}

type checker struct {
	reservations repository.ReservationRepository
	cfg          *config.Config
}

func NewChecker(reservations repository.ReservationRepository, cfg *config.Config) Checker {
	return &checker{
		reservations: reservations,
		cfg:          cfg,
	}
}

func (c *checker) Check(ctx context.Context, q ConflictQuery) (*ConflictResult, error) {
	window, err := interval.New(q.Start, q.End)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	found, err := c.reservations.FindOverlapping(ctx, repository.OverlapFilter{
		TenantID:    q.TenantID,
		ResourceIDs: q.ResourceIDs,
		Window:      window,
	})
	if err != nil {
		c.cfg.Log.Error("Failed to check conflicts",
			"tenant_id", q.TenantID,
			"resource_ids", q.ResourceIDs,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to check conflicts", err)
	}

	result := &ConflictResult{}
	for _, r := range found {
		// The store query is the first filter; status and overlap are
		// re-checked here against the exact half-open rule.
		if !r.Occupies() || !interval.Overlaps(r.Interval(), window) {
			continue
		}
		result.Conflicts = append(result.Conflicts, *r)
	}
	result.HasConflict = len(result.Conflicts) > 0
	return result, nil
}
