package model

import (
	"time"

	"slotkeeper/pkg/interval"
)

// TenantWideResource is the lock key used when a lock spans every resource of a tenant.
const TenantWideResource = "*"

// SlotLock is a short-lived claim on a time range of one resource (or of the
// whole tenant when ResourceID is empty).
type SlotLock struct {
	LockID     string    `json:"lock_id" bson:"lock_id"`
	TenantID   string    `json:"tenant_id" bson:"tenant_id"`
	ResourceID string    `json:"resource_id,omitempty" bson:"resource_id,omitempty"`
	StartAt    time.Time `json:"start_at" bson:"start_at"`
	EndAt      time.Time `json:"end_at" bson:"end_at"`
	ExpiresAt  time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

func (l *SlotLock) Interval() interval.Interval {
	return interval.Interval{Start: l.StartAt, End: l.EndAt}
}

// ResourceKey returns the resource part of the lock key.
func (l *SlotLock) ResourceKey() string {
	if l.ResourceID == "" {
		return TenantWideResource
	}
	return l.ResourceID
}
