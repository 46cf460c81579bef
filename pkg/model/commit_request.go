package model

import (
	"time"

	"slotkeeper/pkg/interval"
)

// CommitRequest asks to reserve [StartAt, EndAt). An empty ResourceID books
// the whole tenant. Status defaults to confirmed.
type CommitRequest struct {
	TenantID   string    `json:"tenant_id" validate:"required,max=64"`
	ResourceID string    `json:"resource_id,omitempty" validate:"omitempty,max=64"`
	ServiceID  string    `json:"service_id,omitempty" validate:"omitempty,max=64"`
	StartAt    time.Time `json:"start_at" validate:"required"`
	EndAt      time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
	Status     string    `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed"`
}

func (r *CommitRequest) Interval() interval.Interval {
	return interval.Interval{Start: r.StartAt, End: r.EndAt}
}
