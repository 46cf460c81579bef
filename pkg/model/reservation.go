package model

import (
	"time"

	"slotkeeper/pkg/interval"
)

const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationCompleted = "completed"
)

// OccupyingStatuses are the reservation statuses that block a time range.
var OccupyingStatuses = []string{ReservationPending, ReservationConfirmed}

type Reservation struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TenantID   string    `json:"tenant_id" bson:"tenant_id" validate:"required,max=64"`
	ResourceID string    `json:"resource_id,omitempty" bson:"resource_id,omitempty" validate:"omitempty,max=64"`
	ServiceID  string    `json:"service_id,omitempty" bson:"service_id,omitempty" validate:"omitempty,max=64"`
	StartAt    time.Time `json:"start_at" bson:"start_at" validate:"required"`
	EndAt      time.Time `json:"end_at" bson:"end_at" validate:"required,gtfield=StartAt"`
	Status     string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

func (r *Reservation) Interval() interval.Interval {
	return interval.Interval{Start: r.StartAt, End: r.EndAt}
}

// IsTenantWide reports whether the reservation is not bound to a single resource.
func (r *Reservation) IsTenantWide() bool {
	return r.ResourceID == ""
}

func (r *Reservation) Occupies() bool {
	return IsOccupyingStatus(r.Status)
}

func IsOccupyingStatus(status string) bool {
	for _, s := range OccupyingStatuses {
		if s == status {
			return true
		}
	}
	return false
}
