package model

import "time"

const (
	RankSoonest  = "soonest"
	RankBalanced = "balanced"
)

// FreeSlotQuery asks for the earliest slot of DurationMin on any resource
// of the tenant inside [From, To).
type FreeSlotQuery struct {
	TenantID    string    `json:"tenant_id" validate:"required,max=64"`
	From        time.Time `json:"from" validate:"required"`
	To          time.Time `json:"to" validate:"required,gtfield=From"`
	DurationMin int       `json:"duration_min" validate:"required,min=1,max=1440"`
}

// FreeStaffQuery asks which resources can take the whole range [StartAt, EndAt).
type FreeStaffQuery struct {
	TenantID string    `json:"tenant_id" validate:"required,max=64"`
	StartAt  time.Time `json:"start_at" validate:"required"`
	EndAt    time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
}

type NextSlotQuery struct {
	TenantID      string    `json:"tenant_id" validate:"required,max=64"`
	From          time.Time `json:"from" validate:"required"`
	DurationMin   int       `json:"duration_min" validate:"required,min=1,max=1440"`
	DaysLookahead int       `json:"days_lookahead" validate:"min=1"`
}

// OptimalSlotsQuery searches the cached slots of a service. Dates are local
// to each resource and EndDate is inclusive.
type OptimalSlotsQuery struct {
	TenantID   string `json:"tenant_id,omitempty" validate:"omitempty,max=64"`
	ServiceID  string `json:"service_id" validate:"required,max=64"`
	ResourceID string `json:"resource_id,omitempty" validate:"omitempty,max=64"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	MaxResults int    `json:"max_results,omitempty" validate:"omitempty,min=1"`
	Rank       string `json:"rank,omitempty" validate:"omitempty,oneof=soonest balanced"`
}
