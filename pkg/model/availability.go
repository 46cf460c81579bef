package model

import "time"

// AvailabilitySlot is a derived cache row. It is never a source of truth.
type AvailabilitySlot struct {
	TenantID    string    `json:"tenant_id" bson:"tenant_id"`
	ResourceID  string    `json:"resource_id" bson:"resource_id"`
	DurationMin int       `json:"duration_min" bson:"duration_min"`
	StepMin     int       `json:"step_min" bson:"step_min"`
	Day         string    `json:"day" bson:"day"`
	Version     int64     `json:"version" bson:"version"`
	StartAt     time.Time `json:"start_at" bson:"start_at"`
	EndAt       time.Time `json:"end_at" bson:"end_at"`
	ComputedAt  time.Time `json:"computed_at" bson:"computed_at"`
	HorizonEnd  time.Time `json:"horizon_end" bson:"horizon_end"`
}

// AvailabilityWindow tracks the freshness of one resource-day. Version is
// bumped by every invalidation touching the day; a spec is fresh only when
// its recorded version equals Version.
type AvailabilityWindow struct {
	ID         string                `json:"id" bson:"_id"`
	TenantID   string                `json:"tenant_id" bson:"tenant_id"`
	ResourceID string                `json:"resource_id" bson:"resource_id"`
	Day        string                `json:"day" bson:"day"`
	Version    int64                 `json:"version" bson:"version"`
	Specs      map[string]WindowSpec `json:"specs,omitempty" bson:"specs,omitempty"`
}

type WindowSpec struct {
	Version    int64     `json:"version" bson:"version"`
	ComputedAt time.Time `json:"computed_at" bson:"computed_at"`
	HorizonEnd time.Time `json:"horizon_end" bson:"horizon_end"`
}

// Fresh reports whether rows for the spec key reflect the current version.
func (w *AvailabilityWindow) Fresh(specKey string) bool {
	if w == nil {
		return false
	}
	spec, ok := w.Specs[specKey]
	return ok && spec.Version == w.Version
}
