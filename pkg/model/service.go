package model

import (
	"fmt"
	"time"
)

// Service is a read-only catalog entry describing how long an appointment lasts.
type Service struct {
	ID          string `json:"id,omitempty" bson:"_id,omitempty"`
	TenantID    string `json:"tenant_id" bson:"tenant_id"`
	Name        string `json:"name" bson:"name"`
	DurationMin int    `json:"duration_min" bson:"duration_min"`
	SlotStepMin int    `json:"slot_step_min,omitempty" bson:"slot_step_min,omitempty"`
}

func (s *Service) SlotSpec() SlotSpec {
	return NewSlotSpec(s.DurationMin, s.SlotStepMin)
}

// SlotSpec identifies one materialized slot grid: a duration and the step
// between consecutive candidate starts.
type SlotSpec struct {
	DurationMin int `json:"duration_min" bson:"duration_min"`
	StepMin     int `json:"step_min" bson:"step_min"`
}

// NewSlotSpec defaults the step to the duration.
func NewSlotSpec(durationMin, stepMin int) SlotSpec {
	if stepMin <= 0 {
		stepMin = durationMin
	}
	return SlotSpec{DurationMin: durationMin, StepMin: stepMin}
}

func (s SlotSpec) Key() string {
	return fmt.Sprintf("%d_%d", s.DurationMin, s.StepMin)
}

func (s SlotSpec) Duration() time.Duration {
	return time.Duration(s.DurationMin) * time.Minute
}

func (s SlotSpec) Step() time.Duration {
	return time.Duration(s.StepMin) * time.Minute
}
