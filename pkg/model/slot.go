package model

import (
	"time"

	"slotkeeper/pkg/interval"
)

// Slot is a bookable candidate: a concrete resource and a time range.
type Slot struct {
	ResourceID string    `json:"resource_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
}

func NewSlot(resourceID string, iv interval.Interval) Slot {
	return Slot{ResourceID: resourceID, StartAt: iv.Start, EndAt: iv.End}
}

func (s Slot) Interval() interval.Interval {
	return interval.Interval{Start: s.StartAt, End: s.EndAt}
}
