// Package events carries reservation changes between the booking path and
// the precompute worker.
package events

import (
	"errors"
	"fmt"
	"time"

	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/kafka"
)

const (
	TypeReservationCreated     = "reservation.created"
	TypeReservationCancelled   = "reservation.cancelled"
	TypeReservationRescheduled = "reservation.rescheduled"
	// TypeAvailabilityInvalidate asks the worker to retry an invalidation
	// the booking path could not complete.
	TypeAvailabilityInvalidate = "availability.invalidate"

	SchemaVersion = "1"
	Source        = "slotkeeper"
)

var ErrInvalidEvent = errors.New("invalid reservation event")

type ReservationEvent struct {
	Type          string     `json:"type"`
	TenantID      string     `json:"tenant_id"`
	ResourceID    string     `json:"resource_id,omitempty"`
	ReservationID string     `json:"reservation_id,omitempty"`
	Start         time.Time  `json:"start_at"`
	End           time.Time  `json:"end_at"`
	PreviousStart *time.Time `json:"previous_start_at,omitempty"`
	PreviousEnd   *time.Time `json:"previous_end_at,omitempty"`
}

// Key partitions by tenant and resource so events of one resource stay ordered.
func (e ReservationEvent) Key() string {
	return e.TenantID + "|" + e.ResourceID
}

func (e ReservationEvent) Validate() error {
	switch e.Type {
	case TypeReservationCreated, TypeReservationCancelled, TypeReservationRescheduled, TypeAvailabilityInvalidate:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.TenantID == "" {
		return fmt.Errorf("%w: tenant_id is required", ErrInvalidEvent)
	}
	if _, err := interval.New(e.Start, e.End); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if e.Type == TypeReservationRescheduled {
		if e.PreviousStart == nil || e.PreviousEnd == nil {
			return fmt.Errorf("%w: rescheduled event needs the previous interval", ErrInvalidEvent)
		}
		if _, err := interval.New(*e.PreviousStart, *e.PreviousEnd); err != nil {
			return fmt.Errorf("%w: previous interval: %v", ErrInvalidEvent, err)
		}
	}
	return nil
}

// Affected returns every interval whose availability the event changes.
func (e ReservationEvent) Affected() []interval.Interval {
	affected := []interval.Interval{{Start: e.Start, End: e.End}}
	if e.PreviousStart != nil && e.PreviousEnd != nil {
		affected = append(affected, interval.Interval{Start: *e.PreviousStart, End: *e.PreviousEnd})
	}
	return affected
}

// Decode reads and validates an event from a Kafka message.
func Decode(msg kafka.Message) (ReservationEvent, error) {
	var event ReservationEvent
	if err := msg.DecodeValue(&event); err != nil {
		return ReservationEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.Type == "" {
		event.Type = msg.GetEventType()
	}
	if err := event.Validate(); err != nil {
		return ReservationEvent{}, err
	}
	return event, nil
}
