package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotkeeper/pkg/kafka"
	"slotkeeper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func created() ReservationEvent {
	return ReservationEvent{
		Type:          TypeReservationCreated,
		TenantID:      "t1",
		ResourceID:    "r1",
		ReservationID: "abc",
		Start:         start,
		End:           start.Add(time.Hour),
	}
}

type mockProducer struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
	published   []kafka.Message
}

func (m *mockProducer) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

func TestValidate(t *testing.T) {
	prevStart, prevEnd := start.Add(-2*time.Hour), start.Add(-time.Hour)

	tests := []struct {
		name    string
		mutate  func(e *ReservationEvent)
		wantErr bool
	}{
		{"valid", func(e *ReservationEvent) {}, false},
		{"unknown type", func(e *ReservationEvent) { e.Type = "reservation.deleted" }, true},
		{"missing tenant", func(e *ReservationEvent) { e.TenantID = "" }, true},
		{"reversed interval", func(e *ReservationEvent) { e.End = e.Start.Add(-time.Minute) }, true},
		{"rescheduled without previous", func(e *ReservationEvent) { e.Type = TypeReservationRescheduled }, true},
		{"rescheduled", func(e *ReservationEvent) {
			e.Type = TypeReservationRescheduled
			e.PreviousStart, e.PreviousEnd = &prevStart, &prevEnd
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := created()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEvent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAffected(t *testing.T) {
	e := created()
	assert.Len(t, e.Affected(), 1)

	prevStart, prevEnd := start.Add(-2*time.Hour), start.Add(-time.Hour)
	e.PreviousStart, e.PreviousEnd = &prevStart, &prevEnd
	affected := e.Affected()
	require.Len(t, affected, 2)
	assert.Equal(t, prevStart, affected[1].Start)
}

func TestKafkaPublisher_RoundTrip(t *testing.T) {
	producer := &mockProducer{}
	pub := &kafkaPublisher{producer: producer, log: logger.Discard()}

	require.NoError(t, pub.Publish(context.Background(), created()))
	require.Len(t, producer.published, 1)

	msg := producer.published[0]
	assert.Equal(t, "t1|r1", msg.Key)
	assert.Equal(t, TypeReservationCreated, msg.GetEventType())
	assert.NotEmpty(t, msg.GetEventID())

	decoded, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, "abc", decoded.ReservationID)
	assert.True(t, decoded.Start.Equal(start))
}

func TestKafkaPublisher_Errors(t *testing.T) {
	producer := &mockProducer{publishFunc: func(ctx context.Context, msg kafka.Message) error {
		return errors.New("leader not available")
	}}
	pub := &kafkaPublisher{producer: producer, log: logger.Discard()}

	assert.Error(t, pub.Publish(context.Background(), created()))

	invalid := created()
	invalid.TenantID = ""
	assert.ErrorIs(t, pub.Publish(context.Background(), invalid), ErrInvalidEvent)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(kafka.Message{Value: []byte("{not json")})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = Decode(kafka.Message{Value: []byte(`{"type":"reservation.created"}`)})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NewNoopPublisher().Publish(context.Background(), created()))
}
