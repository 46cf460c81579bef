package precompute

import (
	"context"
	"errors"

	cacheservice "slotkeeper/internal/availability/cache/service"
	"slotkeeper/internal/events"
	"slotkeeper/pkg/config"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/kafka"
)

// EventHandler invalidates cached availability for reservation changes made
// outside this process and for invalidations the booking path could not
// complete.
type EventHandler struct {
	cache cacheservice.CacheService
	cfg   *config.Config
}

func NewEventHandler(cache cacheservice.CacheService, cfg *config.Config) *EventHandler {
	return &EventHandler{cache: cache, cfg: cfg}
}

// Handle is a kafka.MessageHandler. Undecodable events are permanent
// failures; store failures are transient so the consumer retries them.
func (h *EventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	event, err := events.Decode(msg)
	if err != nil {
		return kafka.NewPermanentError("invalid reservation event", err)
	}

	for _, affected := range event.Affected() {
		if err := h.cache.Invalidate(ctx, event.TenantID, event.ResourceID, affected); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if apperrors.HasCode(err, apperrors.CodeInvalidInput) || apperrors.HasCode(err, apperrors.CodeValidation) {
				return kafka.NewPermanentError("invalid invalidation request", err)
			}
			return kafka.NewTransientError("failed to invalidate availability", err)
		}
	}

	h.cfg.Log.Debug("Availability invalidated from event",
		"type", event.Type,
		"tenant_id", event.TenantID,
		"resource_id", event.ResourceID,
		"reservation_id", event.ReservationID,
		"correlation_id", msg.GetCorrelationID(),
	)
	return nil
}
