package service

import (
	"context"
	"errors"
	"time"

	cacheservice "slotkeeper/internal/availability/cache/service"
	bookingserrors "slotkeeper/internal/bookings/errors"
	"slotkeeper/internal/bookings/repository"
	"slotkeeper/internal/bookings/validator"
	calendarservice "slotkeeper/internal/calendar/service"
	"slotkeeper/internal/conflicts"
	"slotkeeper/internal/events"
	lockservice "slotkeeper/internal/locks/service"
	"slotkeeper/pkg/config"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/validation"
)

type BookingService interface {
	CommitBooking(ctx context.Context, req model.CommitRequest) (*model.Reservation, error)
	GetByID(ctx context.Context, tenantID, id string) (*model.Reservation, error)
	Cancel(ctx context.Context, tenantID, id string) (*model.Reservation, error)
}

type bookingService struct {
	repo      repository.ReservationRepository
	locks     lockservice.LockService
	conflicts conflicts.Checker
	cache     cacheservice.CacheService
	calendar  calendarservice.CalendarService
	publisher events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.ReservationRepository,
	locks lockservice.LockService,
	checker conflicts.Checker,
	cache cacheservice.CacheService,
	calendar calendarservice.CalendarService,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		locks:     locks,
		conflicts: checker,
		cache:     cache,
		calendar:  calendar,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

// CommitBooking locks the range, re-checks it against committed
// reservations, inserts the reservation and invalidates cached
// availability. The lock is released on every path, panics included.
func (s *bookingService) CommitBooking(ctx context.Context, req model.CommitRequest) (*model.Reservation, error) {
	s.applyDefaults(&req)
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.BookingTimeout)
	defer cancel()

	c := &commit{req: req}
	defer s.releaseLock(ctx, c)

	err := runSteps(ctx, c,
		newStep(StateLocking, s.lockSlot),
		newStep(StateChecking, s.checkConflicts),
		newStep(StateInserting, s.insertReservation),
		newStep(StateInvalidating, s.invalidateAvailability),
	)
	if err != nil {
		return nil, s.fail(ctx, c, err)
	}
	c.state = StateDone

	s.cfg.Log.Info("Booking committed",
		"reservation_id", c.reservation.ID,
		"tenant_id", c.reservation.TenantID,
		"resource_id", c.reservation.ResourceID,
		"start_at", c.reservation.StartAt,
		"end_at", c.reservation.EndAt,
	)

	s.publish(ctx, events.ReservationEvent{
		Type:          events.TypeReservationCreated,
		TenantID:      c.reservation.TenantID,
		ResourceID:    c.reservation.ResourceID,
		ReservationID: c.reservation.ID,
		Start:         c.reservation.StartAt,
		End:           c.reservation.EndAt,
	})
	return c.reservation, nil
}

func (s *bookingService) GetByID(ctx context.Context, tenantID, id string) (*model.Reservation, error) {
	if tenantID == "" {
		return nil, apperrors.InvalidInput("tenant_id is required")
	}
	return s.findOwned(ctx, tenantID, id)
}

// Cancel frees the reservation's time. Cancelling twice is not an error.
func (s *bookingService) Cancel(ctx context.Context, tenantID, id string) (*model.Reservation, error) {
	if tenantID == "" {
		return nil, apperrors.InvalidInput("tenant_id is required")
	}

	var reservation *model.Reservation
	changed := false
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		r, err := s.findOwned(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		reservation = r

		switch r.Status {
		case model.ReservationCancelled:
			return nil
		case model.ReservationCompleted:
			return apperrors.Validation("Completed reservations cannot be cancelled", map[string]any{"status": r.Status})
		}

		if err := s.repo.UpdateStatus(txCtx, id, model.ReservationCancelled); err != nil {
			return s.repositoryError(err, id)
		}
		r.Status = model.ReservationCancelled
		changed = true
		return nil
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			s.cfg.Log.Error("Failed to cancel reservation", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to cancel reservation", err)
		}
		return nil, err
	}
	if !changed {
		return reservation, nil
	}

	s.cfg.Log.Info("Reservation cancelled",
		"reservation_id", reservation.ID,
		"tenant_id", reservation.TenantID,
		"resource_id", reservation.ResourceID,
	)

	s.refreshAvailability(ctx, reservation)
	s.publish(ctx, events.ReservationEvent{
		Type:          events.TypeReservationCancelled,
		TenantID:      reservation.TenantID,
		ResourceID:    reservation.ResourceID,
		ReservationID: reservation.ID,
		Start:         reservation.StartAt,
		End:           reservation.EndAt,
	})
	return reservation, nil
}

func (s *bookingService) lockSlot(ctx context.Context, c *commit) error {
	if c.req.ResourceID == "" {
		resources, err := s.calendar.ListResources(ctx, c.req.TenantID)
		if err != nil {
			return err
		}
		c.resources = resources
	}

	lock, err := s.locks.Acquire(ctx, lockservice.LockRequest{
		TenantID:        c.req.TenantID,
		ResourceID:      c.req.ResourceID,
		Start:           c.req.StartAt,
		End:             c.req.EndAt,
		LockDuration:    s.cfg.LockTTL,
		TenantResources: c.resources,
	})
	if err != nil {
		return err
	}
	c.lock = lock
	return nil
}

func (s *bookingService) checkConflicts(ctx context.Context, c *commit) error {
	query := conflicts.ConflictQuery{
		TenantID: c.req.TenantID,
		Start:    c.req.StartAt,
		End:      c.req.EndAt,
	}
	if c.req.ResourceID != "" {
		query.ResourceIDs = []string{c.req.ResourceID}
	}

	result, err := s.conflicts.Check(ctx, query)
	if err != nil {
		return err
	}
	if result.HasConflict {
		return apperrors.Conflict("slot no longer available")
	}
	return nil
}

func (s *bookingService) insertReservation(ctx context.Context, c *commit) error {
	reservation := &model.Reservation{
		TenantID:   c.req.TenantID,
		ResourceID: c.req.ResourceID,
		ServiceID:  c.req.ServiceID,
		StartAt:    c.req.StartAt,
		EndAt:      c.req.EndAt,
		Status:     c.req.Status,
	}
	if err := s.repo.Create(ctx, reservation); err != nil {
		return apperrors.Internal("Failed to create reservation", err)
	}
	c.reservation = reservation
	return nil
}

// invalidateAvailability never fails the commit: the reservation is already
// stored.
func (s *bookingService) invalidateAvailability(ctx context.Context, c *commit) error {
	s.refreshAvailability(ctx, c.reservation)
	return nil
}

// refreshAvailability drops cached slots around r. A failed invalidation is
// handed to the precompute worker.
func (s *bookingService) refreshAvailability(ctx context.Context, r *model.Reservation) {
	if err := s.cache.Invalidate(ctx, r.TenantID, r.ResourceID, r.Interval()); err != nil {
		s.cfg.Log.Error("Failed to invalidate availability, requesting async retry",
			"reservation_id", r.ID,
			"tenant_id", r.TenantID,
			"resource_id", r.ResourceID,
			"error", err,
		)
		s.publish(ctx, events.ReservationEvent{
			Type:          events.TypeAvailabilityInvalidate,
			TenantID:      r.TenantID,
			ResourceID:    r.ResourceID,
			ReservationID: r.ID,
			Start:         r.StartAt,
			End:           r.EndAt,
		})
	}
}

// releaseLock runs on a context detached from the request so an expired
// deadline or a cancelled client cannot skip it.
func (s *bookingService) releaseLock(ctx context.Context, c *commit) {
	if c.lock == nil {
		return
	}

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	if err := s.locks.Release(releaseCtx, c.lock.LockID); err != nil {
		s.cfg.Log.Warn("Failed to release slot lock, it will expire",
			"lock_id", c.lock.LockID,
			"expires_at", c.lock.ExpiresAt,
			"error", err,
		)
	}
}

func (s *bookingService) fail(ctx context.Context, c *commit, err error) error {
	failedAt := c.state
	c.state = StateFailed

	switch {
	case apperrors.IsConflict(err):
		s.cfg.Log.Info("Booking rejected",
			"state", failedAt,
			"tenant_id", c.req.TenantID,
			"resource_id", c.req.ResourceID,
			"start_at", c.req.StartAt,
			"end_at", c.req.EndAt,
		)
		return apperrors.AsAppError(err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.cfg.Log.Error("Booking timed out", "state", failedAt, "tenant_id", c.req.TenantID, "error", err)
		return apperrors.Timeout("Booking did not complete in time")
	}

	appErr := apperrors.AsAppError(err)
	s.cfg.Log.Error("Booking failed",
		"state", failedAt,
		"tenant_id", c.req.TenantID,
		"resource_id", c.req.ResourceID,
		"error", err,
	)
	return appErr
}

func (s *bookingService) publish(ctx context.Context, event events.ReservationEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish reservation event",
			"type", event.Type,
			"reservation_id", event.ReservationID,
			"error", err,
		)
	}
}

func (s *bookingService) findOwned(ctx context.Context, tenantID, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.repositoryError(err, id)
	}
	if r.TenantID != tenantID {
		return nil, apperrors.NotFoundWithID("Reservation", id)
	}
	return r, nil
}

func (s *bookingService) repositoryError(err error, id string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Reservation", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid reservation ID format")
	}
	s.cfg.Log.Error("Reservation store failure", "id", id, "error", err)
	return apperrors.Internal("Failed to access reservation", err)
}

func (s *bookingService) applyDefaults(req *model.CommitRequest) {
	if req.Status == "" {
		req.Status = model.ReservationConfirmed
	}
	req.StartAt = req.StartAt.UTC().Truncate(time.Millisecond)
	req.EndAt = req.EndAt.UTC().Truncate(time.Millisecond)
}

func (s *bookingService) validate(req *model.CommitRequest) error {
	if err := s.validator.ValidateCommit(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Booking validation failed", verrs.Details())
		}
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}
