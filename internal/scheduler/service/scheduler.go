package service

import (
	"context"
	"errors"
	"sort"
	"time"

	cacheservice "slotkeeper/internal/availability/cache/service"
	calendarerrors "slotkeeper/internal/calendar/errors"
	calendarrepo "slotkeeper/internal/calendar/repository"
	calendarservice "slotkeeper/internal/calendar/service"
	"slotkeeper/internal/scheduler/validator"
	"slotkeeper/pkg/config"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/validation"

	"golang.org/x/sync/errgroup"
)

// SchedulerService answers slot searches. Results are advisory: a slot is
// only held once CommitBooking succeeds for it.
type SchedulerService interface {
	FindFreeSlot(ctx context.Context, tenantID string, from, to time.Time, durationMin int) (*model.Slot, error)
	FindFreeStaff(ctx context.Context, tenantID string, startAt, endAt time.Time) ([]string, error)
	NextAvailableSlot(ctx context.Context, tenantID string, from time.Time, durationMin, daysLookahead int) (*model.Slot, error)
	FindOptimalSlots(ctx context.Context, q model.OptimalSlotsQuery) ([]model.Slot, error)
}

type schedulerService struct {
	cache     cacheservice.CacheService
	calendar  calendarservice.CalendarService
	services  calendarrepo.ServiceRepository
	validator *validator.SearchValidator
	cfg       *config.Config
}

func NewSchedulerService(
	cache cacheservice.CacheService,
	calendar calendarservice.CalendarService,
	services calendarrepo.ServiceRepository,
	validator *validator.SearchValidator,
	cfg *config.Config,
) SchedulerService {
	return &schedulerService{
		cache:     cache,
		calendar:  calendar,
		services:  services,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *schedulerService) FindFreeSlot(ctx context.Context, tenantID string, from, to time.Time, durationMin int) (*model.Slot, error) {
	q := model.FreeSlotQuery{TenantID: tenantID, From: from.UTC(), To: to.UTC(), DurationMin: durationMin}
	if err := s.validate("Free slot query", s.validator.ValidateFreeSlot(&q)); err != nil {
		return nil, err
	}

	resources, err := s.calendar.ListResources(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	slot, err := s.earliest(ctx, tenantID, resources, interval.Interval{Start: q.From, End: q.To}, model.NewSlotSpec(durationMin, 0))
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, apperrors.NotFound("Free slot")
	}
	return slot, nil
}

// FindFreeStaff returns the resources whose working hours cover the whole
// range and that have no occupying reservation in it. It reads reservations
// directly, not the cache.
func (s *schedulerService) FindFreeStaff(ctx context.Context, tenantID string, startAt, endAt time.Time) ([]string, error) {
	q := model.FreeStaffQuery{TenantID: tenantID, StartAt: startAt.UTC(), EndAt: endAt.UTC()}
	if err := s.validate("Free staff query", s.validator.ValidateFreeStaff(&q)); err != nil {
		return nil, err
	}
	window := interval.Interval{Start: q.StartAt, End: q.EndAt}

	calendars, err := s.calendar.LoadTenant(ctx, tenantID, window)
	if err != nil {
		return nil, err
	}

	free := []string{}
	for _, cal := range calendars {
		if !covers(cal.Working, window) {
			continue
		}
		if busy(cal.Busy, window) {
			continue
		}
		free = append(free, cal.ResourceID)
	}
	sort.Strings(free)
	return free, nil
}

// NextAvailableSlot returns the earliest slot across all resources within
// daysLookahead days of `from`.
func (s *schedulerService) NextAvailableSlot(ctx context.Context, tenantID string, from time.Time, durationMin, daysLookahead int) (*model.Slot, error) {
	q := model.NextSlotQuery{TenantID: tenantID, From: from.UTC(), DurationMin: durationMin, DaysLookahead: daysLookahead}
	if err := s.validate("Next slot query", s.validator.ValidateNextSlot(&q)); err != nil {
		return nil, err
	}

	resources, err := s.calendar.ListResources(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, apperrors.NotFound("Available slot")
	}

	window := interval.Interval{
		Start: q.From,
		End:   q.From.AddDate(0, 0, daysLookahead),
	}
	slot, err := s.earliest(ctx, tenantID, resources, window, model.NewSlotSpec(durationMin, 0))
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, apperrors.NotFound("Available slot")
	}
	return slot, nil
}

// FindOptimalSlots lists cached slots of a service across the requested
// resources, ranked soonest first unless Rank is balanced.
func (s *schedulerService) FindOptimalSlots(ctx context.Context, q model.OptimalSlotsQuery) ([]model.Slot, error) {
	if err := s.validate("Optimal slots query", s.validator.ValidateOptimal(&q)); err != nil {
		return nil, err
	}
	if q.MaxResults <= 0 || q.MaxResults > s.cfg.MaxOptimalResults {
		q.MaxResults = s.cfg.MaxOptimalResults
	}
	if q.Rank == "" {
		q.Rank = model.RankSoonest
	}

	svc, err := s.findService(ctx, q.ServiceID)
	if err != nil {
		return nil, err
	}
	if q.TenantID != "" && q.TenantID != svc.TenantID {
		return nil, apperrors.NotFoundWithID("Service", q.ServiceID)
	}
	if svc.DurationMin <= 0 {
		s.cfg.Log.Warn("Service has no usable duration", "service_id", svc.ID, "duration_min", svc.DurationMin)
		return nil, apperrors.Validation("Service has no usable duration", map[string]any{"service_id": svc.ID})
	}

	resources := []string{q.ResourceID}
	if q.ResourceID == "" {
		resources, err = s.calendar.ListResources(ctx, svc.TenantID)
		if err != nil {
			return nil, err
		}
	}

	perResource := make([][]model.Slot, len(resources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SearchConcurrency)
	for i, resourceID := range resources {
		g.Go(func() error {
			window, err := s.localDates(gctx, svc.TenantID, resourceID, q.StartDate, q.EndDate)
			if err != nil {
				return err
			}
			found, err := s.cache.FindSlots(gctx, cacheservice.SlotQuery{
				TenantID:   svc.TenantID,
				ResourceID: resourceID,
				Window:     window,
				Spec:       svc.SlotSpec(),
			})
			if err != nil {
				return err
			}
			slots := make([]model.Slot, 0, len(found))
			for _, iv := range found {
				slots = append(slots, model.NewSlot(resourceID, iv))
			}
			perResource[i] = slots
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var ranked []model.Slot
	switch q.Rank {
	case model.RankBalanced:
		ranked = balanced(perResource, q.MaxResults)
	default:
		ranked = soonest(perResource, q.MaxResults)
	}

	s.cfg.Log.Debug("Optimal slots found",
		"service_id", svc.ID,
		"tenant_id", svc.TenantID,
		"resources", len(resources),
		"rank", q.Rank,
		"results", len(ranked),
	)
	return ranked, nil
}

// earliest returns the first slot across resources, ties broken by
// resource id, or nil when none fits.
func (s *schedulerService) earliest(ctx context.Context, tenantID string, resources []string, window interval.Interval, spec model.SlotSpec) (*model.Slot, error) {
	firsts := make([]*model.Slot, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SearchConcurrency)
	for i, resourceID := range resources {
		g.Go(func() error {
			slots, err := s.cache.FindSlots(gctx, cacheservice.SlotQuery{
				TenantID:   tenantID,
				ResourceID: resourceID,
				Window:     window,
				Spec:       spec,
			})
			if err != nil {
				return err
			}
			if len(slots) > 0 {
				slot := model.NewSlot(resourceID, slots[0])
				firsts[i] = &slot
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var best *model.Slot
	for _, slot := range firsts {
		if slot == nil {
			continue
		}
		if best == nil || slot.StartAt.Before(best.StartAt) ||
			(slot.StartAt.Equal(best.StartAt) && slot.ResourceID < best.ResourceID) {
			best = slot
		}
	}
	return best, nil
}

// localDates turns an inclusive date range into an interval in the
// resource's time zone.
func (s *schedulerService) localDates(ctx context.Context, tenantID, resourceID, startDate, endDate string) (interval.Interval, error) {
	loc, err := s.calendar.Location(ctx, tenantID, resourceID)
	if err != nil {
		return interval.Interval{}, err
	}
	start, err := time.ParseInLocation(calendarservice.DayLayout, startDate, loc)
	if err != nil {
		return interval.Interval{}, apperrors.InvalidInput("invalid start_date: " + startDate)
	}
	end, err := time.ParseInLocation(calendarservice.DayLayout, endDate, loc)
	if err != nil {
		return interval.Interval{}, apperrors.InvalidInput("invalid end_date: " + endDate)
	}
	return interval.Interval{
		Start: calendarservice.DayBounds(start, loc).Start,
		End:   calendarservice.DayBounds(end, loc).End,
	}, nil
}

func (s *schedulerService) findService(ctx context.Context, id string) (*model.Service, error) {
	svc, err := s.services.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, calendarerrors.ErrServiceNotFound):
			return nil, apperrors.NotFoundWithID("Service", id)
		case errors.Is(err, calendarerrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid service ID format")
		}
		s.cfg.Log.Error("Failed to load service", "service_id", id, "error", err)
		return nil, apperrors.Internal("Failed to load service", err)
	}
	return svc, nil
}

func (s *schedulerService) validate(what string, err error) error {
	if err == nil {
		return nil
	}
	s.cfg.Log.Warn(what+" validation failed", "error", err)
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(what+" validation failed", verrs.Details())
	}
	return apperrors.Validation(what+" validation failed", map[string]any{"error": err.Error()})
}

func covers(working []interval.Interval, window interval.Interval) bool {
	for _, w := range working {
		if w.Contains(window) {
			return true
		}
	}
	return false
}

func busy(reservations []interval.Interval, window interval.Interval) bool {
	for _, b := range reservations {
		if interval.Overlaps(b, window) {
			return true
		}
	}
	return false
}
