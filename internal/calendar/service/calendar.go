package service

import (
	"context"
	"errors"
	"time"

	bookingsrepo "slotkeeper/internal/bookings/repository"
	calendarerrors "slotkeeper/internal/calendar/errors"
	"slotkeeper/internal/calendar/repository"
	"slotkeeper/internal/calendar/validator"
	"slotkeeper/pkg/config"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/validation"
)

// Calendar is the working time and the occupied time of one resource
// inside a window. Working is clipped to the window, sorted and merged.
// Busy is sorted and merged but not clipped.
type Calendar struct {
	TenantID     string
	ResourceID   string
	Location     *time.Location
	Working      []interval.Interval
	Busy         []interval.Interval
	Reservations []*model.Reservation
}

type CalendarService interface {
	Load(ctx context.Context, tenantID, resourceID string, window interval.Interval) (*Calendar, error)
	LoadTenant(ctx context.Context, tenantID string, window interval.Interval) ([]*Calendar, error)
	ListResources(ctx context.Context, tenantID string) ([]string, error)
	ListTenants(ctx context.Context) ([]string, error)
	Location(ctx context.Context, tenantID, resourceID string) (*time.Location, error)
}

type calendarService struct {
	workingHours repository.WorkingHoursRepository
	reservations bookingsrepo.ReservationRepository
	validator    *validator.WorkingHoursValidator
	cfg          *config.Config
}

func NewCalendarService(
	workingHours repository.WorkingHoursRepository,
	reservations bookingsrepo.ReservationRepository,
	validator *validator.WorkingHoursValidator,
	cfg *config.Config,
) CalendarService {
	return &calendarService{
		workingHours: workingHours,
		reservations: reservations,
		validator:    validator,
		cfg:          cfg,
	}
}

func (s *calendarService) Load(ctx context.Context, tenantID, resourceID string, window interval.Interval) (*Calendar, error) {
	wh, err := s.findWorkingHours(ctx, tenantID, resourceID)
	if err != nil {
		return nil, err
	}

	cal := s.build(tenantID, resourceID, wh, window)

	reservations, err := s.reservations.FindOverlapping(ctx, bookingsrepo.OverlapFilter{
		TenantID:    tenantID,
		ResourceIDs: []string{resourceID},
		Window:      window,
	})
	if err != nil {
		s.cfg.Log.Error("Failed to load reservations",
			"tenant_id", tenantID,
			"resource_id", resourceID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load reservations", err)
	}

	cal.setReservations(reservations)
	return cal, nil
}

// LoadTenant loads every resource of the tenant with two store reads.
// Tenant-wide reservations occupy every resource.
func (s *calendarService) LoadTenant(ctx context.Context, tenantID string, window interval.Interval) ([]*Calendar, error) {
	docs, err := s.workingHours.FindByTenant(ctx, tenantID)
	if err != nil {
		s.cfg.Log.Error("Failed to load tenant working hours", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to load working hours", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	reservations, err := s.reservations.FindOverlapping(ctx, bookingsrepo.OverlapFilter{
		TenantID: tenantID,
		Window:   window,
	})
	if err != nil {
		s.cfg.Log.Error("Failed to load tenant reservations", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to load reservations", err)
	}

	var tenantWide []*model.Reservation
	byResource := make(map[string][]*model.Reservation)
	for _, r := range reservations {
		if r.IsTenantWide() {
			tenantWide = append(tenantWide, r)
			continue
		}
		byResource[r.ResourceID] = append(byResource[r.ResourceID], r)
	}

	calendars := make([]*Calendar, 0, len(docs))
	for _, wh := range docs {
		cal := s.build(tenantID, wh.ResourceID, wh, window)
		own := byResource[wh.ResourceID]
		all := make([]*model.Reservation, 0, len(own)+len(tenantWide))
		all = append(all, own...)
		all = append(all, tenantWide...)
		cal.setReservations(all)
		calendars = append(calendars, cal)
	}
	return calendars, nil
}

func (s *calendarService) ListResources(ctx context.Context, tenantID string) ([]string, error) {
	docs, err := s.workingHours.FindByTenant(ctx, tenantID)
	if err != nil {
		s.cfg.Log.Error("Failed to list resources", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to list resources", err)
	}

	resources := make([]string, 0, len(docs))
	for _, wh := range docs {
		resources = append(resources, wh.ResourceID)
	}
	return resources, nil
}

func (s *calendarService) ListTenants(ctx context.Context) ([]string, error) {
	tenants, err := s.workingHours.FindTenants(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list tenants", "error", err)
		return nil, apperrors.Internal("Failed to list tenants", err)
	}
	return tenants, nil
}

// Location returns the resource's time zone. Resources without usable
// working hours fall back to UTC.
func (s *calendarService) Location(ctx context.Context, tenantID, resourceID string) (*time.Location, error) {
	wh, err := s.findWorkingHours(ctx, tenantID, resourceID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return time.UTC, nil
	}
	loc, err := LoadLocation(wh.TimeZone)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}

// findWorkingHours returns nil without error when the resource has no
// working hours in this tenant.
func (s *calendarService) findWorkingHours(ctx context.Context, tenantID, resourceID string) (*model.WorkingHours, error) {
	wh, err := s.workingHours.FindByResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, calendarerrors.ErrNotFound) {
			return nil, nil
		}
		s.cfg.Log.Error("Failed to load working hours",
			"tenant_id", tenantID,
			"resource_id", resourceID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load working hours", err)
	}

	if wh.TenantID != tenantID {
		s.cfg.Log.Warn("Working hours belong to another tenant",
			"tenant_id", tenantID,
			"resource_id", resourceID,
		)
		return nil, nil
	}
	return wh, nil
}

func (s *calendarService) build(tenantID, resourceID string, wh *model.WorkingHours, window interval.Interval) *Calendar {
	cal := &Calendar{
		TenantID:   tenantID,
		ResourceID: resourceID,
		Location:   time.UTC,
	}
	if wh == nil {
		return cal
	}

	loc, err := LoadLocation(wh.TimeZone)
	if err != nil {
		s.cfg.Log.Warn("Invalid time zone, treating resource as closed",
			"resource_id", resourceID,
			"time_zone", wh.TimeZone,
			"error", err,
		)
		return cal
	}

	cal.Location = loc
	cal.Working = s.expand(wh, loc, window)
	return cal
}

// expand turns the weekly rules and overrides into absolute intervals for
// every local day the window touches.
func (s *calendarService) expand(wh *model.WorkingHours, loc *time.Location, window interval.Interval) []interval.Interval {
	weekly := make(map[time.Weekday][]model.TimeRange)
	for _, rule := range wh.Weekly {
		if err := s.validator.ValidateWeeklyRule(rule); err != nil {
			s.cfg.Log.Warn("Skipping malformed weekly rule",
				"resource_id", wh.ResourceID,
				"day_of_week", rule.DayOfWeek,
				"error", err,
			)
			continue
		}
		day := time.Weekday(rule.DayOfWeek)
		weekly[day] = append(weekly[day], model.TimeRange{StartTime: rule.StartTime, EndTime: rule.EndTime})
	}

	overrides := make(map[string][]model.TimeRange)
	for _, o := range wh.Overrides {
		if err := s.validator.ValidateOverrideDate(o); err != nil {
			s.cfg.Log.Warn("Skipping override with malformed date",
				"resource_id", wh.ResourceID,
				"date", o.Date,
				"error", err,
			)
			continue
		}
		ranges := overrides[o.Date]
		for _, r := range o.Intervals {
			if err := s.validator.ValidateTimeRange(r); err != nil {
				s.cfg.Log.Warn("Skipping malformed override interval",
					"resource_id", wh.ResourceID,
					"date", o.Date,
					"error", err,
				)
				continue
			}
			ranges = append(ranges, r)
		}
		// A present but empty entry marks a day off.
		if ranges == nil {
			ranges = []model.TimeRange{}
		}
		overrides[o.Date] = ranges
	}

	var working []interval.Interval
	for _, day := range DaysIn(window, loc) {
		local := day.Start.In(loc)
		ranges, ok := overrides[local.Format(DayLayout)]
		if !ok {
			ranges = weekly[local.Weekday()]
		}

		for _, r := range ranges {
			iv, ok := toInterval(local, r, loc)
			if !ok {
				continue
			}
			if clipped, ok := iv.Clip(window); ok {
				working = append(working, clipped)
			}
		}
	}
	return interval.Merge(working)
}

func toInterval(date time.Time, r model.TimeRange, loc *time.Location) (interval.Interval, bool) {
	startMin, err := validation.ParseHHMM(r.StartTime)
	if err != nil {
		return interval.Interval{}, false
	}
	endMin, err := validation.ParseHHMM(r.EndTime)
	if err != nil {
		return interval.Interval{}, false
	}

	y, m, d := date.Date()
	start := time.Date(y, m, d, startMin/60, startMin%60, 0, 0, loc).UTC()
	end := time.Date(y, m, d, endMin/60, endMin%60, 0, 0, loc).UTC()
	if !start.Before(end) {
		return interval.Interval{}, false
	}
	return interval.Interval{Start: start, End: end}, true
}

func (c *Calendar) setReservations(reservations []*model.Reservation) {
	c.Reservations = reservations
	busy := make([]interval.Interval, 0, len(reservations))
	for _, r := range reservations {
		busy = append(busy, r.Interval())
	}
	c.Busy = interval.Merge(busy)
}
