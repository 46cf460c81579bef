package service

import (
	"context"
	"time"

	"slotkeeper/internal/availability"
	"slotkeeper/internal/availability/cache/repository"
	calendarrepo "slotkeeper/internal/calendar/repository"
	calendarservice "slotkeeper/internal/calendar/service"
	"slotkeeper/pkg/clock"
	"slotkeeper/pkg/config"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"
)

type SlotQuery struct {
	TenantID   string
	ResourceID string
	Window     interval.Interval
	Spec       model.SlotSpec
}

type PrecomputeResult struct {
	Days      int
	Published int
	Skipped   int
}

// CacheService keeps materialized slots per resource-day and spec. Rows are
// advisory; bookings are always re-validated against reservations.
type CacheService interface {
	Precompute(ctx context.Context, tenantID, resourceID string, from, to time.Time) (*PrecomputeResult, error)
	Invalidate(ctx context.Context, tenantID, resourceID string, affected interval.Interval) error
	FindSlots(ctx context.Context, q SlotQuery) ([]interval.Interval, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type cacheService struct {
	repo     repository.CacheRepository
	calendar calendarservice.CalendarService
	services calendarrepo.ServiceRepository
	cfg      *config.Config
	clock    clock.Clock
}

func NewCacheService(
	repo repository.CacheRepository,
	calendar calendarservice.CalendarService,
	services calendarrepo.ServiceRepository,
	cfg *config.Config,
	clk clock.Clock,
) CacheService {
	return &cacheService{
		repo:     repo,
		calendar: calendar,
		services: services,
		cfg:      cfg,
		clock:    clk,
	}
}

// daySlots is the computed availability of one local day for one spec.
type daySlots struct {
	day   interval.Interval
	key   string
	spec  model.SlotSpec
	slots []interval.Interval
}

// Precompute materializes every local day touching [from, to) for every
// slot spec of the tenant's services. Days whose version moves while the
// pass runs are skipped and stay stale until the next pass.
func (s *cacheService) Precompute(ctx context.Context, tenantID, resourceID string, from, to time.Time) (*PrecomputeResult, error) {
	window, err := interval.New(from, to)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	specs, err := s.slotSpecs(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	loc, err := s.calendar.Location(ctx, tenantID, resourceID)
	if err != nil {
		return nil, err
	}

	days := calendarservice.DaysIn(window, loc)
	keys := dayKeys(days, loc)

	// Versions must be observed before the calendar is read.
	windows, err := s.repo.GetWindows(ctx, tenantID, resourceID, keys)
	if err != nil {
		s.cfg.Log.Error("Failed to read availability windows",
			"tenant_id", tenantID,
			"resource_id", resourceID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to read availability windows", err)
	}

	computed, err := s.compute(ctx, tenantID, resourceID, days, loc, specs)
	if err != nil {
		return nil, err
	}

	published, skipped, err := s.publish(ctx, tenantID, resourceID, computed, windows)
	if err != nil {
		s.cfg.Log.Error("Failed to write availability slots",
			"tenant_id", tenantID,
			"resource_id", resourceID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to write availability slots", err)
	}

	s.cfg.Log.Debug("Availability precomputed",
		"tenant_id", tenantID,
		"resource_id", resourceID,
		"days", len(days),
		"specs", len(specs),
		"published", published,
		"skipped", skipped,
	)
	return &PrecomputeResult{Days: len(days), Published: published, Skipped: skipped}, nil
}

// Invalidate marks every local day touched by affected as stale and drops
// the rows overlapping it. An empty resourceID invalidates every resource
// of the tenant.
func (s *cacheService) Invalidate(ctx context.Context, tenantID, resourceID string, affected interval.Interval) error {
	if !affected.Valid() {
		return apperrors.InvalidInput("affected interval must have start before end")
	}

	resources := []string{resourceID}
	if resourceID == "" {
		all, err := s.calendar.ListResources(ctx, tenantID)
		if err != nil {
			return err
		}
		resources = all
	}

	for _, r := range resources {
		if err := s.invalidateResource(ctx, tenantID, r, affected); err != nil {
			return err
		}
	}
	return nil
}

func (s *cacheService) invalidateResource(ctx context.Context, tenantID, resourceID string, affected interval.Interval) error {
	loc, err := s.calendar.Location(ctx, tenantID, resourceID)
	if err != nil {
		return err
	}

	keys := dayKeys(calendarservice.DaysIn(affected, loc), loc)

	if err := s.repo.BumpVersions(ctx, tenantID, resourceID, keys); err != nil {
		s.cfg.Log.Error("Failed to bump availability versions",
			"tenant_id", tenantID,
			"resource_id", resourceID,
			"days", keys,
			"error", err,
		)
		return apperrors.Internal("Failed to invalidate availability", err)
	}

	deleted, err := s.repo.DeleteOverlapping(ctx, tenantID, resourceID, affected)
	if err != nil {
		// Versions already moved, so the rows are unreachable; they are
		// removed by the next precompute or prune.
		s.cfg.Log.Warn("Failed to delete invalidated availability slots",
			"tenant_id", tenantID,
			"resource_id", resourceID,
			"error", err,
		)
		return nil
	}

	s.cfg.Log.Debug("Availability invalidated",
		"tenant_id", tenantID,
		"resource_id", resourceID,
		"days", keys,
		"deleted", deleted,
	)
	return nil
}

// FindSlots returns the slots of one resource fully inside q.Window. Fresh
// days are served from rows; other days are computed from the calendar and,
// when write-back is enabled and the day is inside the horizon, stored.
func (s *cacheService) FindSlots(ctx context.Context, q SlotQuery) ([]interval.Interval, error) {
	if !q.Window.Valid() {
		return nil, apperrors.InvalidInput("window must have start before end")
	}
	if q.Spec.DurationMin <= 0 {
		return nil, apperrors.InvalidInput("duration must be positive")
	}
	q.Spec = model.NewSlotSpec(q.Spec.DurationMin, q.Spec.StepMin)

	loc, err := s.calendar.Location(ctx, q.TenantID, q.ResourceID)
	if err != nil {
		return nil, err
	}

	days := calendarservice.DaysIn(q.Window, loc)
	keys := dayKeys(days, loc)

	windows, err := s.repo.GetWindows(ctx, q.TenantID, q.ResourceID, keys)
	if err != nil {
		s.cfg.Log.Warn("Availability cache unreadable, computing from calendar",
			"tenant_id", q.TenantID,
			"resource_id", q.ResourceID,
			"error", err,
		)
		windows = nil
	}

	var slots []interval.Interval
	var missed []interval.Interval
	for i, day := range days {
		w := windows[keys[i]]
		if !w.Fresh(q.Spec.Key()) {
			missed = append(missed, day)
			continue
		}

		rows, err := s.repo.FindSlots(ctx, repository.SlotFilter{
			TenantID:   q.TenantID,
			ResourceID: q.ResourceID,
			Day:        keys[i],
			Spec:       q.Spec,
			Version:    w.Version,
		})
		if err != nil {
			s.cfg.Log.Warn("Failed to read cached slots, computing from calendar",
				"tenant_id", q.TenantID,
				"resource_id", q.ResourceID,
				"day", keys[i],
				"error", err,
			)
			missed = append(missed, day)
			continue
		}
		for _, row := range rows {
			slots = append(slots, interval.Interval{Start: row.StartAt.UTC(), End: row.EndAt.UTC()})
		}
	}

	if len(missed) > 0 {
		computed, err := s.compute(ctx, q.TenantID, q.ResourceID, missed, loc, []model.SlotSpec{q.Spec})
		if err != nil {
			return nil, err
		}
		for _, c := range computed {
			slots = append(slots, c.slots...)
		}

		if s.cfg.CacheWriteBack && windows != nil {
			s.writeBack(ctx, q.TenantID, q.ResourceID, computed, windows)
		}
	}

	return availability.FilterWithin(dedup(slots), q.Window), nil
}

func (s *cacheService) Prune(ctx context.Context, before time.Time) (int64, error) {
	// Local dates run up to a day behind UTC.
	day := before.UTC().AddDate(0, 0, -1).Format(calendarservice.DayLayout)
	deleted, err := s.repo.PruneBefore(ctx, day)
	if err != nil {
		s.cfg.Log.Error("Failed to prune availability cache", "before", day, "error", err)
		return deleted, apperrors.Internal("Failed to prune availability cache", err)
	}
	return deleted, nil
}

// compute loads the calendar once for the span of days and runs the
// availability computation per day and spec over whole local days.
func (s *cacheService) compute(ctx context.Context, tenantID, resourceID string, days []interval.Interval, loc *time.Location, specs []model.SlotSpec) ([]daySlots, error) {
	if len(days) == 0 {
		return nil, nil
	}

	span := interval.Interval{Start: days[0].Start, End: days[len(days)-1].End}
	cal, err := s.calendar.Load(ctx, tenantID, resourceID, span)
	if err != nil {
		return nil, err
	}

	result := make([]daySlots, 0, len(days)*len(specs))
	for _, day := range days {
		var working []interval.Interval
		for _, w := range cal.Working {
			if clipped, ok := w.Clip(day); ok {
				working = append(working, clipped)
			}
		}

		for _, spec := range specs {
			result = append(result, daySlots{
				day:   day,
				key:   calendarservice.DayKey(day.Start, loc),
				spec:  spec,
				slots: availability.ComputeFreeSlots(working, cal.Busy, spec.Duration(), spec.Step()),
			})
		}
	}
	return result, nil
}

func (s *cacheService) publish(ctx context.Context, tenantID, resourceID string, computed []daySlots, windows map[string]*model.AvailabilityWindow) (int, int, error) {
	now := s.clock.Now().UTC()
	horizonEnd := now.AddDate(0, 0, s.cfg.CacheHorizonDays)

	published, skipped := 0, 0
	for _, c := range computed {
		var observed int64
		if w := windows[c.key]; w != nil {
			observed = w.Version
		}

		ok, err := s.repo.ReplaceDay(ctx, repository.DayWrite{
			TenantID:        tenantID,
			ResourceID:      resourceID,
			Day:             c.key,
			Spec:            c.spec,
			ObservedVersion: observed,
			Slots:           c.slots,
			ComputedAt:      now,
			HorizonEnd:      horizonEnd,
		})
		if err != nil {
			return published, skipped, err
		}
		if ok {
			published++
		} else {
			skipped++
		}
	}
	return published, skipped, nil
}

func (s *cacheService) writeBack(ctx context.Context, tenantID, resourceID string, computed []daySlots, windows map[string]*model.AvailabilityWindow) {
	now := s.clock.Now().UTC()
	horizonEnd := now.AddDate(0, 0, s.cfg.CacheHorizonDays)

	var inHorizon []daySlots
	for _, c := range computed {
		if c.day.End.After(now) && c.day.Start.Before(horizonEnd) {
			inHorizon = append(inHorizon, c)
		}
	}
	if len(inHorizon) == 0 {
		return
	}

	if _, _, err := s.publish(ctx, tenantID, resourceID, inHorizon, windows); err != nil {
		s.cfg.Log.Warn("Failed to write back availability slots",
			"tenant_id", tenantID,
			"resource_id", resourceID,
			"error", err,
		)
	}
}

// slotSpecs returns the distinct specs of the tenant's services plus the
// default duration.
func (s *cacheService) slotSpecs(ctx context.Context, tenantID string) ([]model.SlotSpec, error) {
	services, err := s.services.FindByTenant(ctx, tenantID)
	if err != nil {
		s.cfg.Log.Error("Failed to load services", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to load services", err)
	}

	seen := make(map[string]struct{})
	var specs []model.SlotSpec
	add := func(spec model.SlotSpec) {
		if spec.DurationMin <= 0 {
			return
		}
		if _, ok := seen[spec.Key()]; ok {
			return
		}
		seen[spec.Key()] = struct{}{}
		specs = append(specs, spec)
	}

	add(model.NewSlotSpec(s.cfg.DefaultDurationMin, 0))
	for _, svc := range services {
		add(svc.SlotSpec())
	}
	return specs, nil
}

func dayKeys(days []interval.Interval, loc *time.Location) []string {
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, calendarservice.DayKey(d.Start, loc))
	}
	return keys
}

// dedup sorts slots and drops exact duplicates.
func dedup(slots []interval.Interval) []interval.Interval {
	if len(slots) == 0 {
		return nil
	}
	interval.Sort(slots)
	out := slots[:1]
	for _, s := range slots[1:] {
		last := out[len(out)-1]
		if s.Start.Equal(last.Start) && s.End.Equal(last.End) {
			continue
		}
		out = append(out, s)
	}
	return out
}
