package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"slotkeeper/internal/availability/cache/repository"
	calendarservice "slotkeeper/internal/calendar/service"
	"slotkeeper/internal/calendar/validator"
	"slotkeeper/internal/testutil"
	"slotkeeper/pkg/clock"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func span(day, h1, m1, h2, m2 int) interval.Interval {
	return interval.Interval{Start: at(day, h1, m1), End: at(day, h2, m2)}
}

type fixture struct {
	workingHours *testutil.WorkingHoursStore
	reservations *testutil.ReservationStore
	services     *testutil.ServiceStore
	cache        *testutil.CacheStore
	clock        *clock.Fake
	svc          CacheService
}

func weekdays(resourceID string) *model.WorkingHours {
	wh := &model.WorkingHours{ResourceID: resourceID, TenantID: "t1"}
	for d := 1; d <= 5; d++ {
		wh.Weekly = append(wh.Weekly, model.WeeklyRule{DayOfWeek: d, StartTime: "09:00", EndTime: "17:00"})
	}
	return wh
}

func newFixture(writeBack bool) *fixture {
	f := &fixture{
		workingHours: testutil.NewWorkingHoursStore(weekdays("r1"), weekdays("r2")),
		reservations: testutil.NewReservationStore(),
		services: testutil.NewServiceStore(
			&model.Service{ID: "s1", TenantID: "t1", Name: "Haircut", DurationMin: 60},
			&model.Service{ID: "s2", TenantID: "t1", Name: "Beard trim", DurationMin: 20, SlotStepMin: 10},
		),
		cache: testutil.NewCacheStore(),
		clock: clock.NewFake(at(0, 6, 0)),
	}
	f.svc = f.build(f.cache, writeBack)
	return f
}

func (f *fixture) build(cache repository.CacheRepository, writeBack bool) CacheService {
	cfg := testutil.NewConfig()
	cfg.CacheWriteBack = writeBack
	cal := calendarservice.NewCalendarService(f.workingHours, f.reservations, validator.NewWorkingHoursValidator(cfg.Log), cfg)
	return NewCacheService(cache, cal, f.services, cfg, f.clock)
}

// naive computes straight from the calendar with an empty, read-only cache.
func (f *fixture) naive() CacheService {
	return f.build(testutil.NewCacheStore(), false)
}

func (f *fixture) book(resourceID string, iv interval.Interval) {
	f.reservations.Add(&model.Reservation{
		TenantID:   "t1",
		ResourceID: resourceID,
		StartAt:    iv.Start,
		EndAt:      iv.End,
		Status:     model.ReservationConfirmed,
	})
}

func query(resourceID string, window interval.Interval, durationMin, stepMin int) SlotQuery {
	return SlotQuery{TenantID: "t1", ResourceID: resourceID, Window: window, Spec: model.NewSlotSpec(durationMin, stepMin)}
}

// ────────────────────────────────────────────────
// Read path
// ────────────────────────────────────────────────

func TestFindSlots_MondayScenario(t *testing.T) {
	f := newFixture(false)
	f.book("r1", span(0, 10, 0, 11, 0))

	slots, err := f.svc.FindSlots(context.Background(), query("r1", span(0, 0, 0, 23, 59), 60, 0))
	require.NoError(t, err)

	require.NotEmpty(t, slots)
	assert.Equal(t, span(0, 9, 0, 10, 0), slots[0])
	assert.Equal(t, span(0, 11, 0, 12, 0), slots[1])
}

func TestFindSlots_WindowStartingMidSlot(t *testing.T) {
	f := newFixture(false)

	slots, err := f.svc.FindSlots(context.Background(), query("r1", span(0, 9, 10, 12, 0), 60, 0))
	require.NoError(t, err)

	// Slots are anchored on the working day, not on the query start.
	assert.Equal(t, []interval.Interval{span(0, 10, 0, 11, 0), span(0, 11, 0, 12, 0)}, slots)
}

func TestFindSlots_WriteBack(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	first, err := f.svc.FindSlots(ctx, query("r1", span(0, 0, 0, 24, 0), 60, 0))
	require.NoError(t, err)

	w := f.cache.Window("t1", "r1", "2026-03-02")
	require.NotNil(t, w)
	assert.True(t, w.Fresh("60_60"))

	// Served from rows now: reservation reads would fail.
	f.reservations.FindErr = errors.New("unreachable")
	second, err := f.svc.FindSlots(ctx, query("r1", span(0, 0, 0, 24, 0), 60, 0))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Beyond the horizon nothing is written.
	f.reservations.FindErr = nil
	far := span(30, 0, 0, 24, 0)
	_, err = f.svc.FindSlots(ctx, query("r1", far, 60, 0))
	require.NoError(t, err)
	assert.Nil(t, f.cache.Window("t1", "r1", calendarservice.DayKey(far.Start, time.UTC)))
}

func TestFindSlots_UnreadableCacheFallsBack(t *testing.T) {
	f := newFixture(true)
	f.cache.FindErr = errors.New("cache down")

	slots, err := f.svc.FindSlots(context.Background(), query("r1", span(0, 0, 0, 24, 0), 60, 0))
	require.NoError(t, err)
	assert.Len(t, slots, 8)
}

func TestFindSlots_InvalidQuery(t *testing.T) {
	f := newFixture(false)

	_, err := f.svc.FindSlots(context.Background(), query("r1", interval.Interval{}, 60, 0))
	assert.Error(t, err)

	_, err = f.svc.FindSlots(context.Background(), query("r1", span(0, 9, 0, 17, 0), 0, 0))
	assert.Error(t, err)
}

// ────────────────────────────────────────────────
// Precompute and cache / ground-truth equivalence
// ────────────────────────────────────────────────

func TestPrecompute_MatchesGroundTruth(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.book("r1", span(0, 10, 0, 11, 0))
	f.book("r1", span(0, 13, 15, 14, 40))
	f.book("r1", span(2, 8, 0, 9, 30))
	f.book("r1", span(3, 16, 50, 18, 0))
	f.reservations.Add(&model.Reservation{TenantID: "t1", StartAt: at(1, 12, 0), EndAt: at(1, 13, 0), Status: model.ReservationPending})
	f.reservations.Add(&model.Reservation{TenantID: "t1", ResourceID: "r1", StartAt: at(4, 9, 0), EndAt: at(4, 17, 0), Status: model.ReservationCancelled})

	result, err := f.svc.Precompute(ctx, "t1", "r1", at(0, 0, 0), at(7, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 7, result.Days)
	// Default 30 minute spec plus both service specs.
	assert.Equal(t, 21, result.Published)
	assert.Zero(t, result.Skipped)

	windows := []interval.Interval{
		span(0, 0, 0, 24, 0),
		span(0, 9, 10, 15, 0),
		{Start: at(0, 12, 0), End: at(3, 12, 0)},
		{Start: at(0, 0, 0), End: at(7, 0, 0)},
	}
	specs := []model.SlotSpec{model.NewSlotSpec(60, 0), model.NewSlotSpec(20, 10), model.NewSlotSpec(30, 0)}

	naive := f.naive()
	for _, window := range windows {
		for _, spec := range specs {
			q := SlotQuery{TenantID: "t1", ResourceID: "r1", Window: window, Spec: spec}
			cached, err := f.svc.FindSlots(ctx, q)
			require.NoError(t, err)
			truth, err := naive.FindSlots(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, truth, cached, "window %s spec %s", window, spec.Key())
		}
	}
}

func TestPrecompute_Idempotent(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.svc.Precompute(ctx, "t1", "r1", at(0, 0, 0), at(1, 0, 0))
	require.NoError(t, err)
	rows := len(f.cache.Rows("t1", "r1"))

	_, err = f.svc.Precompute(ctx, "t1", "r1", at(0, 0, 0), at(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, rows, len(f.cache.Rows("t1", "r1")))
}

func TestPrecompute_RacingInvalidationIsNotPublished(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	var once sync.Once
	f.cache.BeforePublish = func(w repository.DayWrite) {
		once.Do(func() {
			// A booking lands between the calendar read and the publish.
			f.book("r1", span(0, 9, 0, 10, 0))
			require.NoError(t, f.svc.Invalidate(ctx, "t1", "r1", span(0, 9, 0, 10, 0)))
		})
	}

	result, err := f.svc.Precompute(ctx, "t1", "r1", at(0, 0, 0), at(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Skipped)

	slots, err := f.svc.FindSlots(ctx, query("r1", span(0, 0, 0, 24, 0), 60, 0))
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, span(0, 10, 0, 11, 0), slots[0], "stale rows must not be served")
}

// ────────────────────────────────────────────────
// Invalidation
// ────────────────────────────────────────────────

func TestInvalidate_Completeness(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.svc.Precompute(ctx, "t1", "r1", at(0, 0, 0), at(2, 0, 0))
	require.NoError(t, err)

	booked := span(0, 14, 0, 15, 0)
	f.book("r1", booked)
	require.NoError(t, f.svc.Invalidate(ctx, "t1", "r1", booked))

	for _, spec := range []model.SlotSpec{model.NewSlotSpec(60, 0), model.NewSlotSpec(20, 10), model.NewSlotSpec(30, 0)} {
		slots, err := f.svc.FindSlots(ctx, SlotQuery{TenantID: "t1", ResourceID: "r1", Window: span(0, 0, 0, 24, 0), Spec: spec})
		require.NoError(t, err)
		for _, s := range slots {
			assert.False(t, interval.Overlaps(s, booked), "slot %s overlaps the new booking", s)
		}
	}

	for _, row := range f.cache.Rows("t1", "r1") {
		stale := interval.Overlaps(interval.Interval{Start: row.StartAt, End: row.EndAt}, booked)
		assert.False(t, stale, "row %s survived invalidation", row.StartAt)
	}

	// The untouched day stays fresh.
	assert.True(t, f.cache.Window("t1", "r1", "2026-03-03").Fresh("60_60"))
}

func TestInvalidate_SpanningDays(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.svc.Precompute(ctx, "t1", "r1", at(0, 0, 0), at(3, 0, 0))
	require.NoError(t, err)

	require.NoError(t, f.svc.Invalidate(ctx, "t1", "r1", interval.Interval{Start: at(0, 22, 0), End: at(1, 2, 0)}))

	assert.False(t, f.cache.Window("t1", "r1", "2026-03-02").Fresh("60_60"))
	assert.False(t, f.cache.Window("t1", "r1", "2026-03-03").Fresh("60_60"))
	assert.True(t, f.cache.Window("t1", "r1", "2026-03-04").Fresh("60_60"))
}

func TestInvalidate_TenantWide(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	for _, r := range []string{"r1", "r2"} {
		_, err := f.svc.Precompute(ctx, "t1", r, at(0, 0, 0), at(1, 0, 0))
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.Invalidate(ctx, "t1", "", span(0, 9, 0, 10, 0)))

	assert.False(t, f.cache.Window("t1", "r1", "2026-03-02").Fresh("60_60"))
	assert.False(t, f.cache.Window("t1", "r2", "2026-03-02").Fresh("60_60"))
}

func TestInvalidate_Errors(t *testing.T) {
	f := newFixture(false)

	assert.Error(t, f.svc.Invalidate(context.Background(), "t1", "r1", interval.Interval{}))

	f.cache.BumpErr = errors.New("write conflict")
	assert.Error(t, f.svc.Invalidate(context.Background(), "t1", "r1", span(0, 9, 0, 10, 0)))
}

func TestPrune(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.svc.Precompute(ctx, "t1", "r1", at(0, 0, 0), at(3, 0, 0))
	require.NoError(t, err)

	deleted, err := f.svc.Prune(ctx, at(2, 6, 0))
	require.NoError(t, err)
	assert.Positive(t, deleted)

	assert.Nil(t, f.cache.Window("t1", "r1", "2026-03-02"))
	assert.NotNil(t, f.cache.Window("t1", "r1", "2026-03-03"))
}
