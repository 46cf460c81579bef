package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotkeeper/internal/calendar/validator"
	"slotkeeper/internal/testutil"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func utc(day, hour, minute int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func span(day, h1, h2 int) interval.Interval {
	return interval.Interval{Start: utc(day, h1, 0), End: utc(day, h2, 0)}
}

func mondayToFriday(resourceID, tz string) *model.WorkingHours {
	wh := &model.WorkingHours{ResourceID: resourceID, TenantID: "t1", TimeZone: tz}
	for d := 1; d <= 5; d++ {
		wh.Weekly = append(wh.Weekly, model.WeeklyRule{DayOfWeek: d, StartTime: "09:00", EndTime: "17:00"})
	}
	return wh
}

func newService(wh *testutil.WorkingHoursStore, res *testutil.ReservationStore) CalendarService {
	cfg := testutil.NewConfig()
	return NewCalendarService(wh, res, validator.NewWorkingHoursValidator(cfg.Log), cfg)
}

// ────────────────────────────────────────────────
// Working hours expansion
// ────────────────────────────────────────────────

func TestLoad_WeeklyRules(t *testing.T) {
	svc := newService(testutil.NewWorkingHoursStore(mondayToFriday("r1", "")), testutil.NewReservationStore())

	cal, err := svc.Load(context.Background(), "t1", "r1", interval.Interval{Start: utc(0, 0, 0), End: utc(7, 0, 0)})
	require.NoError(t, err)

	require.Len(t, cal.Working, 5)
	assert.Equal(t, span(0, 9, 17), cal.Working[0])
	assert.Equal(t, span(4, 9, 17), cal.Working[4])
	assert.Empty(t, cal.Busy)
}

func TestLoad_TimeZone(t *testing.T) {
	svc := newService(testutil.NewWorkingHoursStore(mondayToFriday("r1", "Asia/Jerusalem")), testutil.NewReservationStore())

	cal, err := svc.Load(context.Background(), "t1", "r1", interval.Interval{Start: utc(0, 0, 0), End: utc(1, 0, 0)})
	require.NoError(t, err)

	// UTC+2 in early March.
	require.Len(t, cal.Working, 1)
	assert.Equal(t, span(0, 7, 15), cal.Working[0])
	assert.Equal(t, "Asia/Jerusalem", cal.Location.String())
}

func TestLoad_ClipsToWindow(t *testing.T) {
	svc := newService(testutil.NewWorkingHoursStore(mondayToFriday("r1", "")), testutil.NewReservationStore())

	cal, err := svc.Load(context.Background(), "t1", "r1", span(0, 10, 12))
	require.NoError(t, err)
	assert.Equal(t, []interval.Interval{span(0, 10, 12)}, cal.Working)
}

func TestLoad_Overrides(t *testing.T) {
	wh := mondayToFriday("r1", "")
	wh.Overrides = []model.DateOverride{
		{Date: "2026-03-02"},
		{Date: "2026-03-03", Intervals: []model.TimeRange{
			{StartTime: "13:00", EndTime: "15:00"},
			{StartTime: "08:00", EndTime: "10:00"},
		}},
		{Date: "2026-03-07", Intervals: []model.TimeRange{{StartTime: "10:00", EndTime: "24:00"}}},
	}
	svc := newService(testutil.NewWorkingHoursStore(wh), testutil.NewReservationStore())

	cal, err := svc.Load(context.Background(), "t1", "r1", interval.Interval{Start: utc(0, 0, 0), End: utc(7, 0, 0)})
	require.NoError(t, err)

	assert.Equal(t, []interval.Interval{
		span(1, 8, 10),
		span(1, 13, 15),
		span(2, 9, 17),
		span(3, 9, 17),
		span(4, 9, 17),
		{Start: utc(5, 10, 0), End: utc(6, 0, 0)},
	}, cal.Working)
}

func TestLoad_SkipsMalformedRules(t *testing.T) {
	wh := &model.WorkingHours{ResourceID: "r1", TenantID: "t1", Weekly: []model.WeeklyRule{
		{DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"},
		{DayOfWeek: 1, StartTime: "nine", EndTime: "10:00"},
		{DayOfWeek: 9, StartTime: "09:00", EndTime: "10:00"},
		{DayOfWeek: 1, StartTime: "12:00", EndTime: "13:00"},
	}, Overrides: []model.DateOverride{
		{Date: "not-a-date", Intervals: []model.TimeRange{{StartTime: "00:00", EndTime: "24:00"}}},
	}}
	svc := newService(testutil.NewWorkingHoursStore(wh), testutil.NewReservationStore())

	cal, err := svc.Load(context.Background(), "t1", "r1", interval.Interval{Start: utc(0, 0, 0), End: utc(1, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []interval.Interval{span(0, 12, 13)}, cal.Working)
}

func TestLoad_FailsClosed(t *testing.T) {
	window := interval.Interval{Start: utc(0, 0, 0), End: utc(1, 0, 0)}

	tests := []struct {
		name  string
		store *testutil.WorkingHoursStore
	}{
		{"no working hours", testutil.NewWorkingHoursStore()},
		{"invalid time zone", testutil.NewWorkingHoursStore(mondayToFriday("r1", "Nowhere/Land"))},
		{"other tenant", testutil.NewWorkingHoursStore(&model.WorkingHours{
			ResourceID: "r1", TenantID: "t2",
			Weekly: []model.WeeklyRule{{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal, err := newService(tt.store, testutil.NewReservationStore()).Load(context.Background(), "t1", "r1", window)
			require.NoError(t, err)
			assert.Empty(t, cal.Working)
		})
	}
}

func TestLoad_Reservations(t *testing.T) {
	res := testutil.NewReservationStore(
		&model.Reservation{TenantID: "t1", ResourceID: "r1", StartAt: utc(0, 10, 0), EndAt: utc(0, 11, 0), Status: model.ReservationConfirmed},
		&model.Reservation{TenantID: "t1", ResourceID: "r1", StartAt: utc(0, 10, 30), EndAt: utc(0, 12, 0), Status: model.ReservationPending},
		&model.Reservation{TenantID: "t1", ResourceID: "r1", StartAt: utc(0, 14, 0), EndAt: utc(0, 15, 0), Status: model.ReservationCancelled},
		&model.Reservation{TenantID: "t1", ResourceID: "r2", StartAt: utc(0, 14, 0), EndAt: utc(0, 15, 0), Status: model.ReservationConfirmed},
		&model.Reservation{TenantID: "t1", StartAt: utc(0, 16, 0), EndAt: utc(0, 17, 0), Status: model.ReservationConfirmed},
	)
	svc := newService(testutil.NewWorkingHoursStore(mondayToFriday("r1", "")), res)

	cal, err := svc.Load(context.Background(), "t1", "r1", span(0, 0, 24))
	require.NoError(t, err)

	assert.Len(t, cal.Reservations, 3)
	assert.Equal(t, []interval.Interval{span(0, 10, 12), span(0, 16, 17)}, cal.Busy)
}

func TestLoad_StoreErrors(t *testing.T) {
	wh := testutil.NewWorkingHoursStore()
	wh.Err = errors.New("connection refused")
	_, err := newService(wh, testutil.NewReservationStore()).Load(context.Background(), "t1", "r1", span(0, 9, 17))
	assert.True(t, apperrors.IsInternal(err))

	res := testutil.NewReservationStore()
	res.FindErr = errors.New("connection refused")
	_, err = newService(testutil.NewWorkingHoursStore(mondayToFriday("r1", "")), res).Load(context.Background(), "t1", "r1", span(0, 9, 17))
	assert.True(t, apperrors.IsInternal(err))
}

// ────────────────────────────────────────────────
// Tenant-wide loading
// ────────────────────────────────────────────────

func TestLoadTenant(t *testing.T) {
	res := testutil.NewReservationStore(
		&model.Reservation{TenantID: "t1", ResourceID: "r1", StartAt: utc(0, 10, 0), EndAt: utc(0, 11, 0), Status: model.ReservationConfirmed},
		&model.Reservation{TenantID: "t1", StartAt: utc(0, 13, 0), EndAt: utc(0, 14, 0), Status: model.ReservationConfirmed},
		&model.Reservation{TenantID: "t2", ResourceID: "r2", StartAt: utc(0, 9, 0), EndAt: utc(0, 17, 0), Status: model.ReservationConfirmed},
	)
	store := testutil.NewWorkingHoursStore(mondayToFriday("r1", ""), mondayToFriday("r2", ""))
	svc := newService(store, res)

	cals, err := svc.LoadTenant(context.Background(), "t1", span(0, 0, 24))
	require.NoError(t, err)
	require.Len(t, cals, 2)

	assert.Equal(t, "r1", cals[0].ResourceID)
	assert.Equal(t, []interval.Interval{span(0, 10, 11), span(0, 13, 14)}, cals[0].Busy)
	assert.Equal(t, "r2", cals[1].ResourceID)
	assert.Equal(t, []interval.Interval{span(0, 13, 14)}, cals[1].Busy)

	resources, err := svc.ListResources(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, resources)
}

func TestLocation(t *testing.T) {
	store := testutil.NewWorkingHoursStore(mondayToFriday("r1", "Europe/London"), mondayToFriday("r2", "Bad/Zone"))
	svc := newService(store, testutil.NewReservationStore())

	loc, err := svc.Location(context.Background(), "t1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())

	loc, err = svc.Location(context.Background(), "t1", "r2")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = svc.Location(context.Background(), "t1", "missing")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
