package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cacheservice "slotkeeper/internal/availability/cache/service"
	bookinghandler "slotkeeper/internal/bookings/handler"
	bookingservice "slotkeeper/internal/bookings/service"
	bookingvalidator "slotkeeper/internal/bookings/validator"
	calendarservice "slotkeeper/internal/calendar/service"
	calendarvalidator "slotkeeper/internal/calendar/validator"
	"slotkeeper/internal/conflicts"
	"slotkeeper/internal/events"
	lockservice "slotkeeper/internal/locks/service"
	schedulerhandler "slotkeeper/internal/scheduler/handler"
	schedulerservice "slotkeeper/internal/scheduler/service"
	schedulervalidator "slotkeeper/internal/scheduler/validator"
	"slotkeeper/internal/testutil"
	"slotkeeper/pkg/client"
	"slotkeeper/pkg/clock"
	"slotkeeper/pkg/config"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func weekdays(resourceID string) *model.WorkingHours {
	wh := &model.WorkingHours{ResourceID: resourceID, TenantID: "t1"}
	for d := 1; d <= 5; d++ {
		wh.Weekly = append(wh.Weekly, model.WeeklyRule{DayOfWeek: d, StartTime: "09:00", EndTime: "17:00"})
	}
	return wh
}

func newTestConfig() *config.Config {
	cfg := testutil.NewConfig()
	cfg.Port = config.DefaultPort
	cfg.RateLimitRequests = 1000
	cfg.RateLimitWindow = config.DefaultRateLimitWindow
	cfg.RequestTimeout = config.DefaultRequestTimeout
	cfg.IdempotencyTTL = config.DefaultIdempotencyTTL
	cfg.MaxRequestSize = config.DefaultMaxRequestSize
	cfg.IdleTimeout = config.DefaultIdleTimeout
	cfg.ShutdownTimeout = time.Second
	return cfg
}

// newTestServer wires the real services over in-memory stores.
func newTestServer(t *testing.T, checks map[string]Pinger) *client.AvailabilityClient {
	t.Helper()
	cfg := newTestConfig()
	clk := clock.NewFake(at(6, 0))

	reservations := testutil.NewReservationStore()
	workingHours := testutil.NewWorkingHoursStore(weekdays("r1"), weekdays("r2"))
	services := testutil.NewServiceStore(&model.Service{ID: "s1", TenantID: "t1", DurationMin: 60})

	cal := calendarservice.NewCalendarService(workingHours, reservations, calendarvalidator.NewWorkingHoursValidator(cfg.Log), cfg)
	cache := cacheservice.NewCacheService(testutil.NewCacheStore(), cal, services, cfg, clk)

	bookings := bookingservice.NewBookingService(
		reservations,
		lockservice.NewLockService(testutil.NewLockStore(), cfg, clk),
		conflicts.NewChecker(reservations, cfg),
		cache,
		cal,
		events.NewNoopPublisher(),
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)
	scheduler := schedulerservice.NewSchedulerService(
		cache,
		cal,
		services,
		schedulervalidator.NewSearchValidator(cfg.Log, cfg.MaxDaysLookahead),
		cfg,
	)

	application := NewApplication()
	application.SetApp(cfg,
		NewHealthHandler(checks, cfg.Log),
		bookinghandler.NewBookingHandler(bookings, cfg.Log),
		schedulerhandler.NewSchedulerHandler(scheduler, cfg.Log),
	)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		server.Close()
		application.Shutdown()
	})
	return client.NewAvailabilityClient(server.URL)
}

// ────────────────────────────────────────────────
// Health
// ────────────────────────────────────────────────

func TestHealthAndReady(t *testing.T) {
	healthy := newTestServer(t, map[string]Pinger{
		"mongo": pingerFunc(func(ctx context.Context) error { return nil }),
	})
	resp, err := healthy.HTTP().GET(context.Background(), "/health", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = healthy.HTTP().GET(context.Background(), "/ready", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	degraded := newTestServer(t, map[string]Pinger{
		"mongo": pingerFunc(func(ctx context.Context) error { return nil }),
		"locks": pingerFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})
	resp, err = degraded.HTTP().GET(context.Background(), "/ready", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, resp.DecodeJSON(&body))
	assert.Equal(t, "error", body.Dependencies["locks"])
	assert.Equal(t, "ok", body.Dependencies["mongo"])
}

// ────────────────────────────────────────────────
// Search and book end to end
// ────────────────────────────────────────────────

func TestSearchThenBook(t *testing.T) {
	c := newTestServer(t, nil)
	ctx := context.Background()

	slot, resp, err := c.FreeSlot(ctx, "t1", at(9, 0), at(17, 0), 60)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	assert.Equal(t, "r1", slot.ResourceID)
	assert.True(t, slot.StartAt.Equal(at(9, 0)))

	booking := model.CommitRequest{TenantID: "t1", ResourceID: slot.ResourceID, StartAt: slot.StartAt, EndAt: slot.EndAt}
	reservation, resp, err := c.Book(ctx, booking, "")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))
	assert.Equal(t, model.ReservationConfirmed, reservation.Status)

	_, resp, err = c.Book(ctx, booking, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.CodeConflict, resp.ErrorCode())

	slot, _, err = c.FreeSlot(ctx, "t1", at(9, 0), at(17, 0), 60)
	require.NoError(t, err)
	assert.Equal(t, "r2", slot.ResourceID, "r1 is now booked at 09:00")
	assert.True(t, slot.StartAt.Equal(at(9, 0)))

	staff, _, err := c.FreeStaff(ctx, "t1", at(9, 0), at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, staff)

	got, resp, err := c.GetReservation(ctx, "t1", reservation.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, reservation.ID, got.ID)

	_, resp, err = c.GetReservation(ctx, "t2", reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancelled, resp, err := c.CancelReservation(ctx, "t1", reservation.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)

	staff, _, err = c.FreeStaff(ctx, "t1", at(9, 0), at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, staff)
}

func TestBook_IdempotencyKeyReplays(t *testing.T) {
	c := newTestServer(t, nil)
	ctx := context.Background()
	booking := model.CommitRequest{TenantID: "t1", ResourceID: "r1", StartAt: at(11, 0), EndAt: at(12, 0)}

	first, resp, err := c.Book(ctx, booking, "key-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	second, resp, err := c.Book(ctx, booking, "key-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "a retried request is answered from the stored response")
	assert.Equal(t, first.ID, second.ID)

	_, resp, err = c.Book(ctx, booking, "key-2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOptimalSlots(t *testing.T) {
	c := newTestServer(t, nil)

	slots, resp, err := c.OptimalSlots(context.Background(), "s1", "r1", "2026-03-02", "2026-03-02", 3)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	require.Len(t, slots, 3)
	assert.True(t, slots[0].StartAt.Equal(at(9, 0)))
	assert.True(t, slots[2].StartAt.Equal(at(11, 0)))
}

func TestSearch_ValidationError(t *testing.T) {
	c := newTestServer(t, nil)

	_, resp, err := c.FreeSlot(context.Background(), "t1", at(17, 0), at(9, 0), 60)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, apperrors.CodeValidation, resp.ErrorCode())
}
