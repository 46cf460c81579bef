package handler

import (
	"net/http"

	"slotkeeper/internal/scheduler/service"
	apperrors "slotkeeper/pkg/errors"
	httputil "slotkeeper/pkg/http"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/middleware"
	"slotkeeper/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const defaultDaysLookahead = 7

type SchedulerHandler struct {
	service service.SchedulerService
	log     *logger.Logger
}

func NewSchedulerHandler(service service.SchedulerService, log *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		service: service,
		log:     log,
	}
}

func (h *SchedulerHandler) FreeSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	params := httputil.NewQueryParams(r)
	from := params.Time("from", true)
	to := params.Time("to", true)
	durationMin := params.Int("duration_min", 0)
	if err := params.Err(); err != nil {
		h.writeError(w, "FreeSlot", err)
		return
	}

	slot, err := h.service.FindFreeSlot(r.Context(), tenant(r), from, to, durationMin)
	if err != nil {
		h.writeError(w, "FreeSlot", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "FreeSlot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SchedulerHandler) FreeStaff(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	params := httputil.NewQueryParams(r)
	startAt := params.Time("start_at", true)
	endAt := params.Time("end_at", true)
	if err := params.Err(); err != nil {
		h.writeError(w, "FreeStaff", err)
		return
	}

	resources, err := h.service.FindFreeStaff(r.Context(), tenant(r), startAt, endAt)
	if err != nil {
		h.writeError(w, "FreeStaff", err)
		return
	}

	if err := httputil.WriteSuccess(w, resources); err != nil {
		h.log.Error("failed to write success response", "handler", "FreeStaff", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SchedulerHandler) NextSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	params := httputil.NewQueryParams(r)
	from := params.Time("from", true)
	durationMin := params.Int("duration_min", 0)
	daysLookahead := params.Int("days_lookahead", defaultDaysLookahead)
	if err := params.Err(); err != nil {
		h.writeError(w, "NextSlot", err)
		return
	}

	slot, err := h.service.NextAvailableSlot(r.Context(), tenant(r), from, durationMin, daysLookahead)
	if err != nil {
		h.writeError(w, "NextSlot", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "NextSlot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SchedulerHandler) OptimalSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	params := httputil.NewQueryParams(r)
	q := model.OptimalSlotsQuery{
		TenantID:   tenant(r),
		ServiceID:  params.String("service_id", true),
		ResourceID: params.String("resource_id", false),
		StartDate:  params.Date("start_date", true),
		EndDate:    params.Date("end_date", true),
		MaxResults: params.Int("max_results", 0),
		Rank:       params.String("rank", false),
	}
	if err := params.Err(); err != nil {
		h.writeError(w, "OptimalSlots", err)
		return
	}

	slots, err := h.service.FindOptimalSlots(r.Context(), q)
	if err != nil {
		h.writeError(w, "OptimalSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "OptimalSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SchedulerHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability/free-slot", h.FreeSlot)
	router.GET("/api/v1/availability/free-staff", h.FreeStaff)
	router.GET("/api/v1/availability/next-slot", h.NextSlot)
	router.GET("/api/v1/availability/optimal-slots", h.OptimalSlots)
}

func (h *SchedulerHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if !apperrors.IsAppError(err) {
		h.log.Error("unexpected error", "handler", handler, "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func tenant(r *http.Request) string {
	return middleware.DefaultTenantExtractor(r)
}
