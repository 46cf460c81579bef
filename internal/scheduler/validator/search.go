package validator

import (
	"strconv"
	"time"

	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// SearchValidator checks façade queries. maxDays bounds every search window.
type SearchValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
	maxDays  int
}

func NewSearchValidator(log *logger.Logger, maxDays int) *SearchValidator {
	v := &SearchValidator{
		validate: validation.New(log),
		logger:   log,
		maxDays:  maxDays,
	}
	v.validate.RegisterStructValidation(v.checkFreeSlot, model.FreeSlotQuery{})
	v.validate.RegisterStructValidation(v.checkFreeStaff, model.FreeStaffQuery{})
	v.validate.RegisterStructValidation(v.checkNextSlot, model.NextSlotQuery{})
	v.validate.RegisterStructValidation(v.checkOptimal, model.OptimalSlotsQuery{})

	log.Info("Search validator initialized successfully")
	return v
}

func (v *SearchValidator) ValidateFreeSlot(q *model.FreeSlotQuery) error {
	return validation.Translate(v.validate.Struct(q))
}

func (v *SearchValidator) ValidateFreeStaff(q *model.FreeStaffQuery) error {
	return validation.Translate(v.validate.Struct(q))
}

func (v *SearchValidator) ValidateNextSlot(q *model.NextSlotQuery) error {
	return validation.Translate(v.validate.Struct(q))
}

func (v *SearchValidator) ValidateOptimal(q *model.OptimalSlotsQuery) error {
	return validation.Translate(v.validate.Struct(q))
}

func (v *SearchValidator) maxSpan() time.Duration {
	return time.Duration(v.maxDays) * 24 * time.Hour
}

func (v *SearchValidator) checkFreeSlot(sl validator.StructLevel) {
	q := sl.Current().Interface().(model.FreeSlotQuery)
	if q.From.Before(q.To) && q.To.Sub(q.From) > v.maxSpan() {
		sl.ReportError(q.To, "to", "To", "max_span", strconv.Itoa(v.maxDays))
	}
}

func (v *SearchValidator) checkFreeStaff(sl validator.StructLevel) {
	q := sl.Current().Interface().(model.FreeStaffQuery)
	if q.StartAt.Before(q.EndAt) && q.EndAt.Sub(q.StartAt) > v.maxSpan() {
		sl.ReportError(q.EndAt, "end_at", "EndAt", "max_span", strconv.Itoa(v.maxDays))
	}
}

func (v *SearchValidator) checkNextSlot(sl validator.StructLevel) {
	q := sl.Current().Interface().(model.NextSlotQuery)
	if q.DaysLookahead > v.maxDays {
		sl.ReportError(q.DaysLookahead, "days_lookahead", "DaysLookahead", "max", strconv.Itoa(v.maxDays))
	}
}

func (v *SearchValidator) checkOptimal(sl validator.StructLevel) {
	q := sl.Current().Interface().(model.OptimalSlotsQuery)
	start, err := time.Parse(dateLayout, q.StartDate)
	if err != nil {
		return
	}
	end, err := time.Parse(dateLayout, q.EndDate)
	if err != nil {
		return
	}
	if end.Before(start) {
		sl.ReportError(q.EndDate, "end_date", "EndDate", "date_order", "")
		return
	}
	// EndDate is inclusive.
	if end.Sub(start) >= v.maxSpan() {
		sl.ReportError(q.EndDate, "end_date", "EndDate", "max_span", strconv.Itoa(v.maxDays))
	}
}
