package validator

import (
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// WorkingHoursValidator checks single rules so the loader can drop a bad
// rule and keep the rest of the calendar.
type WorkingHoursValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewWorkingHoursValidator(log *logger.Logger) *WorkingHoursValidator {
	v := validation.New(log)
	v.RegisterStructValidation(validateWeeklyRule, model.WeeklyRule{})
	v.RegisterStructValidation(validateTimeRange, model.TimeRange{})

	return &WorkingHoursValidator{
		validate: v,
		logger:   log,
	}
}

func (v *WorkingHoursValidator) ValidateWeeklyRule(rule model.WeeklyRule) error {
	return validation.Translate(v.validate.Struct(rule))
}

func (v *WorkingHoursValidator) ValidateTimeRange(r model.TimeRange) error {
	return validation.Translate(v.validate.Struct(r))
}

func (v *WorkingHoursValidator) ValidateOverrideDate(o model.DateOverride) error {
	return validation.Translate(v.validate.StructPartial(o, "Date"))
}

func validateWeeklyRule(sl validator.StructLevel) {
	rule := sl.Current().Interface().(model.WeeklyRule)
	checkOrder(sl, rule.StartTime, rule.EndTime)
}

func validateTimeRange(sl validator.StructLevel) {
	r := sl.Current().Interface().(model.TimeRange)
	checkOrder(sl, r.StartTime, r.EndTime)
}

// checkOrder reports end_time when it does not come after start_time.
// Malformed values are already reported by the hhmm tag.
func checkOrder(sl validator.StructLevel, startTime, endTime string) {
	start, err := validation.ParseHHMM(startTime)
	if err != nil {
		return
	}
	end, err := validation.ParseHHMM(endTime)
	if err != nil {
		return
	}
	if start >= end {
		sl.ReportError(endTime, "end_time", "EndTime", "valid_time_range", "")
	}
}
