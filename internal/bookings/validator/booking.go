package validator

import (
	"time"

	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// MaxBookingDuration is the longest range a single reservation may cover.
const MaxBookingDuration = 24 * time.Hour

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validation.New(log)
	v.RegisterStructValidation(validateCommitInterval, model.CommitRequest{})

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func (v *BookingValidator) ValidateCommit(req *model.CommitRequest) error {
	return validation.Translate(v.validate.Struct(req))
}

func validateCommitInterval(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.CommitRequest)
	if req.StartAt.IsZero() || !req.StartAt.Before(req.EndAt) {
		return
	}
	if req.EndAt.Sub(req.StartAt) > MaxBookingDuration {
		sl.ReportError(req.EndAt, "end_at", "EndAt", "valid_interval", MaxBookingDuration.String())
	}
	if req.StartAt.Second() != 0 || req.StartAt.Nanosecond() != 0 || req.EndAt.Second() != 0 || req.EndAt.Nanosecond() != 0 {
		sl.ReportError(req.StartAt, "start_at", "StartAt", "whole_minutes", "")
	}
}
