package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"slotkeeper/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors for an AppError details map.
func (v ValidationErrors) Details() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return map[string]any{"fields": fields}
}

// New returns a validator with the shared custom tags registered:
// hhmm ("HH:MM", 24:00 allowed) and tz (IANA zone name).
func New(log *logger.Logger) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		log.Fatal("Failed to register 'hhmm' validator", "error", err)
	}
	if err := v.RegisterValidation("tz", validateTimeZone); err != nil {
		log.Fatal("Failed to register 'tz' validator", "error", err)
	}
	return v
}

// Translate converts validator errors into field-level messages. Other
// errors are returned unchanged.
func Translate(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	result := make(ValidationErrors, 0, len(validationErrs))
	for _, fe := range validationErrs {
		result = append(result, ValidationError{Field: fe.Field(), Message: message(fe)})
	}
	return result
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "hhmm":
		return fmt.Sprintf("%s must be in HH:MM 24-hour format", fe.Field())
	case "valid_time_range":
		return fmt.Sprintf("%s must be after start_time", fe.Field())
	case "valid_interval":
		return fmt.Sprintf("%s must be at most %s after start_at", fe.Field(), fe.Param())
	case "max_span":
		return fmt.Sprintf("%s must be within %s days of the start", fe.Field(), fe.Param())
	case "date_order":
		return fmt.Sprintf("%s must not be before the start date", fe.Field())
	case "whole_minutes":
		return "start_at and end_at must be whole minutes"
	case "tz", "timezone":
		return fmt.Sprintf("%s must be a valid IANA time zone", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	case "mongodb":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	}
	return fe.Error()
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// ParseHHMM returns minutes since midnight. "24:00" is accepted as the end of day.
func ParseHHMM(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", value)
	if err != nil || len(value) != 5 {
		return 0, fmt.Errorf("invalid HH:MM value %q", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func validateHHMM(fl validator.FieldLevel) bool {
	_, err := ParseHHMM(fl.Field().String())
	return err == nil
}

func validateTimeZone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return true
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
