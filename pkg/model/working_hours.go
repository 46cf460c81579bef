package model

// WorkingHours is the weekly calendar of one resource plus date overrides.
// Times are wall-clock "HH:MM" in TimeZone.
type WorkingHours struct {
	ResourceID string         `json:"resource_id" bson:"resource_id" validate:"required,max=64"`
	TenantID   string         `json:"tenant_id" bson:"tenant_id" validate:"required,max=64"`
	TimeZone   string         `json:"time_zone,omitempty" bson:"time_zone" validate:"omitempty,timezone"`
	Weekly     []WeeklyRule   `json:"weekly" bson:"weekly" validate:"omitempty,max=50,dive"`
	Overrides  []DateOverride `json:"overrides,omitempty" bson:"overrides" validate:"omitempty,dive"`
}

type WeeklyRule struct {
	DayOfWeek int    `json:"day_of_week" bson:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" bson:"end_time" validate:"required,hhmm"`
}

// DateOverride replaces the weekly rules for one local date. An empty
// Intervals list marks the date as a day off.
type DateOverride struct {
	Date      string      `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Intervals []TimeRange `json:"intervals" bson:"intervals" validate:"omitempty,dive"`
}

type TimeRange struct {
	StartTime string `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" bson:"end_time" validate:"required,hhmm"`
}
