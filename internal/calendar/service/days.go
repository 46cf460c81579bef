package service

import (
	"time"

	"slotkeeper/pkg/interval"
)

const DayLayout = "2006-01-02"

// DayBounds returns [local midnight, next local midnight) of the date t
// falls on in loc. The length is not always 24h around DST changes.
func DayBounds(t time.Time, loc *time.Location) interval.Interval {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return interval.Interval{Start: start.UTC(), End: end.UTC()}
}

// DaysIn returns the bounds of every local day window touches, in order.
func DaysIn(window interval.Interval, loc *time.Location) []interval.Interval {
	if !window.Valid() {
		return nil
	}

	var days []interval.Interval
	day := DayBounds(window.Start, loc)
	for day.Start.Before(window.End) {
		days = append(days, day)
		day = DayBounds(day.End, loc)
	}
	return days
}

// DayKey formats the local date of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// LoadLocation resolves an IANA zone name; empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
