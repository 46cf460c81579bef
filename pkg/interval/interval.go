package interval

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrZeroBoundary = errors.New("interval boundary must be set")
	ErrEmpty        = errors.New("interval start must be before end")
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start" bson:"start_at"`
	End   time.Time `json:"end" bson:"end_at"`
}

// New validates the boundaries and returns the interval.
func New(start, end time.Time) (Interval, error) {
	if start.IsZero() || end.IsZero() {
		return Interval{}, ErrZeroBoundary
	}
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("%w: start=%s end=%s", ErrEmpty, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

func (i Interval) Valid() bool {
	return !i.Start.IsZero() && i.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Contains reports whether other lies fully inside i.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Clip returns the part of i inside bounds. ok is false when nothing remains.
func (i Interval) Clip(bounds Interval) (Interval, bool) {
	start := i.Start
	if bounds.Start.After(start) {
		start = bounds.Start
	}
	end := i.End
	if bounds.End.Before(end) {
		end = bounds.End
	}
	if !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// Overlaps reports whether a and b share any instant. Touching ranges do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Sort orders intervals by start, then by end.
func Sort(intervals []Interval) {
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].End.Before(intervals[j].End)
		}
		return intervals[i].Start.Before(intervals[j].Start)
	})
}

// MergeSorted merges overlapping or touching intervals. Input must be sorted by start.
func MergeSorted(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	merged := make([]Interval, 0, len(intervals))
	current := intervals[0]
	for _, next := range intervals[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// Merge sorts a copy of intervals and merges it.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	Sort(sorted)
	return MergeSorted(sorted)
}

// Subtract removes every busy range from free and returns the remaining
// fragments in start order. busy may be unsorted and may extend past free.
func Subtract(free Interval, busy []Interval) []Interval {
	relevant := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if Overlaps(free, b) {
			relevant = append(relevant, b)
		}
	}
	if len(relevant) == 0 {
		return []Interval{free}
	}

	var fragments []Interval
	cursor := free.Start
	for _, b := range Merge(relevant) {
		if b.Start.After(cursor) {
			fragments = append(fragments, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(free.End) {
			return fragments
		}
	}
	return append(fragments, Interval{Start: cursor, End: free.End})
}
