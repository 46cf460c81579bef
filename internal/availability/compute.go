// Package availability turns working time and occupied time into bookable
// slots. Everything here is pure and deterministic.
package availability

import (
	"time"

	"slotkeeper/pkg/interval"
)

// ComputeFreeSlots returns every slot of exactly duration that fits inside
// working time without overlapping busy time. Candidates start at each free
// fragment's start and advance by step; step <= 0 means step = duration.
// working and busy may be unsorted; the result is ordered by start.
func ComputeFreeSlots(working, busy []interval.Interval, duration, step time.Duration) []interval.Interval {
	if duration <= 0 || len(working) == 0 {
		return nil
	}
	if step <= 0 {
		step = duration
	}

	busyMerged := interval.Merge(busy)

	var slots []interval.Interval
	next := 0
	for _, w := range interval.Merge(working) {
		// Busy ranges ending before this working range can never matter again.
		for next < len(busyMerged) && !busyMerged[next].End.After(w.Start) {
			next++
		}
		var relevant []interval.Interval
		for i := next; i < len(busyMerged) && busyMerged[i].Start.Before(w.End); i++ {
			relevant = append(relevant, busyMerged[i])
		}

		for _, fragment := range interval.Subtract(w, relevant) {
			slots = appendSlots(slots, fragment, duration, step)
		}
	}
	return slots
}

func appendSlots(slots []interval.Interval, fragment interval.Interval, duration, step time.Duration) []interval.Interval {
	for start := fragment.Start; !start.Add(duration).After(fragment.End); start = start.Add(step) {
		slots = append(slots, interval.Interval{Start: start, End: start.Add(duration)})
	}
	return slots
}

// FilterWithin keeps the slots fully inside window.
func FilterWithin(slots []interval.Interval, window interval.Interval) []interval.Interval {
	var result []interval.Interval
	for _, s := range slots {
		if window.Contains(s) {
			result = append(result, s)
		}
	}
	return result
}
