package service

import (
	"sort"

	"slotkeeper/pkg/model"
)

func before(a, b model.Slot) bool {
	if !a.StartAt.Equal(b.StartAt) {
		return a.StartAt.Before(b.StartAt)
	}
	return a.ResourceID < b.ResourceID
}

// soonest merges the per-resource lists by start time.
func soonest(perResource [][]model.Slot, limit int) []model.Slot {
	all := []model.Slot{}
	for _, slots := range perResource {
		all = append(all, slots...)
	}
	sort.Slice(all, func(i, j int) bool { return before(all[i], all[j]) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// balanced takes one slot per resource per round, so the first results
// spread across staff instead of filling the earliest resource's day.
// Within a round resources are ordered by their next slot.
func balanced(perResource [][]model.Slot, limit int) []model.Slot {
	queues := make([][]model.Slot, 0, len(perResource))
	for _, slots := range perResource {
		if len(slots) > 0 {
			queues = append(queues, slots)
		}
	}

	result := []model.Slot{}
	for len(queues) > 0 && len(result) < limit {
		sort.Slice(queues, func(i, j int) bool { return before(queues[i][0], queues[j][0]) })

		next := queues[:0]
		for _, q := range queues {
			if len(result) == limit {
				break
			}
			result = append(result, q[0])
			if len(q) > 1 {
				next = append(next, q[1:])
			}
		}
		queues = next
	}
	return result
}
