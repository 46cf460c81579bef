package availability

import (
	"testing"
	"time"

	"slotkeeper/pkg/interval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func iv(h1, m1, h2, m2 int) interval.Interval {
	return interval.Interval{
		Start: base.Add(time.Duration(h1)*time.Hour + time.Duration(m1)*time.Minute),
		End:   base.Add(time.Duration(h2)*time.Hour + time.Duration(m2)*time.Minute),
	}
}

func TestComputeFreeSlots_MondayScenario(t *testing.T) {
	working := []interval.Interval{iv(9, 0, 17, 0)}
	busy := []interval.Interval{iv(10, 0, 11, 0)}

	slots := ComputeFreeSlots(working, busy, time.Hour, 0)

	require.NotEmpty(t, slots)
	assert.Equal(t, iv(9, 0, 10, 0), slots[0])
	assert.Len(t, slots, 7)
	for _, s := range slots {
		assert.False(t, interval.Overlaps(s, busy[0]), "slot %s overlaps booking", s)
	}
}

func TestComputeFreeSlots(t *testing.T) {
	tests := []struct {
		name     string
		working  []interval.Interval
		busy     []interval.Interval
		duration time.Duration
		step     time.Duration
		want     []interval.Interval
	}{
		{
			name:     "no working hours",
			busy:     []interval.Interval{iv(9, 0, 10, 0)},
			duration: time.Hour,
		},
		{
			name:     "fragment shorter than duration",
			working:  []interval.Interval{iv(9, 0, 9, 45)},
			duration: time.Hour,
		},
		{
			name:     "fragment exactly one slot",
			working:  []interval.Interval{iv(9, 0, 10, 0)},
			duration: time.Hour,
			want:     []interval.Interval{iv(9, 0, 10, 0)},
		},
		{
			name:     "anchored at fragment start after busy",
			working:  []interval.Interval{iv(9, 0, 12, 0)},
			busy:     []interval.Interval{iv(9, 0, 9, 20)},
			duration: time.Hour,
			want:     []interval.Interval{iv(9, 20, 10, 20), iv(10, 20, 11, 20)},
		},
		{
			name:     "finer step",
			working:  []interval.Interval{iv(9, 0, 10, 30)},
			duration: time.Hour,
			step:     15 * time.Minute,
			want:     []interval.Interval{iv(9, 0, 10, 0), iv(9, 15, 10, 15), iv(9, 30, 10, 30)},
		},
		{
			name:     "touching busy leaves edges bookable",
			working:  []interval.Interval{iv(9, 0, 11, 0)},
			busy:     []interval.Interval{iv(8, 0, 9, 0), iv(11, 0, 12, 0)},
			duration: time.Hour,
			want:     []interval.Interval{iv(9, 0, 10, 0), iv(10, 0, 11, 0)},
		},
		{
			name:     "several working ranges with unsorted busy",
			working:  []interval.Interval{iv(14, 0, 16, 0), iv(9, 0, 12, 0)},
			busy:     []interval.Interval{iv(15, 0, 15, 30), iv(10, 0, 11, 0)},
			duration: time.Hour,
			want:     []interval.Interval{iv(9, 0, 10, 0), iv(11, 0, 12, 0), iv(14, 0, 15, 0)},
		},
		{
			name:     "busy spanning two working ranges",
			working:  []interval.Interval{iv(9, 0, 12, 0), iv(13, 0, 17, 0)},
			busy:     []interval.Interval{iv(11, 0, 14, 0)},
			duration: time.Hour,
			want:     []interval.Interval{iv(9, 0, 10, 0), iv(10, 0, 11, 0), iv(14, 0, 15, 0), iv(15, 0, 16, 0), iv(16, 0, 17, 0)},
		},
		{
			name:     "zero duration",
			working:  []interval.Interval{iv(9, 0, 17, 0)},
			duration: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeFreeSlots(tt.working, tt.busy, tt.duration, tt.step))
		})
	}
}

func TestComputeFreeSlots_Properties(t *testing.T) {
	working := []interval.Interval{iv(8, 0, 12, 0), iv(13, 0, 19, 0)}
	busy := []interval.Interval{iv(8, 40, 9, 10), iv(12, 30, 13, 45), iv(16, 0, 16, 5), iv(18, 0, 20, 0)}

	for _, step := range []time.Duration{5 * time.Minute, 15 * time.Minute, 0} {
		slots := ComputeFreeSlots(working, busy, 30*time.Minute, step)
		for i, s := range slots {
			assert.Equal(t, 30*time.Minute, s.Duration())

			inside := false
			for _, w := range working {
				inside = inside || w.Contains(s)
			}
			assert.True(t, inside, "slot %s outside working hours", s)

			for _, b := range busy {
				assert.False(t, interval.Overlaps(s, b), "slot %s overlaps busy %s", s, b)
			}
			if i > 0 {
				assert.True(t, slots[i-1].Start.Before(s.Start), "slots not ordered")
			}
		}
	}
}

func TestFilterWithin(t *testing.T) {
	slots := []interval.Interval{iv(9, 0, 10, 0), iv(10, 0, 11, 0), iv(11, 0, 12, 0)}
	assert.Equal(t, []interval.Interval{iv(10, 0, 11, 0)}, FilterWithin(slots, iv(9, 10, 11, 30)))
}
