package validation

import (
	"errors"
	"testing"

	"slotkeeper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Start    string `json:"start_time" validate:"required,hhmm"`
	TimeZone string `json:"time_zone" validate:"tz"`
	Count    int    `json:"count" validate:"min=1"`
}

func TestParseHHMM(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"9:30", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHHMM(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate(t *testing.T) {
	v := New(logger.Discard())

	err := Translate(v.Struct(sample{Start: "25:00", TimeZone: "Mars/Olympus", Count: 0}))
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 3)

	details := verrs.Details()["fields"].(map[string]any)
	assert.Equal(t, "start_time must be in HH:MM 24-hour format", details["start_time"])
	assert.Equal(t, "time_zone must be a valid IANA time zone", details["time_zone"])
	assert.Equal(t, "count must be at least 1", details["count"])
}

func TestTranslate_Valid(t *testing.T) {
	v := New(logger.Discard())
	assert.NoError(t, Translate(v.Struct(sample{Start: "09:00", TimeZone: "Asia/Jerusalem", Count: 1})))

	plain := errors.New("not a validation error")
	assert.Same(t, plain, Translate(plain))
}
