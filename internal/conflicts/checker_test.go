package conflicts

import (
	"context"
	"errors"
	"testing"
	"time"

	"slotkeeper/internal/testutil"
	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func reservation(resourceID string, h1, m1, h2, m2 int, status string) *model.Reservation {
	return &model.Reservation{
		TenantID:   "t1",
		ResourceID: resourceID,
		StartAt:    at(h1, m1),
		EndAt:      at(h2, m2),
		Status:     status,
	}
}

func TestCheck(t *testing.T) {
	store := testutil.NewReservationStore(
		reservation("r1", 10, 0, 11, 0, model.ReservationConfirmed),
		reservation("r1", 12, 0, 13, 0, model.ReservationCancelled),
		reservation("r2", 14, 0, 15, 0, model.ReservationPending),
		reservation("", 16, 0, 17, 0, model.ReservationConfirmed),
		&model.Reservation{TenantID: "t2", ResourceID: "r1", StartAt: at(9, 0), EndAt: at(18, 0), Status: model.ReservationConfirmed},
	)
	checker := NewChecker(store, testutil.NewConfig())

	tests := []struct {
		name      string
		query     ConflictQuery
		conflicts int
	}{
		{"touching before", ConflictQuery{TenantID: "t1", ResourceIDs: []string{"r1"}, Start: at(9, 0), End: at(10, 0)}, 0},
		{"touching after", ConflictQuery{TenantID: "t1", ResourceIDs: []string{"r1"}, Start: at(11, 0), End: at(12, 0)}, 0},
		{"one minute overlap", ConflictQuery{TenantID: "t1", ResourceIDs: []string{"r1"}, Start: at(10, 59), End: at(11, 30)}, 1},
		{"cancelled does not occupy", ConflictQuery{TenantID: "t1", ResourceIDs: []string{"r1"}, Start: at(12, 0), End: at(13, 0)}, 0},
		{"other resource ignored", ConflictQuery{TenantID: "t1", ResourceIDs: []string{"r1"}, Start: at(14, 0), End: at(15, 0)}, 0},
		{"tenant-wide reservation blocks resource", ConflictQuery{TenantID: "t1", ResourceIDs: []string{"r1"}, Start: at(16, 30), End: at(17, 30)}, 1},
		{"tenant-wide query sees every resource", ConflictQuery{TenantID: "t1", Start: at(10, 30), End: at(16, 30)}, 3},
		{"other tenant isolated", ConflictQuery{TenantID: "t1", ResourceIDs: []string{"r3"}, Start: at(9, 0), End: at(10, 0)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := checker.Check(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Len(t, result.Conflicts, tt.conflicts)
			assert.Equal(t, tt.conflicts > 0, result.HasConflict)
		})
	}
}

func TestCheck_Errors(t *testing.T) {
	store := testutil.NewReservationStore()
	checker := NewChecker(store, testutil.NewConfig())

	_, err := checker.Check(context.Background(), ConflictQuery{TenantID: "t1", Start: at(11, 0), End: at(10, 0)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	store.FindErr = errors.New("server selection timeout")
	_, err = checker.Check(context.Background(), ConflictQuery{TenantID: "t1", Start: at(10, 0), End: at(11, 0)})
	assert.True(t, apperrors.IsInternal(err))
}
