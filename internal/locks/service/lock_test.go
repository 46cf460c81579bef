package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"slotkeeper/internal/testutil"
	"slotkeeper/pkg/clock"
	apperrors "slotkeeper/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func req(resourceID string, h1, m1, h2, m2 int) LockRequest {
	return LockRequest{TenantID: "t1", ResourceID: resourceID, Start: at(h1, m1), End: at(h2, m2)}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func newLockService(store *testutil.LockStore, clk clock.Clock) LockService {
	return NewLockService(store, testutil.NewConfig(), clk)
}

// ────────────────────────────────────────────────
// Bucket keys
// ────────────────────────────────────────────────

func TestBucketKeys(t *testing.T) {
	keys := BucketKeys(req("r1", 14, 0, 15, 0), 5*time.Minute)
	require.Len(t, keys, 12)
	assert.Equal(t, "t1|r1|"+itoa(at(14, 0).Unix()), keys[0])
	assert.Equal(t, "t1|r1|"+itoa(at(14, 55).Unix()), keys[11])

	unaligned := BucketKeys(req("r1", 14, 3, 14, 7), 5*time.Minute)
	assert.Equal(t, []string{"t1|r1|" + itoa(at(14, 0).Unix()), "t1|r1|" + itoa(at(14, 5).Unix())}, unaligned)

	next := BucketKeys(req("r1", 15, 0, 16, 0), 5*time.Minute)
	assert.NotContains(t, next, keys[11], "back-to-back ranges must not share a bucket")

	tenantWide := BucketKeys(LockRequest{
		TenantID:        "t1",
		Start:           at(14, 0),
		End:             at(14, 10),
		TenantResources: []string{"r1", "r2"},
	}, 5*time.Minute)
	assert.Len(t, tenantWide, 6)
	assert.Contains(t, tenantWide, "t1|*|"+itoa(at(14, 0).Unix()))
	assert.Contains(t, tenantWide, "t1|r2|"+itoa(at(14, 5).Unix()))
}

// ────────────────────────────────────────────────
// Acquire / Release
// ────────────────────────────────────────────────

func TestAcquire_Exclusion(t *testing.T) {
	tests := []struct {
		name     string
		first    LockRequest
		second   LockRequest
		conflict bool
	}{
		{"identical", req("r1", 14, 0, 15, 0), req("r1", 14, 0, 15, 0), true},
		{"one minute overlap", req("r1", 14, 0, 15, 0), req("r1", 14, 59, 15, 30), true},
		{"back to back", req("r1", 14, 0, 15, 0), req("r1", 15, 0, 16, 0), false},
		{"back to back off the hour", req("r1", 10, 0, 10, 7), req("r1", 10, 7, 10, 15), false},
		{"one minute overlap off the hour", req("r1", 10, 0, 10, 7), req("r1", 10, 6, 10, 8), true},
		{"other resource", req("r1", 14, 0, 15, 0), req("r2", 14, 0, 15, 0), false},
		{"other tenant", req("r1", 14, 0, 15, 0), LockRequest{TenantID: "t2", ResourceID: "r1", Start: at(14, 0), End: at(15, 0)}, false},
		{
			"tenant-wide blocks resource",
			LockRequest{TenantID: "t1", Start: at(14, 0), End: at(15, 0), TenantResources: []string{"r1", "r2"}},
			req("r2", 14, 30, 14, 45),
			true,
		},
		{
			"resource blocks tenant-wide",
			req("r1", 14, 30, 14, 45),
			LockRequest{TenantID: "t1", Start: at(14, 0), End: at(15, 0), TenantResources: []string{"r1", "r2"}},
			true,
		},
		{
			"tenant-wide blocks tenant-wide",
			LockRequest{TenantID: "t1", Start: at(14, 0), End: at(15, 0)},
			LockRequest{TenantID: "t1", Start: at(14, 30), End: at(15, 30)},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newLockService(testutil.NewLockStore(), clock.NewFake(at(13, 0)))

			_, err := svc.Acquire(context.Background(), tt.first)
			require.NoError(t, err)

			_, err = svc.Acquire(context.Background(), tt.second)
			if tt.conflict {
				assert.True(t, apperrors.IsConflict(err), "expected conflict, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAcquire_ConcurrentAtMostOneWins(t *testing.T) {
	svc := newLockService(testutil.NewLockStore(), clock.System())

	const attempts = 50
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			<-start
			// Every request overlaps 14:00-15:00 by at least a minute.
			_, err := svc.Acquire(context.Background(), req("r1", 14, offset%30, 15, 0))
			switch {
			case err == nil:
				wins.Add(1)
			case apperrors.IsConflict(err):
				conflicts.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
}

func TestAcquire_ConcurrentAdjacentRanges(t *testing.T) {
	svc := newLockService(testutil.NewLockStore(), clock.System())

	// Back-to-back seven-minute ranges from 10:00.
	const ranges = 8
	errs := make([]error, ranges)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < ranges; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			from := at(10, 0).Add(time.Duration(7*i) * time.Minute)
			_, errs[i] = svc.Acquire(context.Background(), LockRequest{
				TenantID:   "t1",
				ResourceID: "r1",
				Start:      from,
				End:        from.Add(7 * time.Minute),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "range %d", i)
	}
}

func TestAcquire_TenantWideDayWithinKeyLimit(t *testing.T) {
	svc := newLockService(testutil.NewLockStore(), clock.NewFake(at(0, 0)))

	resources := []string{"r1", "r2", "r3", "r4", "r5"}
	_, err := svc.Acquire(context.Background(), LockRequest{
		TenantID:        "t1",
		Start:           at(0, 0),
		End:             at(0, 0).AddDate(0, 0, 1),
		TenantResources: resources,
	})
	assert.NoError(t, err)
}

func TestAcquire_ExpiredLockIsReclaimed(t *testing.T) {
	clk := clock.NewFake(at(13, 0))
	svc := newLockService(testutil.NewLockStore(), clk)

	r := req("r1", 14, 0, 15, 0)
	r.LockDuration = 2 * time.Minute
	lock, err := svc.Acquire(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, at(13, 2), lock.ExpiresAt)

	clk.Advance(time.Minute)
	_, err = svc.Acquire(context.Background(), req("r1", 14, 0, 15, 0))
	assert.True(t, apperrors.IsConflict(err))

	clk.Advance(2 * time.Minute)
	_, err = svc.Acquire(context.Background(), req("r1", 14, 0, 15, 0))
	assert.NoError(t, err)
}

func TestRelease(t *testing.T) {
	store := testutil.NewLockStore()
	svc := newLockService(store, clock.NewFake(at(13, 0)))

	lock, err := svc.Acquire(context.Background(), req("r1", 14, 0, 15, 0))
	require.NoError(t, err)

	require.NoError(t, svc.Release(context.Background(), lock.LockID))
	require.NoError(t, svc.Release(context.Background(), lock.LockID), "release must be idempotent")
	assert.Zero(t, store.Held())

	_, err = svc.Acquire(context.Background(), req("r1", 14, 0, 15, 0))
	assert.NoError(t, err)
}

func TestAcquire_Errors(t *testing.T) {
	svc := newLockService(testutil.NewLockStore(), clock.NewFake(at(13, 0)))

	_, err := svc.Acquire(context.Background(), LockRequest{ResourceID: "r1", Start: at(14, 0), End: at(15, 0)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Acquire(context.Background(), req("r1", 15, 0, 14, 0))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Acquire(context.Background(), LockRequest{TenantID: "t1", ResourceID: "r1", Start: at(0, 0), End: at(0, 0).AddDate(1, 0, 0)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	store := testutil.NewLockStore()
	store.AcquireErr = errors.New("no reachable servers")
	_, err = newLockService(store, clock.System()).Acquire(context.Background(), req("r1", 14, 0, 15, 0))
	assert.True(t, apperrors.IsInternal(err))

	store.ReleaseErr = errors.New("no reachable servers")
	err = newLockService(store, clock.System()).Release(context.Background(), "lock-1")
	assert.True(t, apperrors.IsInternal(err))
}
