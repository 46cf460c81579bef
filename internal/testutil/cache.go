package testutil

import (
	"context"
	"sort"
	"sync"

	"slotkeeper/internal/availability/cache/repository"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"
)

// CacheStore is an in-memory CacheRepository following the same version
// rules as the Mongo implementation.
type CacheStore struct {
	mu      sync.Mutex
	windows map[string]*model.AvailabilityWindow
	slots   []*model.AvailabilitySlot

	BumpErr error
	FindErr error
	// BeforePublish runs inside ReplaceDay after rows are written and
	// before the window is updated.
	BeforePublish func(w repository.DayWrite)
}

func NewCacheStore() *CacheStore {
	return &CacheStore{windows: make(map[string]*model.AvailabilityWindow)}
}

func (s *CacheStore) GetWindows(ctx context.Context, tenantID, resourceID string, days []string) (map[string]*model.AvailabilityWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	result := make(map[string]*model.AvailabilityWindow)
	for _, day := range days {
		if w, ok := s.windows[repository.WindowID(tenantID, resourceID, day)]; ok {
			result[day] = copyWindow(w)
		}
	}
	return result, nil
}

func (s *CacheStore) BumpVersions(ctx context.Context, tenantID, resourceID string, days []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BumpErr != nil {
		return s.BumpErr
	}
	for _, day := range days {
		s.window(tenantID, resourceID, day).Version++
	}
	return nil
}

func (s *CacheStore) ReplaceDay(ctx context.Context, w repository.DayWrite) (bool, error) {
	s.mu.Lock()
	kept := s.slots[:0]
	for _, row := range s.slots {
		if row.TenantID == w.TenantID && row.ResourceID == w.ResourceID && row.Day == w.Day &&
			row.DurationMin == w.Spec.DurationMin && row.StepMin == w.Spec.StepMin && row.Version < w.ObservedVersion {
			continue
		}
		kept = append(kept, row)
	}
	s.slots = kept
	for _, row := range repository.SlotRows(w) {
		if !s.hasRow(row) {
			s.slots = append(s.slots, row)
		}
	}
	s.mu.Unlock()

	if s.BeforePublish != nil {
		s.BeforePublish(w)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	win := s.window(w.TenantID, w.ResourceID, w.Day)
	if win.Version != w.ObservedVersion {
		return false, nil
	}
	win.Specs[w.Spec.Key()] = model.WindowSpec{
		Version:    w.ObservedVersion,
		ComputedAt: w.ComputedAt,
		HorizonEnd: w.HorizonEnd,
	}
	return true, nil
}

func (s *CacheStore) FindSlots(ctx context.Context, f repository.SlotFilter) ([]*model.AvailabilitySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	var result []*model.AvailabilitySlot
	for _, row := range s.slots {
		if row.TenantID == f.TenantID && row.ResourceID == f.ResourceID && row.Day == f.Day &&
			row.DurationMin == f.Spec.DurationMin && row.StepMin == f.Spec.StepMin && row.Version == f.Version {
			cp := *row
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.Before(result[j].StartAt) })
	return result, nil
}

func (s *CacheStore) DeleteOverlapping(ctx context.Context, tenantID, resourceID string, affected interval.Interval) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	kept := s.slots[:0]
	for _, row := range s.slots {
		if row.TenantID == tenantID && row.ResourceID == resourceID &&
			interval.Overlaps(interval.Interval{Start: row.StartAt, End: row.EndAt}, affected) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.slots = kept
	return deleted, nil
}

func (s *CacheStore) PruneBefore(ctx context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	kept := s.slots[:0]
	for _, row := range s.slots {
		if row.Day < day {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.slots = kept
	for id, w := range s.windows {
		if w.Day < day {
			delete(s.windows, id)
		}
	}
	return deleted, nil
}

// Rows returns the stored rows of a resource, any version.
func (s *CacheStore) Rows(tenantID, resourceID string) []*model.AvailabilitySlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.AvailabilitySlot
	for _, row := range s.slots {
		if row.TenantID == tenantID && row.ResourceID == resourceID {
			cp := *row
			result = append(result, &cp)
		}
	}
	return result
}

// Window returns a copy of the window of a resource-day, or nil.
func (s *CacheStore) Window(tenantID, resourceID, day string) *model.AvailabilityWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[repository.WindowID(tenantID, resourceID, day)]
	if !ok {
		return nil
	}
	return copyWindow(w)
}

func (s *CacheStore) window(tenantID, resourceID, day string) *model.AvailabilityWindow {
	id := repository.WindowID(tenantID, resourceID, day)
	w, ok := s.windows[id]
	if !ok {
		w = &model.AvailabilityWindow{
			ID:         id,
			TenantID:   tenantID,
			ResourceID: resourceID,
			Day:        day,
			Specs:      make(map[string]model.WindowSpec),
		}
		s.windows[id] = w
	}
	return w
}

func (s *CacheStore) hasRow(row *model.AvailabilitySlot) bool {
	for _, existing := range s.slots {
		if existing.TenantID == row.TenantID && existing.ResourceID == row.ResourceID && existing.Day == row.Day &&
			existing.DurationMin == row.DurationMin && existing.StepMin == row.StepMin &&
			existing.Version == row.Version && existing.StartAt.Equal(row.StartAt) {
			return true
		}
	}
	return false
}

func copyWindow(w *model.AvailabilityWindow) *model.AvailabilityWindow {
	cp := *w
	cp.Specs = make(map[string]model.WindowSpec, len(w.Specs))
	for k, v := range w.Specs {
		cp.Specs[k] = v
	}
	return &cp
}
