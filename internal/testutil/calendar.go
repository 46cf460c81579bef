// Package testutil holds in-memory store fakes shared by service tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	calendarerrors "slotkeeper/internal/calendar/errors"
	"slotkeeper/pkg/model"
)

type WorkingHoursStore struct {
	mu   sync.RWMutex
	docs map[string]*model.WorkingHours

	Err error
}

func NewWorkingHoursStore(docs ...*model.WorkingHours) *WorkingHoursStore {
	s := &WorkingHoursStore{docs: make(map[string]*model.WorkingHours)}
	for _, d := range docs {
		s.Put(d)
	}
	return s
}

func (s *WorkingHoursStore) Put(wh *model.WorkingHours) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[wh.ResourceID] = wh
}

func (s *WorkingHoursStore) FindByResource(ctx context.Context, resourceID string) (*model.WorkingHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	wh, ok := s.docs[resourceID]
	if !ok {
		return nil, calendarerrors.ErrNotFound
	}
	return wh, nil
}

func (s *WorkingHoursStore) FindByTenant(ctx context.Context, tenantID string) ([]*model.WorkingHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var result []*model.WorkingHours
	for _, wh := range s.docs {
		if wh.TenantID == tenantID {
			result = append(result, wh)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ResourceID < result[j].ResourceID })
	return result, nil
}

func (s *WorkingHoursStore) FindTenants(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	seen := make(map[string]struct{})
	var tenants []string
	for _, wh := range s.docs {
		if _, ok := seen[wh.TenantID]; ok {
			continue
		}
		seen[wh.TenantID] = struct{}{}
		tenants = append(tenants, wh.TenantID)
	}
	sort.Strings(tenants)
	return tenants, nil
}

type ServiceStore struct {
	mu       sync.RWMutex
	services map[string]*model.Service
}

func NewServiceStore(services ...*model.Service) *ServiceStore {
	s := &ServiceStore{services: make(map[string]*model.Service)}
	for _, svc := range services {
		s.services[svc.ID] = svc
	}
	return s
}

func (s *ServiceStore) FindByID(ctx context.Context, id string) (*model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, calendarerrors.ErrServiceNotFound
	}
	return svc, nil
}

func (s *ServiceStore) FindByTenant(ctx context.Context, tenantID string) ([]*model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Service
	for _, svc := range s.services {
		if svc.TenantID == tenantID {
			result = append(result, svc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
