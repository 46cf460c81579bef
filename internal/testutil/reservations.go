package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "slotkeeper/internal/bookings/errors"
	"slotkeeper/internal/bookings/repository"
	mongotx "slotkeeper/pkg/db/mongo"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReservationStore is an in-memory ReservationRepository. Transactions run
// the callback directly.
type ReservationStore struct {
	mu           sync.RWMutex
	reservations []*model.Reservation

	CreateErr error
	FindErr   error
	// BeforeCreate runs inside Create before the row is stored.
	BeforeCreate func(r *model.Reservation)
}

func NewReservationStore(reservations ...*model.Reservation) *ReservationStore {
	s := &ReservationStore{}
	for _, r := range reservations {
		s.Add(r)
	}
	return s
}

// Add stores r as is, assigning an id when missing.
func (s *ReservationStore) Add(r *model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = primitive.NewObjectID().Hex()
	}
	s.reservations = append(s.reservations, r)
}

func (s *ReservationStore) All() []*model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Reservation, len(s.reservations))
	copy(out, s.reservations)
	return out
}

func (s *ReservationStore) Create(ctx context.Context, reservation *model.Reservation) error {
	if s.BeforeCreate != nil {
		s.BeforeCreate(reservation)
	}
	if s.CreateErr != nil {
		return s.CreateErr
	}
	reservation.CreatedAt = time.Now().UTC()
	s.Add(reservation)
	return nil
}

func (s *ReservationStore) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (s *ReservationStore) FindOverlapping(ctx context.Context, f repository.OverlapFilter) ([]*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}

	wanted := make(map[string]struct{}, len(f.ResourceIDs))
	for _, id := range f.ResourceIDs {
		wanted[id] = struct{}{}
	}

	var result []*model.Reservation
	for _, r := range s.reservations {
		if r.TenantID != f.TenantID || !r.Occupies() || !interval.Overlaps(r.Interval(), f.Window) {
			continue
		}
		if len(wanted) > 0 && !r.IsTenantWide() {
			if _, ok := wanted[r.ResourceID]; !ok {
				continue
			}
		}
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.Before(result[j].StartAt) })
	return result, nil
}

func (s *ReservationStore) UpdateStatus(ctx context.Context, id string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.ID == id {
			r.Status = status
			return nil
		}
	}
	return bookingserrors.ErrNotFound
}

func (s *ReservationStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}
