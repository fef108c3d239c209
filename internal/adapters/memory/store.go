// Package memory keeps fleet state in process memory. It backs the
// connector when no database is configured.
package memory

import (
	"context"
	"sync"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
)

// Truck is the last known state of a truck.
type Truck struct {
	X      int32
	Y      int32
	Status domain.TruckStatus
}

// Store implements ports.FleetStore.
type Store struct {
	mu        sync.RWMutex
	trucks    map[int32]Truck
	delivered map[int64]bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		trucks:    make(map[int32]Truck),
		delivered: make(map[int64]bool),
	}
}

func (s *Store) UpdateTruck(ctx context.Context, truckID, x, y int32, status domain.TruckStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trucks[truckID] = Truck{X: x, Y: y, Status: status}
	return nil
}

func (s *Store) MarkPackageDelivered(ctx context.Context, packageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered[packageID] = true
	return nil
}

// Truck returns the stored state of a truck.
func (s *Store) Truck(id int32) (Truck, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trucks[id]
	return t, ok
}

// Delivered reports whether a package was marked delivered.
func (s *Store) Delivered(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delivered[id]
}
