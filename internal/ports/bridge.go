package ports

import (
	"context"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
)

// Bridge is the only touchpoint between decoded world events and the
// externally owned persistence and notification logic. The dispatcher calls
// it synchronously, in arrival order, from the receive loop.
type Bridge interface {
	// UpdateActorPosition stores a truck's position and mapped status.
	UpdateActorPosition(ctx context.Context, truckID, x, y int32, status domain.TruckStatus) error

	// MarkItemDelivered records that a package reached its destination.
	MarkItemDelivered(ctx context.Context, packageID int64) error

	// NotifyExternalParty publishes a business event.
	NotifyExternalParty(ctx context.Context, event domain.Event) error
}

// FleetStore persists truck and package state.
type FleetStore interface {
	UpdateTruck(ctx context.Context, truckID, x, y int32, status domain.TruckStatus) error
	MarkPackageDelivered(ctx context.Context, packageID int64) error
}

// Notifier delivers business events to whoever consumes them.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}
