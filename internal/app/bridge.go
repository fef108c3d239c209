package app

import (
	"context"
	"fmt"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
)

// Bridge implements ports.Bridge on top of a fleet store and a notifier.
type Bridge struct {
	store    ports.FleetStore
	notifier ports.Notifier
}

var _ ports.Bridge = (*Bridge)(nil)

// NewBridge creates a bridge. A nil notifier drops events.
func NewBridge(store ports.FleetStore, notifier ports.Notifier) *Bridge {
	return &Bridge{store: store, notifier: notifier}
}

// UpdateActorPosition implements ports.Bridge.
func (b *Bridge) UpdateActorPosition(ctx context.Context, truckID, x, y int32, status domain.TruckStatus) error {
	if err := b.store.UpdateTruck(ctx, truckID, x, y, status); err != nil {
		return fmt.Errorf("update truck %d: %w", truckID, err)
	}
	return nil
}

// MarkItemDelivered implements ports.Bridge.
func (b *Bridge) MarkItemDelivered(ctx context.Context, packageID int64) error {
	if err := b.store.MarkPackageDelivered(ctx, packageID); err != nil {
		return fmt.Errorf("mark package %d delivered: %w", packageID, err)
	}
	return nil
}

// NotifyExternalParty implements ports.Bridge.
func (b *Bridge) NotifyExternalParty(ctx context.Context, event domain.Event) error {
	if b.notifier == nil {
		return nil
	}
	if err := b.notifier.Notify(ctx, event); err != nil {
		return fmt.Errorf("notify %s: %w", event.Kind, err)
	}
	return nil
}
