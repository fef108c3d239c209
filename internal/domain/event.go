package domain

import "time"

// EventKind classifies notifications sent to external parties.
type EventKind string

const (
	EventTruckArrived     EventKind = "truck.arrived"
	EventTruckIdle        EventKind = "truck.idle"
	EventPackageDelivered EventKind = "package.delivered"
)

// Event is a business notification derived from a batch entry.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	TruckID    int32     `json:"truck_id"`
	PackageID  int64     `json:"package_id,omitempty"`
	X          int32     `json:"x"`
	Y          int32     `json:"y"`
	Status     string    `json:"status,omitempty"`
	Seq        int64     `json:"seq"`
	OccurredAt time.Time `json:"occurred_at"`
}
