package domain

import "strings"

// TruckStatus is the internal truck status enumeration.
type TruckStatus int

const (
	StatusIdle TruckStatus = iota + 1
	StatusTraveling
	StatusAtWarehouse
	StatusLoading
	StatusDelivering
)

// String returns the persisted name of the status.
func (s TruckStatus) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusTraveling:
		return "TRAVELING"
	case StatusAtWarehouse:
		return "AT_WAREHOUSE"
	case StatusLoading:
		return "LOADING"
	case StatusDelivering:
		return "DELIVERING"
	default:
		return "UNKNOWN"
	}
}

var statusTags = map[string]TruckStatus{
	"idle":             StatusIdle,
	"traveling":        StatusTraveling,
	"arrive warehouse": StatusAtWarehouse,
	"loading":          StatusLoading,
	"delivering":       StatusDelivering,
}

// ParseStatusTag maps a free-form simulator tag to a TruckStatus.
// Matching ignores case and surrounding whitespace. The second return value
// is false for unrecognized tags; callers must not substitute a default.
func ParseStatusTag(tag string) (TruckStatus, bool) {
	s, ok := statusTags[strings.ToLower(strings.TrimSpace(tag))]
	return s, ok
}
