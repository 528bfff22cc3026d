package status

import "github.com/eraiiz/shipping/internal/models"

type display struct {
	label      string
	colorClass string
	progress   int
}

// The progress scale is deliberately non-monotonic: failed_delivery (70) and
// returned/exception (50) sit mid-scale to read as "was moving, hit a snag",
// not as a literal completion percentage.
var displays = map[string]display{
	models.StatusPending:        {"Pending", "bg-yellow-100 text-yellow-800", 10},
	models.StatusConfirmed:      {"Confirmed", "bg-blue-100 text-blue-800", 20},
	models.StatusPickedUp:       {"Picked Up", "bg-indigo-100 text-indigo-800", 40},
	models.StatusInTransit:      {"In Transit", "bg-purple-100 text-purple-800", 60},
	models.StatusOutForDelivery: {"Out for Delivery", "bg-orange-100 text-orange-800", 80},
	models.StatusDelivered:      {"Delivered", "bg-green-100 text-green-800", 100},
	models.StatusFailedDelivery: {"Failed Delivery", "bg-red-100 text-red-800", 70},
	models.StatusReturned:       {"Returned", "bg-gray-100 text-gray-800", 50},
	models.StatusCancelled:      {"Cancelled", "bg-red-100 text-red-800", 0},
	models.StatusException:      {"Exception", "bg-red-100 text-red-800", 50},
}

const neutralClass = "bg-gray-100 text-gray-800"

func Label(status string) string {
	if d, ok := displays[status]; ok {
		return d.label
	}
	return status
}

func ColorClass(status string) string {
	if d, ok := displays[status]; ok {
		return d.colorClass
	}
	return neutralClass
}

func ProgressPercent(status string) int {
	if d, ok := displays[status]; ok {
		return d.progress
	}
	return 0
}

// IsActive reports whether a shipment in this status is still moving and
// therefore worth auto-refreshing.
func IsActive(status string) bool {
	switch status {
	case models.StatusConfirmed, models.StatusPickedUp, models.StatusInTransit, models.StatusOutForDelivery:
		return true
	}
	return false
}

func IsTerminal(status string) bool {
	switch status {
	case models.StatusDelivered, models.StatusCancelled, models.StatusReturned:
		return true
	}
	return false
}
