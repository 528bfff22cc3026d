package messages

import "time"

// ShipmentStatusChanged is published when a refresh observes a shipment in a
// different status than the in-memory copy. Consumers (notifications, order
// timeline) are outside this module.
type ShipmentStatusChanged struct {
	ShipmentID     string    `json:"shipment_id"`
	OrderID        string    `json:"order_id,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	OldStatus      string    `json:"old_status"`
	NewStatus      string    `json:"new_status"`
	ObservedAt     time.Time `json:"observed_at"`
}
