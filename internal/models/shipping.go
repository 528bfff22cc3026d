package models

import "time"

// Shipment statuses as delivered by the backend.
const (
	StatusPending        = "pending"
	StatusConfirmed      = "confirmed"
	StatusPickedUp       = "picked_up"
	StatusInTransit      = "in_transit"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusFailedDelivery = "failed_delivery"
	StatusReturned       = "returned"
	StatusCancelled      = "cancelled"
	StatusException      = "exception"
)

type Address struct {
	ContactName string `json:"contactName"`
	CompanyName string `json:"companyName,omitempty"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Street      string `json:"street"`
	Apartment   string `json:"apartment,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"` // ISO-2, defaults to "NG"
}

// Parcel dimensions are in cm, weight in kg.
type Parcel struct {
	Length        float64 `json:"length"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Weight        float64 `json:"weight"`
	PackagingType string  `json:"packagingType"`
}

// CartLineItem is owned by the cart; read-only here. Zero dims/weight mean
// "unknown" and get floor defaults during estimation.
type CartLineItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Weight    float64 `json:"weight,omitempty"`
	Length    float64 `json:"length,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	Category  string  `json:"category,omitempty"`
}

// RateQuote is immutable once received. Quotes have no stable server-side ID;
// (CourierID, CourierServiceID) is the de facto identity across a session.
type RateQuote struct {
	CourierID        string  `json:"courier_id"`
	CourierName      string  `json:"courier_name"`
	CourierServiceID string  `json:"courier_service_id"`
	ServiceName      string  `json:"service_name"`
	ShipmentCharge   float64 `json:"shipment_charge"`
	FuelSurcharge    float64 `json:"fuel_surcharge"`
	InsuranceFee     float64 `json:"insurance_fee"`
	TotalCharge      float64 `json:"total_charge"`
	Currency         string  `json:"currency"`
	MinDeliveryTime  int     `json:"min_delivery_time"`
	MaxDeliveryTime  int     `json:"max_delivery_time"`
	IsInsured        bool    `json:"is_insured"`
	DeliveryNote     string  `json:"delivery_note,omitempty"`
}

type Shipment struct {
	ID                    string     `json:"_id"`
	OrderID               string     `json:"orderId"`
	BuyerID               string     `json:"buyerId"`
	SellerID              string     `json:"sellerId"`
	TrackingNumber        string     `json:"trackingNumber"`
	Status                string     `json:"status"`
	CourierName           string     `json:"courierName"`
	CourierServiceName    string     `json:"courierServiceName"`
	TotalCost             float64    `json:"totalCost"`
	Currency              string     `json:"currency"`
	OriginAddress         Address    `json:"originAddress"`
	DestinationAddress    Address    `json:"destinationAddress"`
	CreatedAt             time.Time  `json:"createdAt"`
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate,omitempty"`
	ActualDeliveryDate    *time.Time `json:"actualDeliveryDate,omitempty"`
}

type TrackingEvent struct {
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TrackingInfo is the payload of a single tracking lookup. Events are sorted
// newest-first by the client before display; the backend does not guarantee
// any order.
type TrackingInfo struct {
	TrackingNumber        string          `json:"trackingNumber"`
	Status                string          `json:"status"`
	OriginAddress         Address         `json:"originAddress"`
	DestinationAddress    Address         `json:"destinationAddress"`
	CourierName           string          `json:"courierName"`
	EstimatedDeliveryDate *time.Time      `json:"estimatedDeliveryDate,omitempty"`
	ActualDeliveryDate    *time.Time      `json:"actualDeliveryDate,omitempty"`
	TrackingEvents        []TrackingEvent `json:"trackingEvents"`
	EasyshipTracking      *struct {
		TrackingURL string `json:"tracking_url"`
	} `json:"easyshipTracking,omitempty"`
}

type ShipmentFilters struct {
	Status   string `json:"status,omitempty"`
	SellerID string `json:"sellerId,omitempty"`
	BuyerID  string `json:"buyerId,omitempty"`
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`
}

type Pagination struct {
	Page           int  `json:"page"`
	Limit          int  `json:"limit"`
	TotalPages     int  `json:"totalPages"`
	TotalShipments int  `json:"totalShipments"`
	HasNextPage    bool `json:"hasNextPage"`
	HasPrevPage    bool `json:"hasPrevPage"`
}

// ShippingStats is a backend aggregate over all matching shipments, not just
// the current page.
type ShippingStats struct {
	TotalShipments      int     `json:"totalShipments"`
	PendingShipments    int     `json:"pendingShipments"`
	InTransitShipments  int     `json:"inTransitShipments"`
	DeliveredShipments  int     `json:"deliveredShipments"`
	TotalShippingCost   float64 `json:"totalShippingCost"`
	AverageShippingCost float64 `json:"averageShippingCost"`
}

type PickupSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

type PickupRequest struct {
	Date          string   `json:"date"`
	TimeSlot      string   `json:"timeSlot"`
	Address       Address  `json:"address"`
	ContactPerson string   `json:"contactPerson"`
	ContactPhone  string   `json:"contactPhone"`
	Instructions  string   `json:"instructions,omitempty"`
	ShipmentIDs   []string `json:"shipmentIds"`
}

type Courier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type CourierService struct {
	ID          string `json:"id"`
	CourierID   string `json:"courierId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Label struct {
	ShipmentID string `json:"shipmentId"`
	LabelURL   string `json:"labelUrl"`
	Format     string `json:"format,omitempty"`
}

type StatusUpdate struct {
	Status            string `json:"status"`
	Note              string `json:"note,omitempty"`
	Location          string `json:"location,omitempty"`
	EstimatedDelivery string `json:"estimatedDelivery,omitempty"`
}
