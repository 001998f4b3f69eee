package shipper

import (
	"time"
)

// ShipmentStatus represents the normalized status of a shipment.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "pending"
	StatusRegistered     ShipmentStatus = "registered"
	StatusAccepted       ShipmentStatus = "accepted"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusReadyForPickup ShipmentStatus = "ready_for_pickup"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusNotDelivered   ShipmentStatus = "not_delivered"
	StatusCancelled      ShipmentStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s ShipmentStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusNotDelivered, StatusCancelled:
		return true
	}
	return false
}

// OrderType selects how the provider classifies the shipment.
type OrderType int

const (
	OrderTypeMarketplace OrderType = 1
	OrderTypeDelivery    OrderType = 2
)

// LabelFormat represents the format of shipping labels.
type LabelFormat string

const (
	LabelPDF LabelFormat = "pdf"
	LabelZPL LabelFormat = "zpl"
)

// Address represents a shipping origin or destination.
type Address struct {
	CountryCode string // ISO 3166-1 alpha-2, e.g., "RU", "KZ"
	City        string
	CityCode    int // provider numeric city code, 0 when unknown
	Street      string
	Street2     string
	PostalCode  string
}

// Party represents a sender or recipient.
type Party struct {
	Name      string
	Company   string
	Phone     string
	Email     string
	IsCompany bool
}

// OrderLine is one physical line item of an order.
type OrderLine struct {
	Name        string
	SKU         string
	Quantity    int
	UnitPrice   float64
	DiscountPct float64
	WeightKG    float64 // 0 means "use the carrier default"
}

// QuoteRequest is the input for a rate quote.
type QuoteRequest struct {
	Origin      Address
	Destination Address
	Lines       []OrderLine
	Subtotal    float64 // order total before shipping, for free-shipping rules
}

// RateResult is the uniform quote record returned to the host order flow.
// Price is always present, even on failure, so downstream rendering never
// breaks on a missing field.
type RateResult struct {
	Success      bool
	Price        float64
	DeliveryTime string // display text, e.g. "2-4 days"
	ErrorMessage string
}

// ShipmentUnit is one unit (picking) to register with the provider.
type ShipmentUnit struct {
	Reference       string // host-side unit reference, e.g. picking name
	Sender          Party
	Recipient       Party
	Origin          Address
	Destination     Address
	Lines           []OrderLine
	PickupPointCode string // destination PVZ code, empty for courier delivery
	Comment         string
}

// ShipmentResult is the per-unit outcome of a registration batch.
type ShipmentResult struct {
	Reference      string
	ProviderID     string // opaque provider order identifier
	TrackingNumber string
	ExactPrice     float64
	ErrorMessage   string
}

// LabelRequest is the request for a shipping label.
type LabelRequest struct {
	OrderID string
	Format  LabelFormat
}

// LabelResponse carries raw label bytes.
type LabelResponse struct {
	OrderID string
	Format  LabelFormat
	Data    []byte
}

// StatusEvent is a normalized shipment status change.
type StatusEvent struct {
	Carrier        string         `json:"carrier"`
	ProviderID     string         `json:"provider_id"`
	Reference      string         `json:"reference"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	Status         ShipmentStatus `json:"status"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
