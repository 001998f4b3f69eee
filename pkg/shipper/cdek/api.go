package cdek

import (
	"context"
)

// APIClient defines the interface for CDEK API v2 operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CalculateTariff requests a price/term calculation for a tariff.
	CalculateTariff(ctx context.Context, req *TariffRequest) (*TariffResponse, error)

	// CreateOrder registers a new order with CDEK.
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderEntity, error)

	// GetOrder fetches an order by its CDEK identifier.
	GetOrder(ctx context.Context, orderUUID string) (*OrderEntity, error)

	// DeliveryPoints lists pickup points matching the filter.
	DeliveryPoints(ctx context.Context, filter *DeliveryPointsFilter) ([]DeliveryPoint, error)

	// Cities looks up cities in the CDEK location catalogue.
	Cities(ctx context.Context, filter *CityFilter) ([]City, error)

	// GetLabel retrieves raw label bytes for an order. Only "pdf" and
	// "zpl" formats exist on the provider side.
	GetLabel(ctx context.Context, orderUUID string, format string) ([]byte, error)
}

// ============================================================================
// API Request/Response Types (match CDEK REST API v2 JSON structure)
// ============================================================================

// Location is the CDEK location block used for origins and destinations.
type Location struct {
	Code        int    `json:"code,omitempty"` // CDEK numeric city code
	CountryCode string `json:"country_code,omitempty"`
	City        string `json:"city,omitempty"`
	Address     string `json:"address,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}

// Phone is a contact phone entry.
type Phone struct {
	Number string `json:"number"`
}

// Contact is the CDEK sender/recipient contact block.
type Contact struct {
	Name    string  `json:"name"`
	Company string  `json:"company,omitempty"`
	Phones  []Phone `json:"phones,omitempty"`
	Email   string  `json:"email,omitempty"`
}

// Money wraps a monetary amount the way CDEK expects it.
type Money struct {
	Value float64 `json:"value"`
}

// Item is one package item record.
type Item struct {
	Name    string  `json:"name"`
	WareKey string  `json:"ware_key"`
	Cost    float64 `json:"cost"`
	Weight  int     `json:"weight"` // grams
	Amount  int     `json:"amount"`
	Payment *Money  `json:"payment,omitempty"` // per-item COD amount
}

// Package is one parcel of an order.
type Package struct {
	Number string `json:"number,omitempty"`
	Weight int    `json:"weight"` // grams, sum of item weight x amount
	Length int    `json:"length,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Items  []Item `json:"items,omitempty"`
}

// TariffRequest is the body for the tariff calculator endpoint.
type TariffRequest struct {
	Type         int       `json:"type"`
	TariffCode   int       `json:"tariff_code"`
	FromLocation *Location `json:"from_location"`
	ToLocation   *Location `json:"to_location"`
	Packages     []Package `json:"packages"`
}

// TariffResponse is the calculator response. Unlike most endpoints it is
// not wrapped in an entity envelope.
type TariffResponse struct {
	TotalSum   float64 `json:"total_sum"`
	Currency   string  `json:"currency,omitempty"`
	PeriodMin  int     `json:"period_min"`
	PeriodMax  int     `json:"period_max"`
	WeightCalc int     `json:"weight_calc,omitempty"`
}

// OrderRequest is the body for order registration.
type OrderRequest struct {
	UUID                  string    `json:"uuid"` // caller-generated idempotency token
	Type                  int       `json:"type"`
	Number                string    `json:"number,omitempty"`
	TariffCode            int       `json:"tariff_code"`
	Comment               string    `json:"comment,omitempty"`
	ShipmentDate          string    `json:"shipment_date"` // YYYY-MM-DD
	Recipient             *Contact  `json:"recipient"`
	Sender                *Contact  `json:"sender"`
	FromLocation          *Location `json:"from_location,omitempty"`
	ToLocation            *Location `json:"to_location,omitempty"`
	ShipmentPoint         string    `json:"shipment_point,omitempty"` // origin PVZ code
	DeliveryPoint         string    `json:"delivery_point,omitempty"` // destination PVZ code
	Packages              []Package `json:"packages"`
	DeliveryRecipientCost *Money    `json:"delivery_recipient_cost,omitempty"` // COD total
}

// OrderStatus is one entry of an order's status history.
type OrderStatus struct {
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	DateTime string `json:"date_time,omitempty"`
	City     string `json:"city,omitempty"`
}

// OrderEntity is the entity payload of order create/lookup responses.
type OrderEntity struct {
	UUID       string        `json:"uuid"`
	Number     string        `json:"number,omitempty"`
	CdekNumber string        `json:"cdek_number,omitempty"` // tracking reference
	Statuses   []OrderStatus `json:"statuses,omitempty"`
}

// PaymentMethod is one accepted payment method at a delivery point.
type PaymentMethod struct {
	Type string `json:"type"` // "CASH", "CARD"
}

// PointService is one extra service offered at a delivery point.
type PointService struct {
	Type string `json:"type"` // "FITTING_ROOM", "PART_DELIVERY", ...
}

// PointDimensions is a size limit entry of a delivery point.
type PointDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`
}

// PointLocation is the nested location block of a delivery point.
type PointLocation struct {
	CountryCode    string  `json:"country_code"`
	Region         string  `json:"region,omitempty"`
	CityCode       int     `json:"city_code"`
	City           string  `json:"city"`
	PostalCode     string  `json:"postal_code,omitempty"`
	Address        string  `json:"address"`
	AddressFull    string  `json:"address_full,omitempty"`
	AddressComment string  `json:"address_comment,omitempty"`
	Longitude      float64 `json:"longitude"`
	Latitude       float64 `json:"latitude"`
}

// DeliveryPoint is one entry of the delivery-point listing.
type DeliveryPoint struct {
	Code             string            `json:"code"`
	Name             string            `json:"name"`
	Type             string            `json:"type"` // "PVZ", "POSTAMAT", "TERMINAL"
	OwnerCode        string            `json:"owner_code,omitempty"`
	WorkTime         string            `json:"work_time,omitempty"`
	Email            string            `json:"email,omitempty"`
	Note             string            `json:"note,omitempty"`
	Phones           []Phone           `json:"phones,omitempty"`
	Location         PointLocation     `json:"location"`
	IsCashOnDelivery bool              `json:"is_cash_on_delivery,omitempty"`
	PaymentMethods   []PaymentMethod   `json:"payment_methods,omitempty"`
	Services         []PointService    `json:"services,omitempty"`
	WeightMaxKG      float64           `json:"weight_max,omitempty"`
	Dimensions       []PointDimensions `json:"dimensions,omitempty"`
}

// City is one entry of the city catalogue.
type City struct {
	Code        int     `json:"code"`
	City        string  `json:"city"`
	Region      string  `json:"region,omitempty"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// DeliveryPointsFilter narrows the delivery-point listing.
type DeliveryPointsFilter struct {
	CountryCodes []string
	CityCode     int
	Type         string // "PVZ", "POSTAMAT" or "ALL"
}

// CityFilter narrows the city lookup.
type CityFilter struct {
	CountryCodes []string
	Query        string
	Size         int
}
