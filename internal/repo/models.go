package repo

import (
	"time"

	"github.com/velostore/cdek-bridge/pkg/shipper"
)

// PickupPoint is the persisted row for one provider delivery point.
// Rows are created and updated by the sync job and soft-deleted via the
// active flag; they are never removed.
type PickupPoint struct {
	Code            string    `db:"code"`
	Carrier         string    `db:"carrier"`
	Name            string    `db:"name"`
	Type            string    `db:"type"`
	OwnerCode       string    `db:"owner_code"`
	CountryCode     string    `db:"country_code"`
	CityCode        int       `db:"city_code"`
	City            string    `db:"city"`
	PostalCode      string    `db:"postal_code"`
	Address         string    `db:"address"`
	AddressComment  string    `db:"address_comment"`
	Phone           string    `db:"phone"`
	Email           string    `db:"email"`
	WorkTime        string    `db:"work_time"`
	Latitude        float64   `db:"latitude"`
	Longitude       float64   `db:"longitude"`
	CashOnDelivery  bool      `db:"cash_on_delivery"`
	CardPayment     bool      `db:"card_payment"`
	FittingRoom     bool      `db:"fitting_room"`
	PartialDelivery bool      `db:"partial_delivery"`
	WeightMaxKG     float64   `db:"weight_max_kg"`
	Active          bool      `db:"active"`
	LastSyncAt      time.Time `db:"last_sync_at"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Shipment is the persisted delivery aggregate for one registered unit.
type Shipment struct {
	ID              int64                  `db:"id"`
	Reference       string                 `db:"reference"`
	Carrier         string                 `db:"carrier"`
	ProviderID      string                 `db:"provider_id"`
	TrackingNumber  string                 `db:"tracking_number"`
	PickupPointCode string                 `db:"pickup_point_code"`
	Status          shipper.ShipmentStatus `db:"status"`
	CreatedAt       time.Time              `db:"created_at"`
	UpdatedAt       time.Time              `db:"updated_at"`
}
