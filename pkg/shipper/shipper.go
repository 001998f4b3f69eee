// Package shipper provides an abstraction layer for parcel-delivery providers.
package shipper

import (
	"context"
)

// Shipper defines the interface that all delivery providers must implement.
// The host order flow resolves a Shipper from the Registry by provider
// identifier and calls these operations directly, instead of dispatching on
// a "delivery type" tag by method-name convention.
type Shipper interface {
	// Name returns the provider identifier (e.g., "cdek").
	Name() string

	// Quote returns a shipping price for an order. It never fails: every
	// error path is folded into a RateResult with Success=false, Price=0
	// and an error message, so callers always have a well-formed record.
	Quote(ctx context.Context, req *QuoteRequest) *RateResult

	// RegisterShipments registers each shipment unit with the provider and
	// returns one result per unit, in order. A failed unit yields a result
	// carrying an error message; it does not abort the rest of the batch.
	RegisterShipments(ctx context.Context, units []*ShipmentUnit) []*ShipmentResult

	// TrackingLink formats the public tracking URL for a stored tracking
	// reference. Pure string formatting, no network call.
	TrackingLink(trackingRef string) string

	// GetLabel retrieves the raw label bytes for a registered order.
	GetLabel(ctx context.Context, req *LabelRequest) (*LabelResponse, error)
}
