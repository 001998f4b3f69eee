// Package mock provides a mock shipper implementation for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/velostore/cdek-bridge/pkg/shipper"
)

// Client is a mock delivery provider for testing.
type Client struct {
	name string

	// QuoteFn, when set, overrides the default Quote behavior.
	QuoteFn func(ctx context.Context, req *shipper.QuoteRequest) *shipper.RateResult
}

// New creates a new mock provider.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Quote returns a fixed successful rate.
func (c *Client) Quote(ctx context.Context, req *shipper.QuoteRequest) *shipper.RateResult {
	if c.QuoteFn != nil {
		return c.QuoteFn(ctx, req)
	}
	return &shipper.RateResult{
		Success:      true,
		Price:        350,
		DeliveryTime: "2-4 days",
	}
}

// RegisterShipments returns a confirmed result per unit.
func (c *Client) RegisterShipments(ctx context.Context, units []*shipper.ShipmentUnit) []*shipper.ShipmentResult {
	results := make([]*shipper.ShipmentResult, 0, len(units))
	for i, unit := range units {
		id := fmt.Sprintf("%s-order-%d-%d", c.name, time.Now().UnixNano(), i)
		results = append(results, &shipper.ShipmentResult{
			Reference:      unit.Reference,
			ProviderID:     id,
			TrackingNumber: id,
		})
	}
	return results
}

// TrackingLink formats a mock tracking URL.
func (c *Client) TrackingLink(trackingRef string) string {
	return fmt.Sprintf("https://track.%s.mock/%s", c.name, trackingRef)
}

// GetLabel returns a tiny fake label.
func (c *Client) GetLabel(ctx context.Context, req *shipper.LabelRequest) (*shipper.LabelResponse, error) {
	format := req.Format
	if format == "" {
		format = shipper.LabelPDF
	}
	return &shipper.LabelResponse{
		OrderID: req.OrderID,
		Format:  format,
		Data:    []byte("%mock-label%"),
	}, nil
}

var _ shipper.Shipper = (*Client)(nil)
