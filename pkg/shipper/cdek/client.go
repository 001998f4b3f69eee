// Package cdek provides integration with the CDEK delivery API v2.
package cdek

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/velostore/cdek-bridge/pkg/shipper"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const carrierName = "cdek"

const trackingURLFormat = "https://www.cdek.ru/ru/tracking?order_id=%s"

// Config holds CDEK configuration. It is read-only at quote/ship time.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	UseMock      bool

	TariffCode int
	OrderType  shipper.OrderType
	AllowCOD   bool

	// Orders with a subtotal at or above this threshold ship for free;
	// zero disables the rule.
	FreeShippingThreshold float64

	// Display padding added to the provider's max delivery estimate.
	ExtraDays int

	DefaultLengthCM int
	DefaultWidthCM  int
	DefaultHeightCM int
	DefaultWeightKG float64

	// Origin PVZ code; when set it replaces the origin address on orders.
	ShipmentPointCode string

	Timeout time.Duration
}

// ShipmentRecorder persists registration results. The client calls it after
// each successful order creation; a nil recorder disables persistence.
type ShipmentRecorder interface {
	RecordRegistration(ctx context.Context, reference, providerID, trackingNumber, pickupPointCode string) error
}

// Client is the CDEK shipper client.
type Client struct {
	config    Config
	apiClient APIClient
	recorder  ShipmentRecorder
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new CDEK client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		var err error
		apiClient, err = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:      cfg.BaseURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Timeout:      cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    ensureTracer(tracer),
	}, nil
}

// NewWithAPIClient creates a new CDEK client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    ensureTracer(tracer),
	}
}

func ensureTracer(tracer trace.Tracer) trace.Tracer {
	if tracer == nil {
		return noop.NewTracerProvider().Tracer(carrierName)
	}
	return tracer
}

// WithRecorder attaches a shipment recorder and returns the client.
func (c *Client) WithRecorder(r ShipmentRecorder) *Client {
	c.recorder = r
	return c
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Quote returns a shipping price for an order. Every failure is folded
// into the result record so the caller always has a price field.
func (c *Client) Quote(ctx context.Context, req *shipper.QuoteRequest) *shipper.RateResult {
	ctx, span := c.tracer.Start(ctx, "cdek.Quote")
	defer span.End()

	if c.config.FreeShippingThreshold > 0 && req.Subtotal >= c.config.FreeShippingThreshold {
		return &shipper.RateResult{
			Success:      true,
			Price:        0,
			DeliveryTime: c.deliveryEstimate(0, 0),
		}
	}

	apiReq, err := buildTariffRequest(req, &c.config)
	if err != nil {
		return c.failedRate(ctx, err)
	}

	c.logger.Ctx(ctx).Info("Requesting CDEK tariff",
		zap.String("destination_city", req.Destination.City),
		zap.Int("tariff_code", c.config.TariffCode),
	)

	apiResp, err := c.apiClient.CalculateTariff(ctx, apiReq)
	if err != nil {
		return c.failedRate(ctx, err)
	}

	return &shipper.RateResult{
		Success:      true,
		Price:        apiResp.TotalSum,
		DeliveryTime: c.deliveryEstimate(apiResp.PeriodMin, apiResp.PeriodMax),
	}
}

func (c *Client) failedRate(ctx context.Context, err error) *shipper.RateResult {
	c.logger.Ctx(ctx).Error("CDEK rate request failed", zap.Error(err))
	return &shipper.RateResult{
		Success:      false,
		Price:        0,
		ErrorMessage: err.Error(),
	}
}

func (c *Client) deliveryEstimate(periodMin, periodMax int) string {
	if periodMin == 0 && periodMax == 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d days", periodMin, periodMax+c.config.ExtraDays)
}

// RegisterShipments registers each unit with CDEK. A failed unit yields a
// result with an error message; the batch continues.
func (c *Client) RegisterShipments(ctx context.Context, units []*shipper.ShipmentUnit) []*shipper.ShipmentResult {
	ctx, span := c.tracer.Start(ctx, "cdek.RegisterShipments")
	defer span.End()

	results := make([]*shipper.ShipmentResult, 0, len(units))
	for _, unit := range units {
		results = append(results, c.registerOne(ctx, unit))
	}
	return results
}

func (c *Client) registerOne(ctx context.Context, unit *shipper.ShipmentUnit) *shipper.ShipmentResult {
	result := &shipper.ShipmentResult{Reference: unit.Reference}

	apiReq, err := buildOrderRequest(unit, &c.config)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	c.logger.Ctx(ctx).Info("Registering CDEK order",
		zap.String("reference", unit.Reference),
		zap.String("idempotency_uuid", apiReq.UUID),
	)

	entity, err := c.apiClient.CreateOrder(ctx, apiReq)
	if err != nil {
		c.logger.Ctx(ctx).Error("CDEK order registration failed",
			zap.String("reference", unit.Reference),
			zap.Error(err),
		)
		result.ErrorMessage = err.Error()
		return result
	}

	result.ProviderID = entity.UUID
	result.TrackingNumber = entity.CdekNumber
	if result.TrackingNumber == "" {
		// The tracking number is assigned asynchronously; one follow-up
		// lookup usually has it.
		if fresh, err := c.apiClient.GetOrder(ctx, entity.UUID); err == nil {
			result.TrackingNumber = fresh.CdekNumber
		}
	}

	if c.recorder != nil {
		if err := c.recorder.RecordRegistration(ctx, unit.Reference, result.ProviderID, result.TrackingNumber, unit.PickupPointCode); err != nil {
			c.logger.Ctx(ctx).Error("Failed to persist CDEK registration",
				zap.String("reference", unit.Reference),
				zap.Error(err),
			)
		}
	}

	return result
}

// TrackingLink formats the public tracking URL. No network call is made.
func (c *Client) TrackingLink(trackingRef string) string {
	return fmt.Sprintf(trackingURLFormat, trackingRef)
}

// GetLabel retrieves a shipping label. The format is validated before any
// network traffic: only pdf and zpl exist on the provider side.
func (c *Client) GetLabel(ctx context.Context, req *shipper.LabelRequest) (*shipper.LabelResponse, error) {
	format := shipper.LabelFormat(strings.ToLower(string(req.Format)))
	if format != shipper.LabelPDF && format != shipper.LabelZPL {
		return nil, shipper.NewError(carrierName, shipper.KindValidation,
			fmt.Sprintf("unsupported label format %q", req.Format))
	}

	data, err := c.apiClient.GetLabel(ctx, req.OrderID, string(format))
	if err != nil {
		return nil, err
	}

	return &shipper.LabelResponse{
		OrderID: req.OrderID,
		Format:  format,
		Data:    data,
	}, nil
}

// OrderStatus fetches the latest normalized status for a registered order.
func (c *Client) OrderStatus(ctx context.Context, providerID string) (shipper.ShipmentStatus, string, error) {
	entity, err := c.apiClient.GetOrder(ctx, providerID)
	if err != nil {
		return "", "", err
	}
	if len(entity.Statuses) == 0 {
		return shipper.StatusRegistered, entity.CdekNumber, nil
	}
	latest := entity.Statuses[len(entity.Statuses)-1]
	return NormalizeStatus(latest.Code), entity.CdekNumber, nil
}

// NormalizeStatus maps a provider status code onto the shared status set.
// Unknown codes normalize to in_transit: anything the provider reports
// between acceptance and delivery is movement.
func NormalizeStatus(code string) shipper.ShipmentStatus {
	switch strings.ToUpper(code) {
	case "CREATED":
		return shipper.StatusRegistered
	case "ACCEPTED", "RECEIVED_AT_SHIPMENT_WAREHOUSE", "READY_FOR_SHIPMENT_IN_SENDER_CITY":
		return shipper.StatusAccepted
	case "ACCEPTED_AT_PICK_UP_POINT":
		return shipper.StatusReadyForPickup
	case "DELIVERED":
		return shipper.StatusDelivered
	case "NOT_DELIVERED":
		return shipper.StatusNotDelivered
	case "INVALID", "REMOVED":
		return shipper.StatusCancelled
	default:
		return shipper.StatusInTransit
	}
}

var _ shipper.Shipper = (*Client)(nil)
