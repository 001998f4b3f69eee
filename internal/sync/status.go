package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/velostore/cdek-bridge/internal/repo"
	"github.com/velostore/cdek-bridge/internal/telemetry"
	"github.com/velostore/cdek-bridge/pkg/shipper"
	"go.uber.org/zap"
)

// ShipmentStore is the persistence surface the status syncer needs.
type ShipmentStore interface {
	ListActive(ctx context.Context) ([]repo.Shipment, error)
	UpdateStatus(ctx context.Context, providerID string, status shipper.ShipmentStatus, trackingNumber string) (bool, error)
}

// StatusSource provides the latest provider-side status for an order.
type StatusSource interface {
	OrderStatus(ctx context.Context, providerID string) (shipper.ShipmentStatus, string, error)
}

// StatusPublisher emits normalized status events. A nil publisher disables
// event emission without disabling local status tracking.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event *shipper.StatusEvent) error
}

// StatusSyncerConfig controls the status polling job.
type StatusSyncerConfig struct {
	Carrier  string
	Interval time.Duration
}

// StatusSyncer polls the provider for every non-terminal shipment, stores
// status transitions and publishes them as events.
type StatusSyncer struct {
	cfg       StatusSyncerConfig
	source    StatusSource
	store     ShipmentStore
	publisher StatusPublisher
	logger    *otelzap.Logger
	metrics   *telemetry.Metrics
}

// NewStatusSyncer creates a shipment status syncer.
func NewStatusSyncer(cfg StatusSyncerConfig, source StatusSource, store ShipmentStore, publisher StatusPublisher, logger *otelzap.Logger, metrics *telemetry.Metrics) *StatusSyncer {
	return &StatusSyncer{
		cfg:       cfg,
		source:    source,
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes polling cycles until the context is cancelled.
func (s *StatusSyncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		err := s.SyncOnce(ctx)
		if s.metrics != nil {
			s.metrics.RecordSyncRun("shipment_status", err)
		}
		if err != nil {
			s.logger.Ctx(ctx).Error("Shipment status sync failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce polls every active shipment once. A single shipment's lookup
// failure is logged and skipped; it does not abort the cycle.
func (s *StatusSyncer) SyncOnce(ctx context.Context) error {
	shipments, err := s.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active shipments: %w", err)
	}

	for _, shipment := range shipments {
		status, tracking, err := s.source.OrderStatus(ctx, shipment.ProviderID)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordError(s.cfg.Carrier, errorKind(err))
			}
			s.logger.Ctx(ctx).Warn("Status lookup failed",
				zap.String("reference", shipment.Reference),
				zap.String("provider_id", shipment.ProviderID),
				zap.Error(err),
			)
			continue
		}

		changed, err := s.store.UpdateStatus(ctx, shipment.ProviderID, status, tracking)
		if err != nil {
			return fmt.Errorf("updating status for %s: %w", shipment.Reference, err)
		}
		if !changed {
			continue
		}

		s.logger.Ctx(ctx).Info("Shipment status changed",
			zap.String("reference", shipment.Reference),
			zap.String("status", string(status)),
		)
		if s.metrics != nil {
			s.metrics.StatusEvents.WithLabelValues(string(status)).Inc()
		}

		if s.publisher == nil {
			continue
		}
		event := &shipper.StatusEvent{
			Carrier:        s.cfg.Carrier,
			ProviderID:     shipment.ProviderID,
			Reference:      shipment.Reference,
			TrackingNumber: tracking,
			Status:         status,
			OccurredAt:     time.Now().UTC(),
		}
		if err := s.publisher.PublishStatus(ctx, event); err != nil {
			s.logger.Ctx(ctx).Error("Failed to publish status event",
				zap.String("reference", shipment.Reference),
				zap.Error(err),
			)
		}
	}
	return nil
}

func errorKind(err error) string {
	var se *shipper.Error
	if errors.As(err, &se) {
		return string(se.Kind)
	}
	return "unknown"
}
