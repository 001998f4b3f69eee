// Package sync runs the scheduled provider synchronization jobs.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/velostore/cdek-bridge/internal/repo"
	"github.com/velostore/cdek-bridge/internal/telemetry"
	"github.com/velostore/cdek-bridge/pkg/shipper/cdek"
	"go.uber.org/zap"
)

// PointStore is the persistence surface the points syncer needs.
type PointStore interface {
	Upsert(ctx context.Context, p *repo.PickupPoint) (bool, error)
	DeactivateMissing(ctx context.Context, carrier string, countryCodes, seenCodes []string) (int64, error)
}

// PointsSyncerConfig controls what the syncer fetches.
type PointsSyncerConfig struct {
	Carrier      string
	CountryCodes []string
	// CityCode restricts the fetch to one city. A city-filtered run only
	// sees a subset of points, so it never deactivates anything.
	CityCode int
	Interval time.Duration
}

// PointsSyncer performs idempotent full refreshes of the pickup-point
// catalogue: upsert everything the provider returns, then soft-delete
// active points that were not seen.
type PointsSyncer struct {
	cfg     PointsSyncerConfig
	api     cdek.APIClient
	store   PointStore
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
}

// NewPointsSyncer creates a pickup-point syncer.
func NewPointsSyncer(cfg PointsSyncerConfig, api cdek.APIClient, store PointStore, logger *otelzap.Logger, metrics *telemetry.Metrics) *PointsSyncer {
	return &PointsSyncer{
		cfg:     cfg,
		api:     api,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes sync cycles until the context is cancelled. Cycle failures
// are logged and counted, never propagated: the next tick runs regardless.
func (s *PointsSyncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		err := s.SyncOnce(ctx)
		if s.metrics != nil {
			s.metrics.RecordSyncRun("pickup_points", err)
		}
		if err != nil {
			s.logger.Ctx(ctx).Error("Pickup-point sync failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce performs one full refresh. An error aborts the remainder of the
// cycle; upserts applied before the failure are retained.
func (s *PointsSyncer) SyncOnce(ctx context.Context) error {
	filter := &cdek.DeliveryPointsFilter{
		CountryCodes: s.cfg.CountryCodes,
		CityCode:     s.cfg.CityCode,
	}

	points, err := s.api.DeliveryPoints(ctx, filter)
	if err != nil {
		return fmt.Errorf("fetching delivery points: %w", err)
	}

	seen := make([]string, 0, len(points))
	created := 0
	for _, dp := range points {
		record := s.pointFromAPI(&dp)
		isNew, err := s.store.Upsert(ctx, record)
		if err != nil {
			return fmt.Errorf("upserting point %s: %w", dp.Code, err)
		}
		if isNew {
			created++
		}
		seen = append(seen, dp.Code)
	}

	deactivated := int64(0)
	if s.cfg.CityCode == 0 {
		deactivated, err = s.store.DeactivateMissing(ctx, s.cfg.Carrier, s.cfg.CountryCodes, seen)
		if err != nil {
			return fmt.Errorf("deactivating stale points: %w", err)
		}
	}

	if s.metrics != nil {
		s.metrics.PointsSynced.WithLabelValues(s.cfg.Carrier).Set(float64(len(seen)))
	}
	s.logger.Ctx(ctx).Info("Pickup-point sync finished",
		zap.Int("seen", len(seen)),
		zap.Int("created", created),
		zap.Int64("deactivated", deactivated),
	)
	return nil
}

// pointFromAPI maps one provider delivery point onto the local record.
// Capability flags are derived from the payment-method and service lists,
// not from the provider's top-level flags.
func (s *PointsSyncer) pointFromAPI(dp *cdek.DeliveryPoint) *repo.PickupPoint {
	record := &repo.PickupPoint{
		Code:           dp.Code,
		Carrier:        s.cfg.Carrier,
		Name:           dp.Name,
		Type:           normalizePointType(dp.Type),
		OwnerCode:      dp.OwnerCode,
		CountryCode:    strings.ToUpper(dp.Location.CountryCode),
		CityCode:       dp.Location.CityCode,
		City:           dp.Location.City,
		PostalCode:     dp.Location.PostalCode,
		Address:        dp.Location.Address,
		AddressComment: dp.Location.AddressComment,
		Email:          dp.Email,
		WorkTime:       dp.WorkTime,
		Latitude:       dp.Location.Latitude,
		Longitude:      dp.Location.Longitude,
		WeightMaxKG:    dp.WeightMaxKG,
		Active:         true,
	}

	if len(dp.Phones) > 0 {
		record.Phone = dp.Phones[0].Number
	}

	for _, pm := range dp.PaymentMethods {
		switch strings.ToUpper(pm.Type) {
		case "CASH":
			record.CashOnDelivery = true
		case "CARD":
			record.CardPayment = true
		}
	}
	for _, svc := range dp.Services {
		switch strings.ToUpper(svc.Type) {
		case "FITTING_ROOM":
			record.FittingRoom = true
		case "PART_DELIVERY", "PARTIAL_DELIVERY":
			record.PartialDelivery = true
		}
	}

	return record
}

func normalizePointType(providerType string) string {
	switch strings.ToUpper(providerType) {
	case "POSTAMAT":
		return "locker"
	case "TERMINAL":
		return "terminal"
	default:
		return "counter"
	}
}
