package repo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/velostore/cdek-bridge/pkg/shipper"
)

// ShipmentRepo persists shipment registration results and status updates.
type ShipmentRepo struct {
	db      *sqlx.DB
	qb      sq.StatementBuilderType
	carrier string
}

// NewShipmentRepo creates a shipment repository bound to one carrier.
func NewShipmentRepo(db *sqlx.DB, carrier string) *ShipmentRepo {
	return &ShipmentRepo{
		db:      db,
		qb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		carrier: carrier,
	}
}

// RecordRegistration stores the provider identifier and tracking number for
// a unit reference. The provider identifier is immutable once assigned:
// a conflicting upsert keeps the stored value.
func (r *ShipmentRepo) RecordRegistration(ctx context.Context, reference, providerID, trackingNumber, pickupPointCode string) error {
	now := time.Now()
	query, args := r.qb.Insert("shipments").
		Columns("reference", "carrier", "provider_id", "tracking_number",
			"pickup_point_code", "status", "created_at", "updated_at").
		Values(reference, r.carrier, providerID, trackingNumber,
			pickupPointCode, shipper.StatusRegistered, now, now).
		Suffix(`ON CONFLICT (reference, carrier) DO UPDATE SET
			provider_id = COALESCE(NULLIF(shipments.provider_id, ''), EXCLUDED.provider_id),
			tracking_number = COALESCE(NULLIF(EXCLUDED.tracking_number, ''), shipments.tracking_number),
			pickup_point_code = EXCLUDED.pickup_point_code,
			updated_at = EXCLUDED.updated_at`).
		MustSql()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record registration: %w", err)
	}
	return nil
}

// ListActive returns shipments whose status can still change.
func (r *ShipmentRepo) ListActive(ctx context.Context) ([]Shipment, error) {
	query, args := r.qb.Select("id", "reference", "carrier", "provider_id",
		"tracking_number", "pickup_point_code", "status", "created_at", "updated_at").
		From("shipments").
		Where(sq.Eq{"carrier": r.carrier}).
		Where(sq.NotEq{"status": []shipper.ShipmentStatus{
			shipper.StatusDelivered,
			shipper.StatusNotDelivered,
			shipper.StatusCancelled,
		}}).
		Where(sq.NotEq{"provider_id": ""}).
		OrderBy("id").
		MustSql()

	var shipments []Shipment
	if err := r.db.SelectContext(ctx, &shipments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list active shipments: %w", err)
	}
	return shipments, nil
}

// UpdateStatus stores a new normalized status and, when known, the tracking
// number for a shipment. It reports whether the status actually changed.
func (r *ShipmentRepo) UpdateStatus(ctx context.Context, providerID string, status shipper.ShipmentStatus, trackingNumber string) (bool, error) {
	q := r.qb.Update("shipments").
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"carrier": r.carrier, "provider_id": providerID}).
		Where(sq.NotEq{"status": status})
	if trackingNumber != "" {
		q = q.Set("tracking_number", trackingNumber)
	}

	query, args := q.MustSql()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update shipment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
