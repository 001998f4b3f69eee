package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var pointColumns = []string{
	"code", "carrier", "name", "type", "owner_code", "country_code",
	"city_code", "city", "postal_code", "address", "address_comment",
	"phone", "email", "work_time", "latitude", "longitude",
	"cash_on_delivery", "card_payment", "fitting_room", "partial_delivery",
	"weight_max_kg", "active", "last_sync_at", "created_at", "updated_at",
}

// PointRepo persists pickup points.
type PointRepo struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

// NewPointRepo creates a pickup-point repository.
func NewPointRepo(db *sqlx.DB) *PointRepo {
	return &PointRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert creates or fully updates a point keyed by its provider code.
// It reports whether a new row was created.
func (r *PointRepo) Upsert(ctx context.Context, p *PickupPoint) (bool, error) {
	now := time.Now()

	query, args := r.qb.Select("code").
		From("pickup_points").
		Where(sq.Eq{"code": p.Code, "carrier": p.Carrier}).
		MustSql()

	var existing string
	err := r.db.GetContext(ctx, &existing, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		query, args := r.qb.Insert("pickup_points").
			Columns(pointColumns...).
			Values(
				p.Code, p.Carrier, p.Name, p.Type, p.OwnerCode, p.CountryCode,
				p.CityCode, p.City, p.PostalCode, p.Address, p.AddressComment,
				p.Phone, p.Email, p.WorkTime, p.Latitude, p.Longitude,
				p.CashOnDelivery, p.CardPayment, p.FittingRoom, p.PartialDelivery,
				p.WeightMaxKG, true, now, now, now,
			).
			MustSql()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("failed to insert pickup point: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to select pickup point: %w", err)
	}

	query, args = r.qb.Update("pickup_points").
		SetMap(map[string]any{
			"name":             p.Name,
			"type":             p.Type,
			"owner_code":       p.OwnerCode,
			"country_code":     p.CountryCode,
			"city_code":        p.CityCode,
			"city":             p.City,
			"postal_code":      p.PostalCode,
			"address":          p.Address,
			"address_comment":  p.AddressComment,
			"phone":            p.Phone,
			"email":            p.Email,
			"work_time":        p.WorkTime,
			"latitude":         p.Latitude,
			"longitude":        p.Longitude,
			"cash_on_delivery": p.CashOnDelivery,
			"card_payment":     p.CardPayment,
			"fitting_room":     p.FittingRoom,
			"partial_delivery": p.PartialDelivery,
			"weight_max_kg":    p.WeightMaxKG,
			"active":           true,
			"last_sync_at":     now,
			"updated_at":       now,
		}).
		Where(sq.Eq{"code": p.Code, "carrier": p.Carrier}).
		MustSql()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("failed to update pickup point: %w", err)
	}
	return false, nil
}

// DeactivateMissing soft-deletes active points of the given countries whose
// codes were not seen in the latest full sync. It returns the number of
// deactivated rows.
func (r *PointRepo) DeactivateMissing(ctx context.Context, carrier string, countryCodes, seenCodes []string) (int64, error) {
	q := r.qb.Update("pickup_points").
		Set("active", false).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"carrier": carrier, "active": true})
	if len(countryCodes) > 0 {
		q = q.Where(sq.Eq{"country_code": countryCodes})
	}
	if len(seenCodes) > 0 {
		q = q.Where(sq.NotEq{"code": seenCodes})
	}

	query, args := q.MustSql()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate pickup points: %w", err)
	}
	return res.RowsAffected()
}

// SearchParams filters the pickup-point search.
type SearchParams struct {
	Carrier string
	City    string
	Query   string // matched against name, code and address
	Limit   uint64
}

// Search returns active points with valid coordinates matching the filter.
func (r *PointRepo) Search(ctx context.Context, params SearchParams) ([]PickupPoint, error) {
	q := r.qb.Select(pointColumns...).
		From("pickup_points").
		Where(sq.Eq{"active": true}).
		// Points without geocoordinates cannot be placed on the map.
		Where(sq.NotEq{"latitude": 0}).
		Where(sq.NotEq{"longitude": 0}).
		OrderBy("code").
		Limit(params.Limit)

	if params.Carrier != "" {
		q = q.Where(sq.Eq{"carrier": params.Carrier})
	}
	if params.City != "" {
		q = q.Where(sq.ILike{"city": params.City})
	}
	if params.Query != "" {
		pattern := "%" + params.Query + "%"
		q = q.Where(sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"code": pattern},
			sq.ILike{"address": pattern},
		})
	}

	query, args := q.MustSql()
	var points []PickupPoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search pickup points: %w", err)
	}
	return points, nil
}

// ActiveCodes returns the codes of all active points for the carrier.
func (r *PointRepo) ActiveCodes(ctx context.Context, carrier string) ([]string, error) {
	query, args := r.qb.Select("code").
		From("pickup_points").
		Where(sq.Eq{"carrier": carrier, "active": true}).
		MustSql()

	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list active codes: %w", err)
	}
	return codes, nil
}
