package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/velostore/cdek-bridge/internal/repo"
	"github.com/velostore/cdek-bridge/pkg/shipper/cdek"
	"go.uber.org/zap"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

type pointSearchRequest struct {
	City  string `json:"city"`
	Query string `json:"query"`
	// Limit is parsed leniently: clients send numbers, numeric strings or
	// garbage, and garbage falls back to the default.
	Limit json.RawMessage `json:"limit"`
}

type pointJSON struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	City            string  `json:"city"`
	Address         string  `json:"address"`
	AddressComment  string  `json:"address_comment,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	WorkTime        string  `json:"work_time,omitempty"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	CashOnDelivery  bool    `json:"cash_on_delivery"`
	CardPayment     bool    `json:"card_payment"`
	FittingRoom     bool    `json:"fitting_room"`
	PartialDelivery bool    `json:"partial_delivery"`
	WeightMaxKG     float64 `json:"weight_max_kg,omitempty"`
}

type pointSearchResponse struct {
	Points []pointJSON `json:"points"`
}

func (s *Server) handlePointSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req pointSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	points, err := s.points.Search(ctx, repo.SearchParams{
		City:  req.City,
		Query: req.Query,
		Limit: parseLimit(req.Limit),
	})
	if err != nil {
		s.logger.Ctx(ctx).Error("Point search failed", zap.Error(err))
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := pointSearchResponse{Points: make([]pointJSON, 0, len(points))}
	for _, p := range points {
		resp.Points = append(resp.Points, pointToJSON(p))
	}

	s.metrics.RecordRequest("point_search", "cdek", "ok", time.Since(start).Seconds())
	writeJSON(w, resp, http.StatusOK)
}

// parseLimit accepts a JSON number or a numeric string; anything else,
// including zero and negatives, yields the default.
func parseLimit(raw json.RawMessage) uint64 {
	if len(raw) == 0 {
		return defaultSearchLimit
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return defaultSearchLimit
		}
		n, err = strconv.ParseInt(str, 10, 64)
		if err != nil {
			return defaultSearchLimit
		}
	}

	if n <= 0 {
		return defaultSearchLimit
	}
	if n > maxSearchLimit {
		return maxSearchLimit
	}
	return uint64(n)
}

func pointToJSON(p repo.PickupPoint) pointJSON {
	return pointJSON{
		Code:            p.Code,
		Name:            p.Name,
		Type:            p.Type,
		City:            p.City,
		Address:         p.Address,
		AddressComment:  p.AddressComment,
		Phone:           p.Phone,
		WorkTime:        p.WorkTime,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		CashOnDelivery:  p.CashOnDelivery,
		CardPayment:     p.CardPayment,
		FittingRoom:     p.FittingRoom,
		PartialDelivery: p.PartialDelivery,
		WeightMaxKG:     p.WeightMaxKG,
	}
}

type geocodeCityRequest struct {
	City         string   `json:"city" validate:"required"`
	CountryCodes []string `json:"country_codes"`
}

type cityJSON struct {
	Code        int     `json:"code"`
	City        string  `json:"city"`
	Region      string  `json:"region,omitempty"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (s *Server) handleGeocodeCity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req geocodeCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	cities, err := s.geocoder.Cities(ctx, &cdek.CityFilter{
		Query:        req.City,
		CountryCodes: req.CountryCodes,
		Size:         1,
	})
	if err != nil {
		s.logger.Ctx(ctx).Error("City geocoding failed",
			zap.String("city", req.City),
			zap.Error(err),
		)
		s.metrics.RecordRequest("geocode_city", "cdek", "error", time.Since(start).Seconds())
		writeError(w, "provider lookup failed", http.StatusBadGateway)
		return
	}
	if len(cities) == 0 {
		writeError(w, "city not found", http.StatusNotFound)
		return
	}

	best := cities[0]
	s.metrics.RecordRequest("geocode_city", "cdek", "ok", time.Since(start).Seconds())
	writeJSON(w, cityJSON{
		Code:        best.Code,
		City:        best.City,
		Region:      best.Region,
		CountryCode: best.CountryCode,
		Latitude:    best.Latitude,
		Longitude:   best.Longitude,
	}, http.StatusOK)
}
