package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/velostore/cdek-bridge/internal/repo"
	"github.com/velostore/cdek-bridge/internal/server"
	"github.com/velostore/cdek-bridge/internal/telemetry"
	"github.com/velostore/cdek-bridge/pkg/shipper/cdek"
	"go.uber.org/zap"
)

var (
	metricsOnce sync.Once
	testMetrics *telemetry.Metrics
)

func sharedMetrics() *telemetry.Metrics {
	metricsOnce.Do(func() {
		testMetrics = telemetry.NewMetrics()
	})
	return testMetrics
}

type fakeSearcher struct {
	lastParams repo.SearchParams
	points     []repo.PickupPoint
}

func (f *fakeSearcher) Search(ctx context.Context, params repo.SearchParams) ([]repo.PickupPoint, error) {
	f.lastParams = params
	return f.points, nil
}

func newTestServer(cfg server.Config, searcher server.PointSearcher, geocoder server.CityGeocoder) http.Handler {
	logger := otelzap.New(zap.NewNop())
	if geocoder == nil {
		geocoder = cdek.NewMockAPIClient()
	}
	srv := server.New(cfg, searcher, geocoder, logger, sharedMetrics())
	return srv.Routes()
}

func postJSON(t *testing.T, handler http.Handler, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPointSearch_ForwardsFilter(t *testing.T) {
	searcher := &fakeSearcher{points: []repo.PickupPoint{
		{Code: "MSK67", Name: "On Tverskaya", Type: "counter", City: "Moscow", Latitude: 55.76, Longitude: 37.6},
	}}
	handler := newTestServer(server.Config{}, searcher, nil)

	rec := postJSON(t, handler, "/api/v1/points/search",
		`{"city":"Moscow","query":"tver","limit":10}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Moscow", searcher.lastParams.City)
	assert.Equal(t, "tver", searcher.lastParams.Query)
	assert.Equal(t, uint64(10), searcher.lastParams.Limit)

	var resp struct {
		Points []struct {
			Code     string  `json:"code"`
			Latitude float64 `json:"latitude"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Points, 1)
	assert.Equal(t, "MSK67", resp.Points[0].Code)
	assert.Equal(t, 55.76, resp.Points[0].Latitude)
}

func TestPointSearch_LimitFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name string
		body string
		want uint64
	}{
		{"missing", `{"city":"Moscow"}`, 50},
		{"numeric string", `{"city":"Moscow","limit":"25"}`, 25},
		{"garbage string", `{"city":"Moscow","limit":"lots"}`, 50},
		{"zero", `{"city":"Moscow","limit":0}`, 50},
		{"negative", `{"city":"Moscow","limit":-5}`, 50},
		{"object", `{"city":"Moscow","limit":{"n":3}}`, 50},
		{"huge", `{"city":"Moscow","limit":100000}`, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{}
			handler := newTestServer(server.Config{}, searcher, nil)

			rec := postJSON(t, handler, "/api/v1/points/search", tt.body, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, searcher.lastParams.Limit)
		})
	}
}

func TestPointSearch_RequiresToken(t *testing.T) {
	handler := newTestServer(server.Config{APIToken: "secret"}, &fakeSearcher{}, nil)

	rec := postJSON(t, handler, "/api/v1/points/search", `{"city":"Moscow"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, handler, "/api/v1/points/search", `{"city":"Moscow"}`,
		map[string]string{"X-API-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, handler, "/api/v1/points/search", `{"city":"Moscow"}`,
		map[string]string{"X-API-Token": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, handler, "/api/v1/points/search", `{"city":"Moscow"}`,
		map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGeocodeCity_ReturnsBestMatch(t *testing.T) {
	geocoder := cdek.NewMockAPIClient() // default mock returns Moscow
	handler := newTestServer(server.Config{}, &fakeSearcher{}, geocoder)

	rec := postJSON(t, handler, "/api/v1/geocode/city", `{"city":"Moscow"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var city struct {
		Code        int    `json:"code"`
		City        string `json:"city"`
		CountryCode string `json:"country_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &city))
	assert.Equal(t, 44, city.Code)
	assert.Equal(t, "Moscow", city.City)
	assert.Equal(t, "RU", city.CountryCode)
}

func TestGeocodeCity_NotFound(t *testing.T) {
	geocoder := cdek.NewMockAPIClient()
	geocoder.OnCities = func(ctx context.Context, filter *cdek.CityFilter) ([]cdek.City, error) {
		return nil, nil
	}
	handler := newTestServer(server.Config{}, &fakeSearcher{}, geocoder)

	rec := postJSON(t, handler, "/api/v1/geocode/city", `{"city":"Nowhere"}`, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGeocodeCity_ValidationError(t *testing.T) {
	handler := newTestServer(server.Config{}, &fakeSearcher{}, nil)

	rec := postJSON(t, handler, "/api/v1/geocode/city", `{}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "City")
}

func TestGeocodeCity_ProviderFailure(t *testing.T) {
	geocoder := cdek.NewMockAPIClient()
	geocoder.SimulateErrors = true
	handler := newTestServer(server.Config{}, &fakeSearcher{}, geocoder)

	rec := postJSON(t, handler, "/api/v1/geocode/city", `{"city":"Moscow"}`, nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
