package cdek_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/velostore/cdek-bridge/pkg/shipper"
	"github.com/velostore/cdek-bridge/pkg/shipper/cdek"
	"go.uber.org/zap"
)

func testConfig() cdek.Config {
	return cdek.Config{
		TariffCode:      136,
		OrderType:       shipper.OrderTypeDelivery,
		DefaultWeightKG: 0.5,
	}
}

func newTestClient(cfg cdek.Config, mockClient *cdek.MockAPIClient) *cdek.Client {
	logger := otelzap.New(zap.NewNop())
	return cdek.NewWithAPIClient(cfg, mockClient, logger, nil)
}

func quoteRequest() *shipper.QuoteRequest {
	return &shipper.QuoteRequest{
		Origin: shipper.Address{
			CountryCode: "RU",
			City:        "Moscow",
			CityCode:    44,
			Street:      "Tverskaya 7",
		},
		Destination: shipper.Address{
			CountryCode: "RU",
			City:        "Saint Petersburg",
			CityCode:    137,
			Street:      "Nevsky 100",
		},
		Lines: []shipper.OrderLine{
			{Name: "T-shirt", SKU: "TS-01", Quantity: 2, UnitPrice: 1200, WeightKG: 0.3},
		},
		Subtotal: 2400,
	}
}

func TestClient_Quote_Success(t *testing.T) {
	client := newTestClient(testConfig(), cdek.NewMockAPIClient())

	result := client.Quote(context.Background(), quoteRequest())

	require.True(t, result.Success)
	assert.Greater(t, result.Price, 0.0)
	assert.Equal(t, "2-4 days", result.DeliveryTime)
	assert.Empty(t, result.ErrorMessage)
}

func TestClient_Quote_ExtraDaysPadding(t *testing.T) {
	cfg := testConfig()
	cfg.ExtraDays = 2
	client := newTestClient(cfg, cdek.NewMockAPIClient())

	result := client.Quote(context.Background(), quoteRequest())

	require.True(t, result.Success)
	assert.Equal(t, "2-6 days", result.DeliveryTime)
}

func TestClient_Quote_FreeShipping(t *testing.T) {
	mockAPI := cdek.NewMockAPIClient()
	called := false
	mockAPI.OnCalculateTariff = func(ctx context.Context, req *cdek.TariffRequest) (*cdek.TariffResponse, error) {
		called = true
		return &cdek.TariffResponse{TotalSum: 350}, nil
	}

	cfg := testConfig()
	cfg.FreeShippingThreshold = 2000
	client := newTestClient(cfg, mockAPI)

	result := client.Quote(context.Background(), quoteRequest())

	require.True(t, result.Success)
	assert.Equal(t, 0.0, result.Price)
	assert.False(t, called, "provider must not be invoked above the threshold")
}

func TestClient_Quote_APIError(t *testing.T) {
	mockAPI := cdek.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(testConfig(), mockAPI)

	result := client.Quote(context.Background(), quoteRequest())

	assert.False(t, result.Success)
	assert.Equal(t, 0.0, result.Price)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestClient_Quote_MissingTariffCode(t *testing.T) {
	cfg := testConfig()
	cfg.TariffCode = 0
	client := newTestClient(cfg, cdek.NewMockAPIClient())

	result := client.Quote(context.Background(), quoteRequest())

	assert.False(t, result.Success)
	assert.Equal(t, 0.0, result.Price)
	assert.Contains(t, result.ErrorMessage, "tariff code")
}

func shipmentUnit(ref string) *shipper.ShipmentUnit {
	return &shipper.ShipmentUnit{
		Reference: ref,
		Sender: shipper.Party{
			Name:      "Velostore LLC",
			Company:   "Velostore LLC",
			Phone:     "+7 (495) 123-45-67",
			IsCompany: true,
		},
		Recipient: shipper.Party{
			Name:  "Ivan Petrov",
			Phone: "+7 912 000-11-22",
		},
		Origin: shipper.Address{
			CountryCode: "RU",
			City:        "Moscow",
			CityCode:    44,
			Street:      "Tverskaya 7",
		},
		Destination: shipper.Address{
			CountryCode: "RU",
			City:        "Saint Petersburg",
			CityCode:    137,
			Street:      "Nevsky 100",
		},
		Lines: []shipper.OrderLine{
			{Name: "T-shirt", SKU: "TS-01", Quantity: 1, UnitPrice: 1200, WeightKG: 0.3},
		},
	}
}

func TestClient_RegisterShipments_Success(t *testing.T) {
	client := newTestClient(testConfig(), cdek.NewMockAPIClient())

	results := client.RegisterShipments(context.Background(),
		[]*shipper.ShipmentUnit{shipmentUnit("OUT/001"), shipmentUnit("OUT/002")})

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Empty(t, res.ErrorMessage)
		assert.NotEmpty(t, res.ProviderID)
		assert.NotEmpty(t, res.TrackingNumber)
	}
	assert.Equal(t, "OUT/001", results[0].Reference)
	assert.Equal(t, "OUT/002", results[1].Reference)
}

func TestClient_RegisterShipments_FailedUnitDoesNotAbortBatch(t *testing.T) {
	client := newTestClient(testConfig(), cdek.NewMockAPIClient())

	bad := shipmentUnit("OUT/001")
	bad.Recipient.Phone = "" // validation failure before any network call

	results := client.RegisterShipments(context.Background(),
		[]*shipper.ShipmentUnit{bad, shipmentUnit("OUT/002")})

	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].ErrorMessage)
	assert.Empty(t, results[0].ProviderID)
	assert.Empty(t, results[1].ErrorMessage)
	assert.NotEmpty(t, results[1].ProviderID)
}

type captureRecorder struct {
	reference   string
	providerID  string
	tracking    string
	pickupPoint string
}

func (r *captureRecorder) RecordRegistration(ctx context.Context, reference, providerID, tracking, pickupPointCode string) error {
	r.reference = reference
	r.providerID = providerID
	r.tracking = tracking
	r.pickupPoint = pickupPointCode
	return nil
}

func TestClient_RegisterShipments_RecordsRegistration(t *testing.T) {
	rec := &captureRecorder{}
	client := newTestClient(testConfig(), cdek.NewMockAPIClient()).WithRecorder(rec)

	unit := shipmentUnit("OUT/001")
	unit.PickupPointCode = "SPB12"
	results := client.RegisterShipments(context.Background(),
		[]*shipper.ShipmentUnit{unit})

	require.Len(t, results, 1)
	assert.Equal(t, "OUT/001", rec.reference)
	assert.Equal(t, results[0].ProviderID, rec.providerID)
	assert.Equal(t, results[0].TrackingNumber, rec.tracking)
	assert.Equal(t, "SPB12", rec.pickupPoint)
}

func TestClient_TrackingLink(t *testing.T) {
	client := newTestClient(testConfig(), cdek.NewMockAPIClient())

	link := client.TrackingLink("123-456")

	assert.Contains(t, link, "123-456")
	assert.True(t, strings.HasPrefix(link, "https://"))
}

func TestClient_GetLabel_FormatValidation(t *testing.T) {
	mockAPI := cdek.NewMockAPIClient()
	called := false
	mockAPI.OnGetLabel = func(ctx context.Context, orderUUID string, format string) ([]byte, error) {
		called = true
		return []byte("label"), nil
	}
	client := newTestClient(testConfig(), mockAPI)

	_, err := client.GetLabel(context.Background(), &shipper.LabelRequest{
		OrderID: "uuid-1", Format: "png",
	})

	require.Error(t, err)
	assert.True(t, shipper.IsKind(err, shipper.KindValidation))
	assert.False(t, called, "invalid format must fail before any network call")
}

func TestClient_GetLabel_CaseInsensitiveFormat(t *testing.T) {
	client := newTestClient(testConfig(), cdek.NewMockAPIClient())

	resp, err := client.GetLabel(context.Background(), &shipper.LabelRequest{
		OrderID: "uuid-1", Format: "PDF",
	})

	require.NoError(t, err)
	assert.Equal(t, shipper.LabelPDF, resp.Format)
	assert.NotEmpty(t, resp.Data)
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		code string
		want shipper.ShipmentStatus
	}{
		{"CREATED", shipper.StatusRegistered},
		{"ACCEPTED", shipper.StatusAccepted},
		{"ACCEPTED_AT_PICK_UP_POINT", shipper.StatusReadyForPickup},
		{"DELIVERED", shipper.StatusDelivered},
		{"NOT_DELIVERED", shipper.StatusNotDelivered},
		{"REMOVED", shipper.StatusCancelled},
		{"SENT_TO_TRANSIT_CITY", shipper.StatusInTransit},
		{"SOMETHING_NEW", shipper.StatusInTransit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cdek.NormalizeStatus(tt.code), tt.code)
	}
}
