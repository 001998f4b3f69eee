package cdek

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/velostore/cdek-bridge/pkg/shipper"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCalculateTariff func(ctx context.Context, req *TariffRequest) (*TariffResponse, error)
	OnCreateOrder     func(ctx context.Context, req *OrderRequest) (*OrderEntity, error)
	OnGetOrder        func(ctx context.Context, orderUUID string) (*OrderEntity, error)
	OnDeliveryPoints  func(ctx context.Context, filter *DeliveryPointsFilter) ([]DeliveryPoint, error)
	OnCities          func(ctx context.Context, filter *CityFilter) ([]City, error)
	OnGetLabel        func(ctx context.Context, orderUUID string, format string) ([]byte, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return shipper.NewError(carrierName, shipper.KindProtocol,
			"provider reported errors").WithEntries([]shipper.ErrorEntry{
			{Code: "MOCK_ERROR", Message: "Simulated API error"},
		})
	}
	return nil
}

// CalculateTariff returns a mock tariff calculation.
func (m *MockAPIClient) CalculateTariff(ctx context.Context, req *TariffRequest) (*TariffResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCalculateTariff != nil {
		return m.OnCalculateTariff(ctx, req)
	}

	weight := 0
	for _, pkg := range req.Packages {
		weight += pkg.Weight
	}

	return &TariffResponse{
		TotalSum:   350.0 + float64(weight)/1000*25,
		Currency:   "RUB",
		PeriodMin:  2,
		PeriodMax:  4,
		WeightCalc: weight,
	}, nil
}

// CreateOrder registers a mock order.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderEntity, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}

	return &OrderEntity{
		UUID:       uuid.NewString(),
		Number:     req.Number,
		CdekNumber: fmt.Sprintf("%d", 1000000000+time.Now().UnixNano()%9000000000),
		Statuses: []OrderStatus{
			{Code: "CREATED", Name: "Created", DateTime: time.Now().Format(time.RFC3339)},
		},
	}, nil
}

// GetOrder fetches a mock order.
func (m *MockAPIClient) GetOrder(ctx context.Context, orderUUID string) (*OrderEntity, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetOrder != nil {
		return m.OnGetOrder(ctx, orderUUID)
	}

	return &OrderEntity{
		UUID:       orderUUID,
		CdekNumber: "1106207858",
		Statuses: []OrderStatus{
			{Code: "CREATED", Name: "Created"},
			{Code: "ACCEPTED", Name: "Accepted"},
		},
	}, nil
}

// DeliveryPoints returns a small fixed set of mock pickup points.
func (m *MockAPIClient) DeliveryPoints(ctx context.Context, filter *DeliveryPointsFilter) ([]DeliveryPoint, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnDeliveryPoints != nil {
		return m.OnDeliveryPoints(ctx, filter)
	}

	return []DeliveryPoint{
		{
			Code:      "MSK67",
			Name:      "On Tverskaya",
			Type:      "PVZ",
			OwnerCode: "cdek",
			WorkTime:  "Mon-Sun 10:00-20:00",
			Phones:    []Phone{{Number: "+74951234567"}},
			Location: PointLocation{
				CountryCode: "RU",
				CityCode:    44,
				City:        "Moscow",
				Address:     "Tverskaya 7",
				Latitude:    55.7649,
				Longitude:   37.6049,
			},
			IsCashOnDelivery: true,
			PaymentMethods:   []PaymentMethod{{Type: "CASH"}, {Type: "CARD"}},
			Services:         []PointService{{Type: "FITTING_ROOM"}},
			WeightMaxKG:      30,
		},
		{
			Code:      "SPB12",
			Name:      "Nevsky Locker",
			Type:      "POSTAMAT",
			OwnerCode: "cdek",
			WorkTime:  "24/7",
			Location: PointLocation{
				CountryCode: "RU",
				CityCode:    137,
				City:        "Saint Petersburg",
				Address:     "Nevsky 100",
				Latitude:    59.9320,
				Longitude:   30.3490,
			},
			PaymentMethods: []PaymentMethod{{Type: "CARD"}},
			WeightMaxKG:    15,
		},
	}, nil
}

// Cities returns mock city lookups.
func (m *MockAPIClient) Cities(ctx context.Context, filter *CityFilter) ([]City, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCities != nil {
		return m.OnCities(ctx, filter)
	}

	return []City{
		{Code: 44, City: "Moscow", Region: "Moscow", CountryCode: "RU", Latitude: 55.7558, Longitude: 37.6173},
	}, nil
}

// GetLabel returns mock label bytes.
func (m *MockAPIClient) GetLabel(ctx context.Context, orderUUID string, format string) ([]byte, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetLabel != nil {
		return m.OnGetLabel(ctx, orderUUID, format)
	}

	if format == "zpl" {
		return []byte("^XA^FO50,50^ADN,36,20^FD" + orderUUID + "^FS^XZ"), nil
	}
	return []byte("%PDF-1.4 mock label " + orderUUID), nil
}

var _ APIClient = (*MockAPIClient)(nil)
