package shipper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velostore/cdek-bridge/pkg/shipper"
	"github.com/velostore/cdek-bridge/pkg/shipper/mock"
)

func TestRegistry_Register(t *testing.T) {
	registry := shipper.NewRegistry()

	mockShipper := mock.New("test-shipper")
	registry.Register(mockShipper)

	got, err := registry.Get("test-shipper")
	require.NoError(t, err, "shipper should be registered")
	assert.Equal(t, "test-shipper", got.Name())
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := shipper.NewRegistry()

	// Register first shipper
	registry.Register(mock.New("test-shipper"))
	assert.Equal(t, 1, registry.Count())

	// Register again with same name should override
	registry.Register(mock.New("test-shipper"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := shipper.NewRegistry()

	_, err := registry.Get("nonexistent")
	assert.Error(t, err, "should return error for unregistered shipper")
	assert.True(t, errors.Is(err, shipper.ErrCarrierNotFound))
}

func TestRegistry_All(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("shipper-a"))
	registry.Register(mock.New("shipper-b"))
	registry.Register(mock.New("shipper-c"))

	all := registry.All()
	assert.Len(t, all, 3)
}

func TestRegistry_Names(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("cdek"))
	registry.Register(mock.New("boxberry"))

	names := registry.Names()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "cdek")
	assert.Contains(t, names, "boxberry")
}

func TestRegistry_Count(t *testing.T) {
	registry := shipper.NewRegistry()
	assert.Equal(t, 0, registry.Count())

	registry.Register(mock.New("shipper-a"))
	assert.Equal(t, 1, registry.Count())

	registry.Register(mock.New("shipper-b"))
	assert.Equal(t, 2, registry.Count())
}

func TestRegistry_QuoteAll(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("shipper-a"))

	failing := mock.New("shipper-b")
	failing.QuoteFn = func(ctx context.Context, req *shipper.QuoteRequest) *shipper.RateResult {
		return &shipper.RateResult{Success: false, ErrorMessage: "down"}
	}
	registry.Register(failing)

	results := registry.QuoteAll(context.Background(), &shipper.QuoteRequest{})

	require.Len(t, results, 2)
	assert.True(t, results["shipper-a"].Success)
	assert.False(t, results["shipper-b"].Success)
	assert.Equal(t, "down", results["shipper-b"].ErrorMessage)
}
