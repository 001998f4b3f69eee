package cdek

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velostore/cdek-bridge/pkg/shipper"
)

func TestResolveEndpoint(t *testing.T) {
	c := &HTTPAPIClient{}

	endpoint, err := c.resolveEndpoint("order_by_uuid", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "orders/u-1", endpoint)

	_, err = c.resolveEndpoint("no_such_endpoint")
	require.Error(t, err)
	assert.True(t, shipper.IsKind(err, shipper.KindConfiguration))
}

func TestIsBinaryContent(t *testing.T) {
	assert.True(t, isBinaryContent("application/pdf"))
	assert.True(t, isBinaryContent("Application/PDF; charset=binary"))
	assert.True(t, isBinaryContent("application/octet-stream"))
	assert.False(t, isBinaryContent("application/json"))
	assert.False(t, isBinaryContent(""))
}

func TestUnwrapEnvelope(t *testing.T) {
	c := &HTTPAPIClient{}

	t.Run("entity", func(t *testing.T) {
		out, err := c.unwrapEnvelope("orders", []byte(`{"entity":{"uuid":"u-1"}}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"uuid":"u-1"}`, string(out))
	})

	t.Run("calculator keeps full body", func(t *testing.T) {
		body := []byte(`{"total_sum":412.5,"entity":{"ignored":true}}`)
		out, err := c.unwrapEnvelope("calculator_tariff", body)
		require.NoError(t, err)
		assert.Equal(t, body, out)
	})

	t.Run("list body untouched", func(t *testing.T) {
		body := []byte(`[{"code":"MSK67"}]`)
		out, err := c.unwrapEnvelope("delivery_points", body)
		require.NoError(t, err)
		assert.Equal(t, body, out)
	})

	t.Run("top-level errors are fatal", func(t *testing.T) {
		_, err := c.unwrapEnvelope("orders",
			[]byte(`{"errors":[{"code":"v2_bad","message":"nope"}]}`))
		require.Error(t, err)
		assert.True(t, shipper.IsKind(err, shipper.KindProtocol))
		assert.Contains(t, err.Error(), "v2_bad")
	})
}
