package shipper_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/velostore/cdek-bridge/pkg/shipper"
)

func TestError_Error(t *testing.T) {
	err := shipper.NewError("cdek", shipper.KindValidation, "country is not supported")
	assert.Equal(t, "cdek validation error: country is not supported", err.Error())
}

func TestError_WithStatusCode(t *testing.T) {
	err := shipper.NewError("cdek", shipper.KindProtocol, "bad request").WithStatusCode(400)
	assert.Equal(t, 400, err.StatusCode)
	assert.Contains(t, err.Error(), "status 400")
}

func TestError_EnumeratesEntries(t *testing.T) {
	err := shipper.NewError("cdek", shipper.KindProtocol, "provider reported errors").
		WithEntries([]shipper.ErrorEntry{
			{Code: "v2_field_is_empty", Message: "recipient.phones is empty", Field: "recipient.phones"},
			{Code: "v2_invalid_format", Message: "shipment_date is invalid"},
		})

	msg := err.Error()
	assert.Contains(t, msg, "v2_field_is_empty")
	assert.Contains(t, msg, "recipient.phones is empty")
	assert.Contains(t, msg, "v2_invalid_format")
	assert.Contains(t, msg, "shipment_date is invalid")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := shipper.NewError("cdek", shipper.KindTransport, "request failed").WithCause(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "request failed")
}

func TestError_IsMatchesByKind(t *testing.T) {
	err1 := shipper.NewError("cdek", shipper.KindTransport, "timeout")
	err2 := shipper.NewError("boxberry", shipper.KindTransport, "different message")
	err3 := shipper.NewError("cdek", shipper.KindProtocol, "bad body")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIsKind(t *testing.T) {
	err := shipper.NewError("cdek", shipper.KindAuth, "access token not found in response")

	assert.True(t, shipper.IsKind(err, shipper.KindAuth))
	assert.False(t, shipper.IsKind(err, shipper.KindTransport))
	assert.False(t, shipper.IsKind(errors.New("plain"), shipper.KindAuth))
}

func TestRetryable(t *testing.T) {
	assert.True(t, shipper.Retryable(
		shipper.NewError("cdek", shipper.KindTransport, "timeout")))
	assert.False(t, shipper.Retryable(
		shipper.NewError("cdek", shipper.KindProtocol, "bad request")))
	assert.False(t, shipper.Retryable(errors.New("plain")))
}
