package sync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/velostore/cdek-bridge/internal/repo"
	syncjob "github.com/velostore/cdek-bridge/internal/sync"
	"github.com/velostore/cdek-bridge/pkg/shipper"
	"go.uber.org/zap"
)

type fakeShipmentStore struct {
	active   []repo.Shipment
	statuses map[string]shipper.ShipmentStatus
}

func (f *fakeShipmentStore) ListActive(ctx context.Context) ([]repo.Shipment, error) {
	return f.active, nil
}

func (f *fakeShipmentStore) UpdateStatus(ctx context.Context, providerID string, status shipper.ShipmentStatus, trackingNumber string) (bool, error) {
	if f.statuses[providerID] == status {
		return false, nil
	}
	f.statuses[providerID] = status
	return true, nil
}

type fakeStatusSource struct {
	statuses map[string]shipper.ShipmentStatus
	errs     map[string]error
}

func (f *fakeStatusSource) OrderStatus(ctx context.Context, providerID string) (shipper.ShipmentStatus, string, error) {
	if err := f.errs[providerID]; err != nil {
		return "", "", err
	}
	return f.statuses[providerID], "track-" + providerID, nil
}

type fakePublisher struct {
	events []*shipper.StatusEvent
}

func (f *fakePublisher) PublishStatus(ctx context.Context, event *shipper.StatusEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newStatusSyncer(source syncjob.StatusSource, store syncjob.ShipmentStore, pub syncjob.StatusPublisher) *syncjob.StatusSyncer {
	logger := otelzap.New(zap.NewNop())
	return syncjob.NewStatusSyncer(syncjob.StatusSyncerConfig{Carrier: "cdek"},
		source, store, pub, logger, nil)
}

func TestStatusSyncer_PublishesTransitions(t *testing.T) {
	store := &fakeShipmentStore{
		active: []repo.Shipment{
			{Reference: "OUT/001", ProviderID: "u-1", Status: shipper.StatusRegistered},
			{Reference: "OUT/002", ProviderID: "u-2", Status: shipper.StatusInTransit},
		},
		statuses: map[string]shipper.ShipmentStatus{
			"u-1": shipper.StatusRegistered,
			"u-2": shipper.StatusInTransit,
		},
	}
	source := &fakeStatusSource{statuses: map[string]shipper.ShipmentStatus{
		"u-1": shipper.StatusInTransit, // changed
		"u-2": shipper.StatusInTransit, // unchanged
	}}
	pub := &fakePublisher{}

	err := newStatusSyncer(source, store, pub).SyncOnce(context.Background())

	require.NoError(t, err)
	require.Len(t, pub.events, 1, "only transitions are published")
	event := pub.events[0]
	assert.Equal(t, "cdek", event.Carrier)
	assert.Equal(t, "u-1", event.ProviderID)
	assert.Equal(t, "OUT/001", event.Reference)
	assert.Equal(t, "track-u-1", event.TrackingNumber)
	assert.Equal(t, shipper.StatusInTransit, event.Status)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestStatusSyncer_LookupFailureSkipsShipment(t *testing.T) {
	store := &fakeShipmentStore{
		active: []repo.Shipment{
			{Reference: "OUT/001", ProviderID: "u-1", Status: shipper.StatusRegistered},
			{Reference: "OUT/002", ProviderID: "u-2", Status: shipper.StatusRegistered},
		},
		statuses: map[string]shipper.ShipmentStatus{
			"u-1": shipper.StatusRegistered,
			"u-2": shipper.StatusRegistered,
		},
	}
	source := &fakeStatusSource{
		statuses: map[string]shipper.ShipmentStatus{"u-2": shipper.StatusDelivered},
		errs:     map[string]error{"u-1": errors.New("provider down")},
	}
	pub := &fakePublisher{}

	err := newStatusSyncer(source, store, pub).SyncOnce(context.Background())

	require.NoError(t, err, "one failed lookup does not abort the cycle")
	require.Len(t, pub.events, 1)
	assert.Equal(t, "u-2", pub.events[0].ProviderID)
	assert.Equal(t, shipper.StatusDelivered, store.statuses["u-2"])
}

func TestStatusSyncer_NilPublisherStillTracksStatus(t *testing.T) {
	store := &fakeShipmentStore{
		active: []repo.Shipment{
			{Reference: "OUT/001", ProviderID: "u-1", Status: shipper.StatusRegistered},
		},
		statuses: map[string]shipper.ShipmentStatus{"u-1": shipper.StatusRegistered},
	}
	source := &fakeStatusSource{statuses: map[string]shipper.ShipmentStatus{
		"u-1": shipper.StatusDelivered,
	}}

	err := newStatusSyncer(source, store, nil).SyncOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusDelivered, store.statuses["u-1"])
}
