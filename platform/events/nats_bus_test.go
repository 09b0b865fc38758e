package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_ingest_backend/models"
	"go_ingest_backend/platform/events"
	"go_ingest_backend/testutil"
)

func newNatsBus(t *testing.T) *events.NatsBus {
	t.Helper()
	s, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go s.Start()
	if !s.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(s.Shutdown)

	conn, err := events.ConnectNats(s.ClientURL())
	require.NoError(t, err)
	bus := events.NewNatsBus(conn, nil)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestNatsBusFanOutAndOrder(t *testing.T) {
	ctx := context.Background()
	bus := newNatsBus(t)

	var a, b testutil.Recorder
	s1, err := bus.Subscribe(ctx, events.Channels(), a.Handle)
	require.NoError(t, err)
	defer s1.Close()
	s2, err := bus.Subscribe(ctx, events.Channels(), b.Handle)
	require.NoError(t, err)
	defer s2.Close()

	require.NoError(t, events.PublishEvent(ctx, bus, models.FileProcessingEvent{FileID: "f1", Status: "STARTED"}))
	require.NoError(t, events.PublishEvent(ctx, bus, models.FileProcessedEvent{FileID: "f1", Result: models.ProcessingResult{Success: true}}))

	for _, rec := range []*testutil.Recorder{&a, &b} {
		got := rec.WaitFor(t, 2, time.Second)
		assert.Equal(t, "FILE_PROCESSING", got[0].Channel)
		assert.Equal(t, "FILE_PROCESSED", got[1].Channel)
	}
}

func TestNatsBusCloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	bus := newNatsBus(t)

	var rec testutil.Recorder
	sub, err := bus.Subscribe(ctx, []string{"FILE_ERROR"}, rec.Handle)
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	require.NoError(t, bus.Publish(ctx, "FILE_ERROR", models.FileErrorEvent{FileID: "f1", Error: "x"}))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.Messages())
}
