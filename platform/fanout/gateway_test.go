package fanout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_ingest_backend/models"
	"go_ingest_backend/platform/events"
	"go_ingest_backend/platform/fanout"
	"go_ingest_backend/testutil"
)

func newGateway(t *testing.T) (*fanout.Gateway, events.Bus) {
	t.Helper()
	_, svc := testutil.NewRedis(t)
	bus := events.NewRedisBus(svc.Rdb, nil)
	gw := fanout.NewGateway(bus, fanout.NewRegistry(16, nil), nil, time.Hour)
	require.NoError(t, gw.Start(context.Background()))
	t.Cleanup(func() { _ = gw.Stop() })
	return gw, bus
}

func stream(t *testing.T, gw *fanout.Gateway, key string, sink fanout.Sink) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	before := gw.Registry().Count(key)
	go func() { done <- gw.Stream(ctx, key, sink) }()
	testutil.Eventually(t, time.Second, func() bool { return gw.Registry().Count(key) > before })
	return cancel, done
}

func TestGatewayRoutesByFileAndGlobal(t *testing.T) {
	gw, bus := newGateway(t)
	ctx := context.Background()

	f1, f2, all := &testutil.FrameSink{}, &testutil.FrameSink{}, &testutil.FrameSink{}
	cancel1, _ := stream(t, gw, "f1", f1)
	defer cancel1()
	cancel2, _ := stream(t, gw, "f2", f2)
	defer cancel2()
	cancelAll, _ := stream(t, gw, fanout.AllKey, all)
	defer cancelAll()

	require.NoError(t, events.PublishEvent(ctx, bus, models.FileProcessingEvent{FileID: "f1", Status: "STARTED", Progress: 0}))
	require.NoError(t, events.PublishEvent(ctx, bus, models.FileErrorEvent{FileID: "f2", Error: "boom"}))
	require.NoError(t, events.PublishEvent(ctx, bus, models.FileProcessedEvent{FileID: "f1", Result: models.ProcessingResult{Success: true}}))

	testutil.Eventually(t, 2*time.Second, func() bool { return len(all.Types()) == 3 && len(f1.Types()) == 2 && len(f2.Types()) == 1 })

	assert.Equal(t, []models.EventType{models.EventFileProcessing, models.EventFileProcessed}, f1.Types())
	for _, f := range f1.Frames() {
		assert.Equal(t, "f1", f.FileID())
	}
	assert.Equal(t, []models.EventType{models.EventFileError}, f2.Types())
	assert.Equal(t, []models.EventType{models.EventFileProcessing, models.EventFileError, models.EventFileProcessed}, all.Types())
}

func TestGatewayDropsInvalidPayloads(t *testing.T) {
	gw, bus := newGateway(t)
	all := &testutil.FrameSink{}
	cancel, _ := stream(t, gw, fanout.AllKey, all)
	defer cancel()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, string(models.EventFileProcessing), map[string]any{"fileId": "f1", "progress": 150}))
	require.NoError(t, bus.Publish(ctx, string(models.EventFileError), map[string]any{"error": "no id"}))
	require.NoError(t, events.PublishEvent(ctx, bus, models.FileErrorEvent{FileID: "f1", Error: "ok"}))

	testutil.Eventually(t, 2*time.Second, func() bool { return len(all.Types()) == 1 })
	assert.Equal(t, []models.EventType{models.EventFileError}, all.Types())
}

func TestStreamCleansUpOnCancel(t *testing.T) {
	gw, _ := newGateway(t)

	for _i := 0; _i < 3; _i++ {
		cancel, done := stream(t, gw, "f1", &testutil.FrameSink{})
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("stream did not return after cancel")
		}
	}
	assert.Equal(t, 0, gw.Registry().Count("f1"))
	assert.Equal(t, 0, gw.Registry().Keys())
}

func TestStreamEndsOnWriteFailure(t *testing.T) {
	gw, bus := newGateway(t)
	sink := &testutil.FrameSink{FailAfter: 1}
	cancel, done := stream(t, gw, "f1", sink)
	defer cancel()

	ctx := context.Background()
	require.NoError(t, events.PublishEvent(ctx, bus, models.FileProcessingEvent{FileID: "f1", Progress: 10}))
	require.NoError(t, events.PublishEvent(ctx, bus, models.FileProcessingEvent{FileID: "f1", Progress: 20}))

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end on write failure")
	}
	assert.Equal(t, 0, gw.Registry().Count("f1"))
}

func TestStopEndsStreams(t *testing.T) {
	gw, _ := newGateway(t)
	cancel, done := stream(t, gw, fanout.AllKey, &testutil.FrameSink{})
	defer cancel()

	require.NoError(t, gw.Stop())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, fanout.ErrGatewayStopped)
	case <-time.After(time.Second):
		t.Fatal("stream still open after stop")
	}
	assert.NoError(t, gw.Stop(), "stop is idempotent")
}
