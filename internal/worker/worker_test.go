package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/notify"
)

func waitForDrains(t *testing.T, counter *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.GreaterOrEqual(t, counter.Load(), want)
}

func TestLoop_DrainsAtStartup(t *testing.T) {
	bus := notify.NewMemory()
	defer bus.Close()

	var drains atomic.Int64
	loop := NewLoop("test", notify.ChannelNewDocument, bus, time.Hour, func(ctx context.Context) {
		drains.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	waitForDrains(t, &drains, 1)
	cancel()
	<-done
}

func TestLoop_WakesOnNotification(t *testing.T) {
	bus := notify.NewMemory()
	defer bus.Close()

	var drains atomic.Int64
	loop := NewLoop("test", notify.ChannelNewDocument, bus, time.Hour, func(ctx context.Context) {
		drains.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	waitForDrains(t, &drains, 1)
	require.NoError(t, bus.Publish(ctx, notify.ChannelNewDocument, "doc-1"))
	waitForDrains(t, &drains, 2)

	cancel()
	<-done
}

func TestLoop_FallsBackToTicker(t *testing.T) {
	bus := notify.NewMemory()
	defer bus.Close()

	var drains atomic.Int64
	loop := NewLoop("test", notify.ChannelNewDocument, bus, 20*time.Millisecond, func(ctx context.Context) {
		drains.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	waitForDrains(t, &drains, 3)
	cancel()
	<-done
}

func TestLoop_IgnoresOtherChannels(t *testing.T) {
	bus := notify.NewMemory()
	defer bus.Close()

	var drains atomic.Int64
	loop := NewLoop("test", notify.ChannelIngestedDoc, bus, time.Hour, func(ctx context.Context) {
		drains.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	waitForDrains(t, &drains, 1)
	require.NoError(t, bus.Publish(ctx, notify.ChannelNewDocument, "doc-1"))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int64(1), drains.Load())

	cancel()
	<-done
}

func TestPublishProgress_DeliversEvent(t *testing.T) {
	bus := notify.NewMemory()
	defer bus.Close()

	events, cancel := bus.Subscribe(notify.ChannelProgressUpdate)
	defer cancel()

	publishProgress(context.Background(), bus, "doc-9", model.StageSummarizing, nil)

	select {
	case payload := <-events:
		var event model.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &event))
		require.Equal(t, "doc-9", event.ID)
		require.Equal(t, model.StageSummarizing, event.Stage)
	case <-time.After(time.Second):
		t.Fatal("no progress event received")
	}
}
