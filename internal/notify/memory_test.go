package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	events, cancel := bus.Subscribe(ChannelNewDocument)
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), ChannelNewDocument, "doc-1"))
	select {
	case payload := <-events:
		require.Equal(t, "doc-1", payload)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestMemoryBus_ChannelsAreIsolated(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	events, cancel := bus.Subscribe(ChannelIngestedDoc)
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), ChannelNewDocument, "doc-1"))
	select {
	case payload := <-events:
		t.Fatalf("unexpected event: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBus_SlowSubscriberLosesMessages(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	events, cancel := bus.Subscribe(ChannelProgressUpdate)
	defer cancel()

	// overflow the buffer; publishes must not block
	for i := 0; i < 100; i++ {
		require.NoError(t, bus.Publish(context.Background(), ChannelProgressUpdate, "payload"))
	}
	received := 0
	for {
		select {
		case <-events:
			received++
		default:
			require.Less(t, received, 100)
			require.Greater(t, received, 0)
			return
		}
	}
}

func TestMemoryBus_CancelClosesChannel(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	events, cancel := bus.Subscribe(ChannelNewDocument)
	cancel()
	cancel()

	_, ok := <-events
	require.False(t, ok)

	// publish after cancel must not panic or deliver
	require.NoError(t, bus.Publish(context.Background(), ChannelNewDocument, "doc-1"))
}

func TestMemoryBus_CloseClosesSubscribers(t *testing.T) {
	bus := NewMemory()
	events, _ := bus.Subscribe(ChannelNewDocument)
	require.NoError(t, bus.Close())
	_, ok := <-events
	require.False(t, ok)

	late, cancel := bus.Subscribe(ChannelNewDocument)
	defer cancel()
	_, ok = <-late
	require.False(t, ok)
}

func TestMemoryBus_CancelAfterCloseDoesNotPanic(t *testing.T) {
	bus := NewMemory()
	events, cancel := bus.Subscribe(ChannelNewDocument)
	require.NoError(t, bus.Close())

	// workers and SSE streams run their cancel on teardown after the
	// bus has already shut down; the channel is closed exactly once
	require.NotPanics(t, cancel)
	_, ok := <-events
	require.False(t, ok)
}

func TestMemoryBus_CloseAfterCancelDoesNotPanic(t *testing.T) {
	bus := NewMemory()
	events, cancel := bus.Subscribe(ChannelNewDocument)
	cancel()

	require.NotPanics(t, func() {
		require.NoError(t, bus.Close())
	})
	_, ok := <-events
	require.False(t, ok)
}
