package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

func newTestChannel(t *testing.T) *MultiReceiverChannel {
	t.Helper()
	m, err := New(logger.NewDiscard())
	require.NoError(t, err)
	return m
}

func sampleSummary(spread float64) domain.Summary {
	return domain.Summary{
		Spread: spread,
		Bids:   []domain.Level{{Price: 100, Amount: 1, Exchange: "binance"}},
		Asks:   []domain.Level{{Price: 101, Amount: 1, Exchange: "bitstamp"}},
	}
}

func TestPublishWithNoSubscribersIsNoop(t *testing.T) {
	m := newTestChannel(t)
	assert.NoError(t, m.Publish(context.Background(), sampleSummary(1)))
}

func TestPublishDeliversToEverySubscriber(t *testing.T) {
	m := newTestChannel(t)
	a := m.Subscribe(10)
	b := m.Subscribe(10)

	require.NoError(t, m.Publish(context.Background(), sampleSummary(1)))

	select {
	case msg := <-a.Messages():
		assert.Equal(t, 1.0, msg.Spread)
	default:
		t.Fatal("subscriber a did not receive the summary")
	}
	select {
	case msg := <-b.Messages():
		assert.Equal(t, 1.0, msg.Spread)
	default:
		t.Fatal("subscriber b did not receive the summary")
	}
}

// Scenario F: two subscribers are registered, one's receiver is dropped
// (Close), and a publish afterward reaches only the surviving subscriber;
// the subscriber set shrinks and later publishes keep succeeding.
func TestPublishSkipsDisconnectedSubscriberAndContinues(t *testing.T) {
	m := newTestChannel(t)

	dropped := m.Subscribe(10)
	healthy := m.Subscribe(10)
	require.Equal(t, 2, m.SubscriberCount())

	dropped.Close()
	assert.Equal(t, 1, m.SubscriberCount(), "the disconnected subscriber must be removed")

	require.NoError(t, m.Publish(context.Background(), sampleSummary(2)))

	select {
	case msg, ok := <-healthy.Messages():
		require.True(t, ok)
		assert.Equal(t, 2.0, msg.Spread)
	default:
		t.Fatal("healthy subscriber should have received the summary")
	}

	// dropped's channel is closed, never delivered to.
	_, stillOpen := <-dropped.Messages()
	assert.False(t, stillOpen)
}

// Publish back-pressures the publisher for a slow subscriber: it blocks
// until that subscriber's queue has room rather than dropping the message
// or removing the subscriber.
func TestPublishBlocksUntilSlowSubscriberDrains(t *testing.T) {
	m := newTestChannel(t)

	slow := m.Subscribe(1)
	require.NoError(t, m.Publish(context.Background(), sampleSummary(1)))

	published := make(chan struct{})
	go func() {
		defer close(published)
		_ = m.Publish(context.Background(), sampleSummary(2))
	}()

	select {
	case <-published:
		t.Fatal("publish must not complete while the slow subscriber's queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	msg := <-slow.Messages()
	assert.Equal(t, 1.0, msg.Spread)

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish did not unblock after the subscriber drained")
	}

	assert.Equal(t, 1, m.SubscriberCount())
}

func TestCloseUnsubscribesAndStopsDelivery(t *testing.T) {
	m := newTestChannel(t)
	handle := m.Subscribe(10)
	require.Equal(t, 1, m.SubscriberCount())

	handle.Close()
	assert.Equal(t, 0, m.SubscriberCount())

	// Closing twice must not panic.
	handle.Close()

	require.NoError(t, m.Publish(context.Background(), sampleSummary(1)))
}

func TestHandleIDIsStableAndUnique(t *testing.T) {
	m := newTestChannel(t)
	a := m.Subscribe(1)
	b := m.Subscribe(1)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestPublishUnderConcurrentSubscribeIsRaceFree(t *testing.T) {
	m := newTestChannel(t)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			h := m.Subscribe(5)
			_ = m.Publish(context.Background(), sampleSummary(float64(i)))
			h.Close()
		}
	}()

	for i := 0; i < 50; i++ {
		_ = m.Publish(context.Background(), sampleSummary(float64(-i)))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent subscribe/publish did not finish in time")
	}
}
