// Package fanout implements the multi-receiver broadcast channel the
// streaming server uses to hand every merged Summary to each connected
// client. The shape is a mutex-guarded set of per-subscriber channels:
// publish walks the set and blocks on each subscriber's channel in turn,
// so a slow reader back-pressures the publisher; a subscriber is only
// ever removed when it explicitly disconnects via Close.
package fanout

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

const meterName = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/fanout"

// DefaultBufferSize is the per-subscriber channel capacity used when a
// caller doesn't need a different one; it matches the reference
// configuration's subscriber queue depth.
const DefaultBufferSize = 1000

type subscriber struct {
	id string
	ch chan domain.Summary
}

// ReceiverHandle is a single subscription returned by Subscribe. Callers
// read from Messages until they call Close, which closes the channel.
type ReceiverHandle struct {
	id string
	ch <-chan domain.Summary

	unsubscribe func(id string)
	once        sync.Once
}

// ID is the subscription's correlation id, suitable for log and trace
// attribution.
func (h *ReceiverHandle) ID() string {
	return h.id
}

// Messages returns the channel of Summary objects delivered to this
// subscriber. It is closed once Close has been called.
func (h *ReceiverHandle) Messages() <-chan domain.Summary {
	return h.ch
}

// Close unsubscribes the receiver. Safe to call more than once.
func (h *ReceiverHandle) Close() {
	h.once.Do(func() {
		h.unsubscribe(h.id)
	})
}

type fanoutMetrics struct {
	subscribersActive  metric.Int64UpDownCounter
	messagesDelivered  metric.Int64Counter
	subscribersRemoved metric.Int64Counter
}

// MultiReceiverChannel is the fan-out primitive: one producer (the
// aggregator), many consumers (streaming server connections). It owns no
// goroutine of its own; Publish runs on the caller's goroutine.
type MultiReceiverChannel struct {
	mu          sync.Mutex
	subscribers []*subscriber

	logger  logger.LoggerInterface
	metrics *fanoutMetrics
}

// New builds an empty MultiReceiverChannel.
func New(log logger.LoggerInterface) (*MultiReceiverChannel, error) {
	m := &MultiReceiverChannel{logger: log}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MultiReceiverChannel) initMetrics() error {
	meter := otel.Meter(meterName)
	fm := &fanoutMetrics{}
	var err error

	fm.subscribersActive, err = meter.Int64UpDownCounter("orderbook_fanout_subscribers_active",
		metric.WithDescription("Currently subscribed summary stream consumers"))
	if err != nil {
		return err
	}
	fm.messagesDelivered, err = meter.Int64Counter("orderbook_fanout_messages_delivered_total",
		metric.WithDescription("Summaries successfully delivered to a subscriber"))
	if err != nil {
		return err
	}
	fm.subscribersRemoved, err = meter.Int64Counter("orderbook_fanout_subscribers_removed_total",
		metric.WithDescription("Subscribers removed after disconnecting"))
	if err != nil {
		return err
	}

	m.metrics = fm
	return nil
}

// Subscribe registers a new receiver with the given buffer capacity and
// returns a handle the caller reads from until it disconnects.
func (m *MultiReceiverChannel) Subscribe(bufferSize int) *ReceiverHandle {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	sub := &subscriber{
		id: uuid.NewString(),
		ch: make(chan domain.Summary, bufferSize),
	}

	m.mu.Lock()
	m.subscribers = append(m.subscribers, sub)
	m.mu.Unlock()

	m.metrics.subscribersActive.Add(context.Background(), 1)

	return &ReceiverHandle{
		id:          sub.id,
		ch:          sub.ch,
		unsubscribe: m.unsubscribe,
	}
}

func (m *MultiReceiverChannel) unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub.id == id {
			close(sub.ch)
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			m.metrics.subscribersActive.Add(context.Background(), -1)
			m.metrics.subscribersRemoved.Add(context.Background(), 1, metric.WithAttributes(
				attribute.String("subscriber_id", id)))
			return
		}
	}
}

// Publish delivers summary to every currently subscribed receiver, in
// insertion order. Each send blocks until the subscriber's queue has
// room, back-pressuring the publisher for that one subscriber; a
// subscriber is never removed here, only by its own Close call.
func (m *MultiReceiverChannel) Publish(ctx context.Context, summary domain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscribers {
		sub.ch <- summary
		m.metrics.messagesDelivered.Add(ctx, 1)
	}

	return nil
}

// SubscriberCount reports the number of currently connected receivers.
func (m *MultiReceiverChannel) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}
