package bitstamp

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/apperror"
	"github.com/keyrock-labs/orderbook-aggregator/internal/circuitbreaker"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
	"github.com/keyrock-labs/orderbook-aggregator/internal/ratelimit"
	"github.com/keyrock-labs/orderbook-aggregator/internal/wsconn"
)

const (
	tracerName = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/feed/bitstamp"
	meterName  = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/feed/bitstamp"
)

// handshakeState tracks Bitstamp's explicit subscribe/ack sequence. Unlike
// Binance's auto-subscribed combined stream, the first frame received
// after sending the subscribe request must be the ack; anything else is a
// fatal protocol violation for this connection attempt.
type handshakeState int32

const (
	handshakeAwaitingAck handshakeState = iota
	handshakeStreaming
)

// ClientConfig configures the Bitstamp order-book feed adapter.
type ClientConfig struct {
	URL            string
	Currency       string
	ReadTimeout    time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultClientConfig returns the reference configuration's Bitstamp
// settings for the given currency pair.
func DefaultClientConfig(currency string) ClientConfig {
	return ClientConfig{
		URL:            "wss://ws.bitstamp.net",
		Currency:       currency,
		ReadTimeout:    30 * time.Second,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

type clientMetrics struct {
	snapshotsNormalized metric.Int64Counter
	normalizeErrors     metric.Int64Counter
	ackRejected         metric.Int64Counter
	reconnectAttempts   metric.Int64Counter
}

// Client is the Bitstamp feed adapter.
type Client struct {
	config   ClientConfig
	producer chan<- domain.OrderBookSnap
	logger   logger.LoggerInterface

	breaker *circuitbreaker.CircuitBreaker[struct{}]
	limiter *ratelimit.Limiter

	state atomic.Int32 // handshakeState

	conn         *wsconn.Client
	rejected     chan struct{}
	rejectedOnce sync.Once

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient builds a Bitstamp feed adapter writing normalized snapshots to
// producer.
func NewClient(cfg ClientConfig, producer chan<- domain.OrderBookSnap, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		config:   cfg,
		producer: producer,
		logger:   log,
		limiter:  ratelimit.New(30),
		rejected: make(chan struct{}),
		tracer:   otel.Tracer(tracerName),
	}
	c.breaker = circuitbreaker.New[struct{}](circuitbreaker.DefaultConfig("bitstamp-feed"))
	c.state.Store(int32(handshakeAwaitingAck))

	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &clientMetrics{}
	var err error

	m.snapshotsNormalized, err = meter.Int64Counter("bitstamp_snapshots_normalized_total",
		metric.WithDescription("Data frames successfully normalized into an OrderBookSnap"))
	if err != nil {
		return err
	}
	m.normalizeErrors, err = meter.Int64Counter("bitstamp_normalize_errors_total",
		metric.WithDescription("Data frames that failed schema validation"))
	if err != nil {
		return err
	}
	m.ackRejected, err = meter.Int64Counter("bitstamp_ack_rejected_total",
		metric.WithDescription("Connections whose first frame was not the expected subscription ack"))
	if err != nil {
		return err
	}
	m.reconnectAttempts, err = meter.Int64Counter("bitstamp_reconnect_attempts_total",
		metric.WithDescription("Connect attempts gated through the circuit breaker"))
	if err != nil {
		return err
	}

	c.metrics = m
	return nil
}

// Exchange identifies this adapter's venue.
func (c *Client) Exchange() domain.Exchange {
	return domain.Bitstamp
}

// Healthy reports this adapter's circuit breaker state, wired into the
// health server so a venue that has tripped its breaker surfaces as an
// unhealthy check instead of silently freezing its image slot.
func (c *Client) Healthy(context.Context) (bool, string) {
	return c.breaker.Healthy()
}

// Run connects to Bitstamp, performs the subscribe/ack handshake, and
// streams normalized snapshots until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	wsCfg := wsconn.DefaultConfig(c.config.URL, "bitstamp")
	wsCfg.ReadTimeout = c.config.ReadTimeout
	wsCfg.InitialBackoff = c.config.InitialBackoff
	wsCfg.MaxBackoff = c.config.MaxBackoff

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return apperror.New(apperror.CodeFeedConnectionFailed, apperror.WithCause(err))
	}
	conn.OnMessage(c.handleMessage)
	c.conn = conn

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		c.state.Store(int32(handshakeAwaitingAck))
		c.metrics.reconnectAttempts.Add(ctx, 1)

		_, err := c.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, conn.ConnectWithRetry(ctx)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error(ctx, "bitstamp connect failed", "error", err)
			continue
		}

		if err := c.subscribe(ctx, conn); err != nil {
			c.logger.Error(ctx, "bitstamp subscribe failed", "error", err)
			continue
		}

		c.logger.Info(ctx, "bitstamp feed connected", "url", c.config.URL, "currency", c.config.Currency)
		break
	}

	select {
	case <-ctx.Done():
		return conn.Close()
	case <-c.rejected:
		return apperror.New(apperror.CodeFeedSubscribeRejected)
	}
}

func (c *Client) subscribe(ctx context.Context, conn *wsconn.Client) error {
	if err := conn.SendJSON(ctx, newSubscribeFrame(c.config.Currency)); err != nil {
		return apperror.New(apperror.CodeFeedSubscribeFailed, apperror.WithCause(err))
	}
	return nil
}

// handleMessage enforces the AwaitingAck -> Streaming transition on the
// first frame, then normalizes every subsequent data frame.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	ctx, span := c.tracer.Start(ctx, "bitstamp.handle_message")
	defer span.End()

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.metrics.normalizeErrors.Add(ctx, 1)
		c.logger.Warn(ctx, "bitstamp message failed to decode", "error", err)
		return
	}

	if handshakeState(c.state.Load()) == handshakeAwaitingAck {
		if env.Event != eventSubscriptionSucceeded {
			c.metrics.ackRejected.Add(ctx, 1)
			wrapped := apperror.New(apperror.CodeFeedSubscribeRejected,
				apperror.WithContext("expected bts:subscription_succeeded, got "+env.Event))
			span.RecordError(wrapped)
			c.logger.Error(ctx, "bitstamp handshake rejected, closing connection", "error", wrapped)
			c.rejectedOnce.Do(func() { close(c.rejected) })
			if c.conn != nil {
				if err := c.conn.Close(); err != nil {
					c.logger.Warn(ctx, "bitstamp close after rejected handshake failed", "error", err)
				}
			}
			return
		}
		c.state.Store(int32(handshakeStreaming))
		return
	}

	if env.Event != eventData {
		// Heartbeats and other control events carry no order book payload.
		return
	}

	wantChannel := "order_book_" + c.config.Currency
	if env.Channel != wantChannel {
		c.metrics.normalizeErrors.Add(ctx, 1)
		wrapped := apperror.New(apperror.CodeFeedCurrencyMismatch,
			apperror.WithContext("channel "+env.Channel+" does not match configured "+wantChannel))
		span.RecordError(wrapped)
		c.logger.Warn(ctx, "bitstamp channel mismatch", "error", wrapped)
		return
	}

	snap := domain.OrderBookSnap{
		Exchange: domain.Bitstamp,
		OrderBook: domain.OrderBook{
			Bids: env.Data.Bids.Levels,
			Asks: env.Data.Asks.Levels,
		},
	}

	c.metrics.snapshotsNormalized.Add(ctx, 1)

	select {
	case c.producer <- snap:
	case <-ctx.Done():
	}
}
